// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"

	"github.com/z5labs/blueprint/schema"

	"github.com/go-chi/chi/v5"
	"github.com/go-viper/mapstructure/v2"
	"github.com/swaggest/jsonschema-go"
	"github.com/z5labs/sdk-go/try"
)

// Request locations reported by [ValidationError].
const (
	InQuery  = "querystring"
	InParams = "params"
	InBody   = "body"
)

func decodeQuery(s schema.Schema, values url.Values) (any, error) {
	fields := make(map[string]any, len(values))
	for _, name := range s.Properties() {
		vs, ok := values[name]
		if !ok || len(vs) == 0 {
			continue
		}
		prop, _ := s.Property(name)
		if isArray(prop) {
			fields[name] = vs
			continue
		}
		fields[name] = vs[0]
	}

	return decodeFields(InQuery, s, fields)
}

func decodeParams(s schema.Schema, rctx *chi.Context) (any, error) {
	fields := make(map[string]any)
	if rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key == "*" {
				continue
			}
			fields[key] = rctx.URLParams.Values[i]
		}
	}

	return decodeFields(InParams, s, fields)
}

func decodeFields(in string, s schema.Schema, fields map[string]any) (any, error) {
	for _, name := range s.Required() {
		if _, ok := fields[name]; !ok {
			return nil, ValidationError{
				In:     in,
				Detail: fmt.Sprintf("%s must have required property '%s'", in, name),
			}
		}
	}

	v := s.New()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	err = dec.Decode(fields)
	if err != nil {
		return nil, ValidationError{
			In:     in,
			Detail: fmt.Sprintf("%s is invalid", in),
			Cause:  err,
		}
	}
	return v, nil
}

func decodeBody(s schema.Schema, r *http.Request) (v any, err error) {
	defer try.Close(&err, r.Body)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, perr := mime.ParseMediaType(contentType)
	if perr != nil || mediaType != "application/json" {
		return nil, InvalidContentTypeError{ContentType: contentType}
	}

	b, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, Error(http.StatusRequestEntityTooLarge, "Request Entity Too Large")
	}
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	err = json.Unmarshal(b, &fields)
	if err != nil || fields == nil {
		return nil, ValidationError{
			In:     InBody,
			Detail: "body must be object",
			Cause:  err,
		}
	}

	for _, name := range s.Required() {
		raw, ok := fields[name]
		if !ok || bytes.Equal(raw, []byte("null")) {
			return nil, ValidationError{
				In:     InBody,
				Detail: fmt.Sprintf("body must have required property '%s'", name),
			}
		}
	}

	v = s.New()
	err = json.Unmarshal(b, v)
	if err == nil {
		return v, nil
	}

	detail := "body is invalid"
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		detail = fmt.Sprintf("body/%s must be %s", ute.Field, jsonTypeName(ute))
	}
	return nil, ValidationError{
		In:     InBody,
		Detail: detail,
		Cause:  err,
	}
}

func isArray(sob jsonschema.SchemaOrBool) bool {
	if sob.TypeObject == nil || sob.TypeObject.Type == nil {
		return false
	}
	typ := sob.TypeObject.Type
	if typ.SimpleTypes != nil {
		return *typ.SimpleTypes == jsonschema.Array
	}
	for _, st := range typ.SliceOfSimpleTypeValues {
		if st == jsonschema.Array {
			return true
		}
	}
	return false
}

func jsonTypeName(ute *json.UnmarshalTypeError) string {
	switch ute.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return ute.Type.Kind().String()
	}
}
