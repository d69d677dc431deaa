// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/z5labs/blueprint/schema"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

func schemaRef(name string) *openapi3.SchemaOrRef {
	return &openapi3.SchemaOrRef{
		SchemaReference: &openapi3.SchemaReference{
			Ref: "#/components/schemas/" + name,
		},
	}
}

func jsonContent(name string) map[string]openapi3.MediaType {
	return map[string]openapi3.MediaType{
		"application/json": {
			Schema: schemaRef(name),
		},
	}
}

func detailResponse(status int) openapi3.ResponseOrRef {
	return openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Description: http.StatusText(status),
			Content:     jsonContent(DetailSchemaName),
		},
	}
}

func operation(rt Route) openapi3.Operation {
	op := openapi3.Operation{
		Tags:       rt.Tags,
		Parameters: parameters(rt),
		Responses: openapi3.Responses{
			MapOfResponseOrRefValues: make(map[string]openapi3.ResponseOrRef),
		},
	}
	if rt.OperationID != "" {
		op.ID = ptr.Ref(rt.OperationID)
	}
	if rt.Summary != "" {
		op.Summary = ptr.Ref(rt.Summary)
	}
	if rt.Description != "" {
		op.Description = ptr.Ref(rt.Description)
	}
	if rt.Deprecated {
		op.Deprecated = ptr.Ref(true)
	}

	if rt.Body != nil {
		op.RequestBody = &openapi3.RequestBodyOrRef{
			RequestBody: &openapi3.RequestBody{
				Required: ptr.Ref(true),
				Content:  jsonContent(rt.Body.Name()),
			},
		}
	}

	ok := &openapi3.Response{
		Description: http.StatusText(http.StatusOK),
	}
	if rt.Response != nil {
		ok.Content = jsonContent(rt.Response.Name())
	}
	responses := op.Responses.MapOfResponseOrRefValues
	responses[strconv.Itoa(http.StatusOK)] = openapi3.ResponseOrRef{Response: ok}
	responses[strconv.Itoa(http.StatusBadRequest)] = detailResponse(http.StatusBadRequest)
	responses[strconv.Itoa(http.StatusInternalServerError)] = detailResponse(http.StatusInternalServerError)

	if rt.Secured {
		responses[strconv.Itoa(http.StatusUnauthorized)] = detailResponse(http.StatusUnauthorized)
		op.Security = []map[string][]string{
			{BearerAuthScheme: {}},
		}
	}
	return op
}

func parameters(rt Route) []openapi3.ParameterOrRef {
	var params []openapi3.ParameterOrRef

	documented := make(map[string]bool)
	if rt.Params != nil {
		params = append(params, schemaParameters(*rt.Params, openapi3.ParameterInPath)...)
		for _, name := range rt.Params.Properties() {
			documented[name] = true
		}
	}
	for _, name := range PathParams(rt.Pattern) {
		if documented[name] {
			continue
		}
		var js jsonschema.Schema
		js.AddType(jsonschema.String)

		var sor openapi3.SchemaOrRef
		sor.FromJSONSchema(js.ToSchemaOrBool())

		params = append(params, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema:   &sor,
			},
		})
	}

	if rt.Query != nil {
		params = append(params, schemaParameters(*rt.Query, openapi3.ParameterInQuery)...)
	}
	return params
}

func schemaParameters(s schema.Schema, in openapi3.ParameterIn) []openapi3.ParameterOrRef {
	names := s.Properties()
	params := make([]openapi3.ParameterOrRef, 0, len(names))
	for _, name := range names {
		prop, _ := s.Property(name)

		var sor openapi3.SchemaOrRef
		sor.FromJSONSchema(prop)

		params = append(params, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       in,
				Required: ptr.Ref(in == openapi3.ParameterInPath || s.IsRequired(name)),
				Schema:   &sor,
			},
		})
	}
	return params
}

// PathParams returns the names of the {placeholders} in a chi pattern,
// in the order they appear. Regexp suffixes ({id:[0-9]+}) are dropped.
func PathParams(pattern string) []string {
	var names []string
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			return names
		}
		name := pattern[start+1 : start+end]
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
}

// CanonicalPattern returns pattern with the names of its {placeholders}
// removed, so patterns which match the same requests compare equal.
// "/users/{id}" and "/users/{name}" both become "/users/{}". Regexp
// suffixes are kept since chi routes them separately.
func CanonicalPattern(pattern string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			b.WriteString(pattern)
			return b.String()
		}
		b.WriteString(pattern[:start])
		b.WriteByte('{')
		if i := strings.IndexByte(pattern[start:start+end], ':'); i >= 0 {
			b.WriteString(pattern[start+i : start+end])
		}
		b.WriteByte('}')
		pattern = pattern[start+end+1:]
	}
}
