// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package schema provides named, structurally typed data definitions.
//
// A [Schema] pairs a Go struct type with the JSON Schema reflected from it.
// Schemas are collected in a [Registry] under unique names and referenced by
// those names from route specifications.
package schema

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/swaggest/jsonschema-go"
)

// NotObjectError is returned by [Of] when the type parameter is not a struct.
type NotObjectError struct {
	Type reflect.Type
}

// Error implements the [error] interface.
func (e NotObjectError) Error() string {
	return fmt.Sprintf("schema type must be a struct: %s", e.Type)
}

// Schema is an immutable structural type definition.
type Schema struct {
	name string
	typ  reflect.Type
	def  jsonschema.Schema
}

// Of reflects the JSON Schema of T.
//
// Fields tagged with `required:"true"` are required, all other fields are
// optional. Nested types are inlined.
func Of[T any]() (Schema, error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return Schema{}, NotObjectError{Type: typ}
	}

	var t T
	var reflector jsonschema.Reflector
	def, err := reflector.Reflect(t, jsonschema.InlineRefs)
	if err != nil {
		return Schema{}, err
	}

	return Schema{
		typ: typ,
		def: def,
	}, nil
}

// Name returns the name the schema was registered under.
// It is empty for schemas which have not been registered.
func (s Schema) Name() string {
	return s.name
}

// Type returns the Go type described by the schema.
func (s Schema) Type() reflect.Type {
	return s.typ
}

// JSONSchema returns the reflected JSON Schema. The returned value has
// its title set to the schema name.
func (s Schema) JSONSchema() jsonschema.Schema {
	def := s.def
	if s.name != "" {
		title := s.name
		def.Title = &title
	}
	return def
}

// Required returns the names of all required properties.
func (s Schema) Required() []string {
	return slices.Clone(s.def.Required)
}

// IsRequired reports whether the named property is required.
func (s Schema) IsRequired(name string) bool {
	return slices.Contains(s.def.Required, name)
}

// Properties returns the names of all properties in lexical order.
func (s Schema) Properties() []string {
	names := make([]string, 0, len(s.def.Properties))
	for name := range s.def.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Property returns the JSON Schema of the named property.
func (s Schema) Property(name string) (jsonschema.SchemaOrBool, bool) {
	p, ok := s.def.Properties[name]
	return p, ok
}

// New allocates a zero value of the schema type and returns a pointer to it.
func (s Schema) New() any {
	return reflect.New(s.typ).Interface()
}

func (s Schema) named(name string) Schema {
	s.name = name
	return s
}
