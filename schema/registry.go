// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package schema

import (
	"errors"
	"fmt"
)

// ErrSealed is returned when registering a schema with a sealed [Registry].
var ErrSealed = errors.New("schema registry is sealed")

// ErrEmptyName is returned when registering a schema without a name.
var ErrEmptyName = errors.New("schema name must not be empty")

// DuplicateSchemaError is returned when a name is registered twice.
type DuplicateSchemaError struct {
	Name string
}

// Error implements the [error] interface.
func (e DuplicateSchemaError) Error() string {
	return fmt.Sprintf("schema already registered: %s", e.Name)
}

// UnknownSchemaError is returned when resolving a name which was never registered.
type UnknownSchemaError struct {
	Name string
}

// Error implements the [error] interface.
func (e UnknownSchemaError) Error() string {
	return fmt.Sprintf("unknown schema: %s", e.Name)
}

// Entry is a named schema used for declarative [Registry] construction.
type Entry struct {
	Name   string
	Schema Schema
}

// Define reflects T into a named [Entry].
// It panics if T cannot be reflected, which only happens for programming errors.
func Define[T any](name string) Entry {
	s, err := Of[T]()
	if err != nil {
		panic(fmt.Errorf("schema %s: %w", name, err))
	}
	return Entry{Name: name, Schema: s.named(name)}
}

// Registry holds named schemas.
//
// A Registry is populated during startup and sealed once it is compiled
// into an API. It is not safe for concurrent registration, but once
// sealed it may be read concurrently.
type Registry struct {
	sealed  bool
	order   []string
	schemas map[string]Schema
}

// NewRegistry initializes a [Registry] from the given entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		schemas: make(map[string]Schema, len(entries)),
	}

	var errs []error
	for _, e := range entries {
		err := r.Register(e.Name, e.Schema)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// Register adds a schema under the given name.
func (r *Registry) Register(name string, s Schema) error {
	if r.sealed {
		return ErrSealed
	}
	if name == "" {
		return ErrEmptyName
	}
	if r.schemas == nil {
		r.schemas = make(map[string]Schema)
	}
	if _, exists := r.schemas[name]; exists {
		return DuplicateSchemaError{Name: name}
	}

	r.schemas[name] = s.named(name)
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the schema registered under the given name.
func (r *Registry) Resolve(name string) (Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return Schema{}, UnknownSchemaError{Name: name}
	}
	return s, nil
}

// Schemas returns all registered schemas in registration order.
func (r *Registry) Schemas() []Schema {
	ss := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		ss = append(ss, r.schemas[name])
	}
	return ss
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	return len(r.order)
}

// Seal makes the registry read-only. Sealing is idempotent.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether [Registry.Seal] has been called.
func (r *Registry) Sealed() bool {
	return r.sealed
}
