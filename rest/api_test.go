// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/z5labs/blueprint/health"
	"github.com/z5labs/blueprint/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemParams struct {
	ID int `json:"id" required:"true"`
}

type itemQuery struct {
	Verbose bool     `json:"verbose,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type itemBody struct {
	Name  string `json:"name" required:"true"`
	Count int    `json:"count,omitempty"`
}

type item struct {
	ID   int    `json:"id" required:"true"`
	Name string `json:"name"`
}

func itemSchemas() (params, query, body, resp schema.Schema) {
	return schema.Define[itemParams]("ItemParams").Schema,
		schema.Define[itemQuery]("ItemQuery").Schema,
		schema.Define[itemBody]("ItemBody").Schema,
		schema.Define[item]("Item").Schema
}

func newItemApi(t *testing.T, h RouteHandler, opts ...ApiOption) *Api {
	t.Helper()

	params, query, body, resp := itemSchemas()

	api := NewApi("Items", "v0.0.0", opts...)
	for _, s := range []schema.Schema{params, query, body, resp} {
		require.NoError(t, api.RegisterSchema(s))
	}

	err := api.RegisterRoute(Route{
		Method:      http.MethodPut,
		Pattern:     "/items/{id}",
		Query:       &query,
		Params:      &params,
		Body:        &body,
		Response:    &resp,
		Tags:        []string{"items"},
		OperationID: "putItem",
		Secured:     true,
	}, h)
	require.NoError(t, err)
	return api
}

func noopRoute() RouteHandler {
	return RouteHandlerFunc(func(w http.ResponseWriter, r *http.Request, in Input) {
		w.WriteHeader(http.StatusOK)
	})
}

type refObject struct {
	Ref string `json:"$ref"`
}

type mediaType struct {
	Schema refObject `json:"schema"`
}

type openapiOperation struct {
	OperationID string                `json:"operationId"`
	Tags        []string              `json:"tags"`
	Summary     string                `json:"summary"`
	Deprecated  bool                  `json:"deprecated"`
	Security    []map[string][]string `json:"security"`
	Parameters  []struct {
		Name     string `json:"name"`
		In       string `json:"in"`
		Required bool   `json:"required"`
	} `json:"parameters"`
	RequestBody *struct {
		Content map[string]mediaType `json:"content"`
	} `json:"requestBody"`
	Responses map[string]struct {
		Content map[string]mediaType `json:"content"`
	} `json:"responses"`
}

type openapiDoc struct {
	Openapi    string                                 `json:"openapi"`
	Paths      map[string]map[string]openapiOperation `json:"paths"`
	Components struct {
		Schemas         map[string]json.RawMessage `json:"schemas"`
		SecuritySchemes map[string]json.RawMessage `json:"securitySchemes"`
	} `json:"components"`
}

func documentOf(t *testing.T, api *Api) openapiDoc {
	t.Helper()

	b, err := json.Marshal(api.Spec())
	require.NoError(t, err)

	var doc openapiDoc
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestApi_RegisterSchema(t *testing.T) {
	t.Run("will be idempotent", func(t *testing.T) {
		t.Run("if the same name is published with the same type", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")
			s := schema.Define[item]("Item").Schema

			require.NoError(t, api.RegisterSchema(s))
			require.NoError(t, api.RegisterSchema(s))

			doc := documentOf(t, api)
			assert.Len(t, doc.Components.Schemas, 2)
			assert.Contains(t, doc.Components.Schemas, "Item")
			assert.Contains(t, doc.Components.Schemas, DetailSchemaName)
		})
	})

	t.Run("will return a SchemaConflictError", func(t *testing.T) {
		t.Run("if the same name is published with a different type", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")

			require.NoError(t, api.RegisterSchema(schema.Define[item]("Item").Schema))
			err := api.RegisterSchema(schema.Define[itemBody]("Item").Schema)

			var conflict SchemaConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "Item", conflict.Name)
		})
	})

	t.Run("will return schema.ErrEmptyName", func(t *testing.T) {
		t.Run("if the schema was never named", func(t *testing.T) {
			s, err := schema.Of[item]()
			require.NoError(t, err)

			err = NewApi("Test", "v0.0.0").RegisterSchema(s)
			assert.ErrorIs(t, err, schema.ErrEmptyName)
		})
	})
}

func TestApi_RegisterRoute(t *testing.T) {
	t.Run("will return a RouteConflictError", func(t *testing.T) {
		t.Run("if the method and pattern are already registered", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")

			require.NoError(t, api.RegisterRoute(Route{Method: "get", Pattern: "/a", OperationID: "a1"}, noopRoute()))
			err := api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/a", OperationID: "a2"}, noopRoute())

			var conflict RouteConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, http.MethodGet, conflict.Method)
			assert.Equal(t, "/a", conflict.Pattern)
		})

		t.Run("if the pattern differs only in placeholder names", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")

			require.NoError(t, api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/users/{id}", OperationID: "a1"}, noopRoute()))
			err := api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/users/{name}", OperationID: "a2"}, noopRoute())

			var conflict RouteConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "/users/{name}", conflict.Pattern)
			assert.True(t, api.HasRoute(http.MethodGet, "/users/{other}"))
		})
	})

	t.Run("will return an OperationConflictError", func(t *testing.T) {
		t.Run("if the operation id is already registered", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")

			require.NoError(t, api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/a", OperationID: "same"}, noopRoute()))
			err := api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/b", OperationID: "same"}, noopRoute())

			var conflict OperationConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "same", conflict.OperationID)
		})
	})

	t.Run("will return an UnpublishedSchemaError", func(t *testing.T) {
		t.Run("if a referenced schema was not published", func(t *testing.T) {
			api := NewApi("Test", "v0.0.0")
			resp := schema.Define[item]("Item").Schema

			err := api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/a", Response: &resp}, noopRoute())

			var unpublished UnpublishedSchemaError
			require.ErrorAs(t, err, &unpublished)
			assert.Equal(t, "Item", unpublished.Name)
			assert.NotContains(t, documentOf(t, api).Paths, "/a")
		})
	})

	t.Run("will document the operation", func(t *testing.T) {
		doc := documentOf(t, newItemApi(t, noopRoute()))

		op, ok := doc.Paths["/items/{id}"]["put"]
		require.True(t, ok)
		assert.Equal(t, "putItem", op.OperationID)
		assert.Equal(t, []string{"items"}, op.Tags)
		assert.Equal(t, []map[string][]string{{BearerAuthScheme: {}}}, op.Security)

		require.NotNil(t, op.RequestBody)
		assert.Equal(t, "#/components/schemas/ItemBody", op.RequestBody.Content["application/json"].Schema.Ref)
		assert.Equal(t, "#/components/schemas/Item", op.Responses["200"].Content["application/json"].Schema.Ref)
		assert.Equal(t, "#/components/schemas/ErrorDetail", op.Responses["400"].Content["application/json"].Schema.Ref)
		assert.Equal(t, "#/components/schemas/ErrorDetail", op.Responses["401"].Content["application/json"].Schema.Ref)
		assert.Equal(t, "#/components/schemas/ErrorDetail", op.Responses["500"].Content["application/json"].Schema.Ref)

		var names []string
		for _, p := range op.Parameters {
			names = append(names, p.In+":"+p.Name)
			if p.In == "path" {
				assert.True(t, p.Required)
			}
		}
		assert.ElementsMatch(t, []string{"path:id", "query:tags", "query:verbose"}, names)

		assert.Contains(t, doc.Components.SecuritySchemes, BearerAuthScheme)
		assert.Contains(t, doc.Components.Schemas, DetailSchemaName)
	})

	t.Run("will document undeclared path parameters as strings", func(t *testing.T) {
		api := NewApi("Test", "v0.0.0")

		err := api.RegisterRoute(Route{Method: http.MethodDelete, Pattern: "/things/{name}", OperationID: "deleteThing"}, noopRoute())
		require.NoError(t, err)

		op, ok := documentOf(t, api).Paths["/things/{name}"]["delete"]
		require.True(t, ok)
		require.Len(t, op.Parameters, 1)
		assert.Equal(t, "name", op.Parameters[0].Name)
		assert.Empty(t, op.Security)
		assert.NotContains(t, op.Responses, "401")
	})
}

func TestApi_HasRoute(t *testing.T) {
	t.Run("will report the operational endpoints", func(t *testing.T) {
		api := NewApi("Test", "v0.0.0")

		assert.True(t, api.HasRoute(http.MethodGet, "/openapi.json"))
		assert.True(t, api.HasRoute("get", "/health/liveness"))
		assert.False(t, api.HasRoute(http.MethodGet, "/metrics"))
	})

	t.Run("will report registered routes", func(t *testing.T) {
		api := newItemApi(t, noopRoute())

		assert.True(t, api.HasRoute(http.MethodPut, "/items/{id}"))
		assert.True(t, api.HasOperation("putItem"))
		assert.False(t, api.HasRoute(http.MethodGet, "/items/{id}"))
	})
}

func TestApi_ServeHTTP(t *testing.T) {
	t.Run("will serve the OpenAPI document", func(t *testing.T) {
		srv := httptest.NewServer(newItemApi(t, noopRoute()))
		t.Cleanup(srv.Close)

		resp, err := http.Get(srv.URL + "/openapi.json")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var doc openapiDoc
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, "3.0.3", doc.Openapi)
		assert.Contains(t, doc.Paths, "/items/{id}")
	})

	t.Run("will return 404 with a detail body", func(t *testing.T) {
		t.Run("if no route matches the path", func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/missing", nil)

			NewApi("Test", "v0.0.0").ServeHTTP(w, r)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, `{"detail":"Not Found"}`, w.Body.String())
		})
	})

	t.Run("will return 405 with a detail body", func(t *testing.T) {
		t.Run("if the path matches with another method", func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/openapi.json", nil)

			NewApi("Test", "v0.0.0").ServeHTTP(w, r)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, `{"detail":"Method Not Allowed"}`, w.Body.String())
		})
	})

	t.Run("will redirect to the docs UI", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/docs", nil)

		NewApi("Test", "v0.0.0").ServeHTTP(w, r)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "/docs/index.html", w.Header().Get("Location"))
	})

	t.Run("will not serve the docs UI", func(t *testing.T) {
		t.Run("if the docs path is disabled", func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/docs", nil)

			NewApi("Test", "v0.0.0", DocsPath("")).ServeHTTP(w, r)

			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	})

	t.Run("will serve the metrics handler", func(t *testing.T) {
		metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "requests_total 1\n")
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)

		NewApi("Test", "v0.0.0", Metrics(metrics)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "requests_total 1\n", w.Body.String())
	})

	t.Run("will set a request id", func(t *testing.T) {
		t.Run("if the request has none", func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/health/liveness", nil)

			NewApi("Test", "v0.0.0").ServeHTTP(w, r)

			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
		})

		t.Run("to the one sent by the client", func(t *testing.T) {
			var seen string
			api := NewApi("Test", "v0.0.0")
			err := api.RegisterRoute(Route{Method: http.MethodGet, Pattern: "/id", OperationID: "id"}, RouteHandlerFunc(func(w http.ResponseWriter, r *http.Request, in Input) {
				seen = RequestID(r.Context())
			}))
			require.NoError(t, err)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/id", nil)
			r.Header.Set(RequestIDHeader, "abc-123")

			api.ServeHTTP(w, r)

			assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
			assert.Equal(t, "abc-123", seen)
		})
	})
}

func TestHealthProbes(t *testing.T) {
	t.Run("will return http 200 status code", func(t *testing.T) {
		t.Run("if the readiness monitor is healthy", func(t *testing.T) {
			var m health.Binary
			m.MarkHealthy()

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/health/readiness", nil)

			NewApi("Test", "v0.0.0", Readiness(&m)).ServeHTTP(w, r)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Body.String())
		})

		t.Run("if no liveness monitor was configured", func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/health/liveness", nil)

			NewApi("Test", "v0.0.0").ServeHTTP(w, r)

			assert.Equal(t, http.StatusOK, w.Code)
		})
	})

	t.Run("will return http 503 status code", func(t *testing.T) {
		t.Run("if the liveness monitor is unhealthy", func(t *testing.T) {
			var m health.Binary

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/health/liveness", nil)

			NewApi("Test", "v0.0.0", Liveness(&m)).ServeHTTP(w, r)

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			assert.Equal(t, `{"detail":"Service Unavailable"}`, w.Body.String())
		})
	})
}

func defineSchema[T any](t *testing.T, api *Api, name string) schema.Schema {
	t.Helper()

	s := schema.Define[T](name).Schema
	require.NoError(t, api.RegisterSchema(s))
	return s
}
