// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package route

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/z5labs/blueprint/rest"
	"github.com/z5labs/blueprint/schema"

	"github.com/stretchr/testify/require"
)

type helloQuery struct {
	Recipient string `json:"recipient,omitempty"`
}

type helloResponse struct {
	Hello string `json:"hello" required:"true"`
}

type itemParams struct {
	ID int `json:"id" required:"true"`
}

type itemBody struct {
	Name string `json:"name" required:"true"`
}

type item struct {
	ID   int    `json:"id" required:"true"`
	Name string `json:"name" required:"true"`
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()

	reg, err := schema.NewRegistry(
		schema.Define[helloQuery]("HelloQuery"),
		schema.Define[helloResponse]("HelloResponse"),
		schema.Define[itemParams]("ItemParams"),
		schema.Define[itemBody]("ItemBody"),
		schema.Define[item]("Item"),
	)
	require.NoError(t, err)
	return reg
}

func getHelloWorld(ctx context.Context, req *Request[helloQuery, None, None]) (*helloResponse, error) {
	recipient := req.Query.Recipient
	if recipient == "" {
		recipient = "World"
	}
	return &helloResponse{Hello: recipient}, nil
}

func helloServer() Server {
	return Server{
		"hello": {
			Prefix: "/hello",
			Routes: map[string]Spec{
				"getHelloWorld": {
					Method:   http.MethodGet,
					Path:     "/",
					Auth:     AuthNone,
					Query:    "HelloQuery",
					Response: "HelloResponse",
				},
			},
		},
	}
}

func helloImpl() Impl {
	return Impl{
		"hello": {
			"getHelloWorld": BindFunc(getHelloWorld),
		},
	}
}

func noContent(ctx context.Context, req *Request[None, None, None]) (*None, error) {
	return nil, nil
}

func newApi() *rest.Api {
	return rest.NewApi("Test", "v0.0.0")
}

type openapiOperation struct {
	OperationID string                `json:"operationId"`
	Tags        []string              `json:"tags"`
	Summary     string                `json:"summary"`
	Description string                `json:"description"`
	Deprecated  bool                  `json:"deprecated"`
	Security    []map[string][]string `json:"security"`
	Responses   map[string]any        `json:"responses"`
}

type openapiDoc struct {
	Paths      map[string]map[string]openapiOperation `json:"paths"`
	Components struct {
		Schemas map[string]json.RawMessage `json:"schemas"`
	} `json:"components"`
}

func documentOf(t *testing.T, api *rest.Api) openapiDoc {
	t.Helper()

	b, err := json.Marshal(api.Spec())
	require.NoError(t, err)

	var doc openapiDoc
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}
