// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest is the HTTP engine underneath blueprint APIs.
//
// An [Api] owns a chi router and the OpenAPI 3 document describing it.
// Schemas are published with [Api.RegisterSchema] and referenced by
// routes installed with [Api.RegisterRoute]. Before a [RouteHandler] runs,
// the query string, path parameters and body are checked against the
// route's schemas and decoded into their Go types. Requests failing those
// checks are answered with 400 {"detail": "..."}.
//
// Errors reported to clients always use the {"detail": "..."} body. Use
// [Error] to return an error with a specific status code from a handler.
package rest
