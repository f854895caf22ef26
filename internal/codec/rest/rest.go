// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package rest implements the REST/HTTP codec: GET for reads, POST with a
// small JSON body for writes, against the descriptor's endpoint_map, with
// bearer/API-key/no-auth modes. Requests go through a plain
// *http.Client with a timeout; gorilla/mux is reused here for
// endpoint_map route-pattern matching.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/circutor-labs/protogateway/internal/codec"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/gorilla/mux"
)

// AuthMode selects how outbound requests authenticate against the device:
// none, a bearer token, or a named API-key header.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"
	AuthAPIKey AuthMode = "api_key"
)

// Auth carries the credential for whichever AuthMode is selected.
type Auth struct {
	Mode        AuthMode
	Token       string // bearer token, or the API key value
	HeaderName  string // only used for AuthAPIKey
}

// Client issues REST requests against one device's base URL.
type Client struct {
	BaseURL string
	Auth    Auth
	HTTP    *http.Client
	router  *mux.Router
}

// NewClient builds a REST client with a bounded request timeout — a
// request may block, but never indefinitely.
func NewClient(baseURL string, auth Auth, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    auth,
		HTTP:    &http.Client{Timeout: timeout},
		router:  mux.NewRouter(),
	}
}

func (c *Client) applyAuth(req *http.Request) {
	switch c.Auth.Mode {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case AuthAPIKey:
		name := c.Auth.HeaderName
		if name == "" {
			name = "X-API-Key"
		}
		req.Header.Set(name, c.Auth.Token)
	}
}

// ResolvePath matches path (a ParameterSpec's endpoint_map entry, e.g.
// "/api/temperature" or "/api/zones/{zone}/temperature") against mux's
// route syntax, substituting vars, so descriptors can describe
// templated endpoints without the codec hand-rolling string substitution.
func (c *Client) ResolvePath(path string, vars map[string]string) (string, error) {
	if !strings.Contains(path, "{") {
		return path, nil
	}
	route := c.router.NewRoute().Path(path)
	resolved, err := route.URLPath(flattenVars(vars)...)
	if err != nil {
		return "", common.NewDecodeError(fmt.Sprintf("could not substitute vars into endpoint pattern %q", path), err)
	}
	return resolved.Path, nil
}

func flattenVars(vars map[string]string) []string {
	out := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		out = append(out, k, v)
	}
	return out
}

// Read issues GET base_url+path and decodes the response into a
// codec.TypedValue, recognizing application/json (parsed) and text/plain
// content types. A text/plain body that parses as a number is returned as
// a float, not a string; any other text/plain body is returned as a
// string.
func (c *Client) Read(ctx context.Context, path string, unit string) (codec.TypedValue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return codec.TypedValue{}, common.NewTransportError("could not build REST GET request", err)
	}
	c.applyAuth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return codec.TypedValue{}, common.NewCancelled("REST read cancelled before completion")
		}
		return codec.TypedValue{}, common.NewTransportError("REST GET failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return codec.TypedValue{}, common.NewProtocolException(
			fmt.Sprintf("REST GET %s returned status %d", path, resp.StatusCode), resp.StatusCode)
	}

	return decodeBody(resp, unit)
}

// Write issues POST base_url+path with a small JSON body {"value": ...}.
func (c *Client) Write(ctx context.Context, path string, value codec.TypedValue) error {
	body, err := json.Marshal(map[string]interface{}{"value": rawValue(value)})
	if err != nil {
		return common.NewDecodeError("could not encode REST write body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return common.NewTransportError("could not build REST POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyAuth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return common.NewCancelled("REST write cancelled before completion")
		}
		return common.NewTransportError("REST POST failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewProtocolException(
			fmt.Sprintf("REST POST %s returned status %d", path, resp.StatusCode), resp.StatusCode)
	}
	return nil
}

func rawValue(v codec.TypedValue) interface{} {
	switch v.Kind {
	case codec.KindFloat:
		return v.Float
	case codec.KindInt:
		return v.Int
	case codec.KindBool:
		return v.Bool
	default:
		return v.String
	}
}

func decodeBody(resp *http.Response, unit string) (codec.TypedValue, error) {
	contentType := resp.Header.Get("Content-Type")
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return codec.TypedValue{}, common.NewTransportError("could not read REST response body", err)
	}

	if strings.HasPrefix(contentType, "application/json") {
		var payload struct {
			Value json.RawMessage `json:"value"`
		}
		target := raw
		if json.Unmarshal(raw, &payload) == nil && len(payload.Value) > 0 {
			target = payload.Value
		}
		return decodeJSONScalar(target, unit)
	}

	// text/plain, or any other content-type: a numeric body becomes a
	// float, anything else a bare string.
	s := strings.TrimSpace(string(raw))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return codec.TypedValue{Kind: codec.KindFloat, Float: f, Unit: unit}, nil
	}
	return codec.TypedValue{Kind: codec.KindString, String: s, Unit: unit}, nil
}

func decodeJSONScalar(raw []byte, unit string) (codec.TypedValue, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return codec.TypedValue{}, common.NewDecodeError("REST response is not valid JSON", err)
	}
	switch t := v.(type) {
	case float64:
		return codec.TypedValue{Kind: codec.KindFloat, Float: t, Unit: unit}, nil
	case bool:
		return codec.TypedValue{Kind: codec.KindBool, Bool: t, Unit: unit}, nil
	case string:
		return codec.TypedValue{Kind: codec.KindString, String: t, Unit: unit}, nil
	default:
		return codec.TypedValue{}, common.NewDecodeError("REST JSON value is not a scalar", nil)
	}
}
