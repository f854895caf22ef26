// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/circutor-labs/protogateway/internal/codec"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_DecodesJSONScalar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/temperature", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": 22.5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthNone}, time.Second)
	v, err := c.Read(context.Background(), "/api/temperature", "degC")
	require.NoError(t, err)
	assert.Equal(t, codec.KindFloat, v.Kind)
	assert.InDelta(t, 22.5, v.Float, 1e-9)
	assert.Equal(t, "degC", v.Unit)
}

func TestRead_DecodesPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("running"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthNone}, time.Second)
	v, err := c.Read(context.Background(), "/api/status", "")
	require.NoError(t, err)
	assert.Equal(t, codec.KindString, v.Kind)
	assert.Equal(t, "running", v.String)
}

func TestRead_NonSuccessStatusIsProtocolException(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthNone}, time.Second)
	_, err := c.Read(context.Background(), "/api/missing", "")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindProtocolException))
}

func TestRead_AppliesBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthBearer, Token: "secret-token"}, time.Second)
	v, err := c.Read(context.Background(), "/api/enabled", "")
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestRead_AppliesAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "my-key", r.Header.Get("X-Device-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": 1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthAPIKey, Token: "my-key", HeaderName: "X-Device-Key"}, time.Second)
	_, err := c.Read(context.Background(), "/api/count", "")
	require.NoError(t, err)
}

func TestWrite_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Auth{Mode: AuthNone}, time.Second)
	err := c.Write(context.Background(), "/api/setpoint", codec.TypedValue{Kind: codec.KindFloat, Float: 21.0})
	require.NoError(t, err)
}

func TestResolvePath_SubstitutesTemplateVars(t *testing.T) {
	c := NewClient("http://device.local", Auth{Mode: AuthNone}, time.Second)
	resolved, err := c.ResolvePath("/api/zones/{zone}/temperature", map[string]string{"zone": "east"})
	require.NoError(t, err)
	assert.Equal(t, "/api/zones/east/temperature", resolved)
}

func TestResolvePath_PassesThroughPlainPaths(t *testing.T) {
	c := NewClient("http://device.local", Auth{Mode: AuthNone}, time.Second)
	resolved, err := c.ResolvePath("/api/temperature", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/temperature", resolved)
}

func TestRead_CancelledContextYieldsCancelledKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, Auth{Mode: AuthNone}, time.Second)
	_, err := c.Read(ctx, "/api/temperature", "")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindCancelled))
}
