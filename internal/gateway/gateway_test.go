// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	cfg := common.Default()
	cfg.StorageDir = t.TempDir()
	g, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestNew_StartsWithEmptyModelAndIndex(t *testing.T) {
	g := newTestGateway(t)
	require.Empty(t, g.Model.All())
	require.Equal(t, 0, g.Index.Count())
}

func TestRead_UnknownSessionReturnsError(t *testing.T) {
	g := newTestGateway(t)
	_, err := g.Read(nil, "no-such-session", "temperature")
	require.Error(t, err)
	require.True(t, common.IsKind(err, common.KindUnknownDevice))
}

func TestCloseSession_UnknownSessionReturnsError(t *testing.T) {
	g := newTestGateway(t)
	err := g.CloseSession("no-such-session")
	require.Error(t, err)
}

func TestRouter_HealthzReportsOK(t *testing.T) {
	g := newTestGateway(t)
	router := g.Router()
	require.NotNil(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
