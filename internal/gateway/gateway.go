// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package gateway composes every component (descriptor store, vector
// index, resolver, session manager, anomaly detector, dispatcher) into
// one owned instance and exposes the device-facing operations the tool
// surface wraps. There is no package-level gateway; every dependency is
// constructed once in New and threaded explicitly, the way the teacher's
// service composes its clients/cache/scheduler in one init path rather
// than through global state.
package gateway

import (
	"fmt"

	"github.com/circutor-labs/protogateway/internal/anomaly"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/dispatch"
	"github.com/circutor-labs/protogateway/internal/resolver"
	"github.com/circutor-labs/protogateway/internal/session"
	"github.com/circutor-labs/protogateway/internal/vectorindex"
	"github.com/rs/zerolog"
)

// Gateway is the constructed root of the running system.
type Gateway struct {
	Config *common.Config
	Log    zerolog.Logger

	Store      *descriptor.Store
	Model      *descriptor.Model
	Index      *vectorindex.Index
	Resolver   *resolver.Resolver
	Sessions   *session.Manager
	Anomaly    *anomaly.Detector
	Dispatcher *dispatch.Dispatcher

	metrics *metrics

	lastCacheHits   int64
	lastCacheMisses int64
}

// New wires every component over cfg. It loads whatever descriptors
// already exist under cfg.StorageDir, builds the vector index from them,
// and starts watching the directory for hot-reload. Callers must call
// Close when done to release the store's filesystem watch.
func New(cfg *common.Config) (*Gateway, error) {
	log := common.NewLogger("gateway", cfg.LogLevel)

	store, err := descriptor.NewStore(cfg.StorageDir, log)
	if err != nil {
		return nil, fmt.Errorf("opening descriptor store: %w", err)
	}
	model, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading descriptors: %w", err)
	}

	index := vectorindex.New(vectorindex.Dimension)
	for _, d := range model.All() {
		if err := index.Upsert(d.DeviceID, vectorindex.CanonicalText(d)); err != nil {
			return nil, fmt.Errorf("indexing descriptor %q: %w", d.DeviceID, err)
		}
	}

	g := &Gateway{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Model:      model,
		Index:      index,
		Resolver:   resolver.New(model, index),
		Sessions:   session.NewManager(log),
		Anomaly:    anomaly.New(),
		Dispatcher: dispatch.New(),
		metrics:    newMetrics(),
	}

	if err := store.Watch(g.onDescriptorsChanged); err != nil {
		return nil, fmt.Errorf("starting descriptor watch: %w", err)
	}

	return g, nil
}

// onDescriptorsChanged is the descriptor store's hot-reload callback: a
// full reload replaces both Model and Index wholesale, rather than
// attempting an incremental diff, since descriptor counts are small
// (per-device-model documentation, not per-device telemetry).
func (g *Gateway) onDescriptorsChanged(m *descriptor.Model) {
	index := vectorindex.New(vectorindex.Dimension)
	for _, d := range m.All() {
		if err := index.Upsert(d.DeviceID, vectorindex.CanonicalText(d)); err != nil {
			g.Log.Error().Err(err).Str("device_id", d.DeviceID).Msg("failed to index reloaded descriptor")
			continue
		}
	}
	g.Resolver = resolver.New(m, index)
	g.Model = m
	g.Index = index
	g.Log.Info().Int("device_count", len(m.All())).Msg("descriptor set reloaded")
}

// Close releases the descriptor store's filesystem watch. Live device
// sessions are not forcibly closed; callers that want a clean shutdown
// should sweep the session manager first.
func (g *Gateway) Close() error {
	return g.Store.Close()
}
