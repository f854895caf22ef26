// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package toolsurface exposes the gateway's ten stable operations as a
// plain Go API: no HTTP, no MCP, no RPC framing. An external orchestrator
// (an HTTP handler, an MCP server, a CLI, an LLM-driven caller) wraps
// Facade in whatever transport it needs; this package owns only the
// vocabulary and argument shapes, the way the teacher's
// internal/handler/callback package gives the EdgeX command service a
// stable Go-level surface independent of which REST route calls it.
package toolsurface

import (
	"context"

	"github.com/circutor-labs/protogateway/internal/anomaly"
	"github.com/circutor-labs/protogateway/internal/codec"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/gateway"
	"github.com/circutor-labs/protogateway/internal/resolver"
	"github.com/circutor-labs/protogateway/internal/session"
	"github.com/circutor-labs/protogateway/internal/vectorindex"
)

// Ack is the trivial "it worked" result for operations with no payload.
type Ack struct{}

// Facade is the ten-operation surface, constructed over one Gateway.
type Facade struct {
	gw *gateway.Gateway
}

// New wraps gw as a Facade.
func New(gw *gateway.Gateway) *Facade {
	return &Facade{gw: gw}
}

// ImplementProtocol resolves deviceHint against the known descriptor set
// and brings the device at deviceAddress under management, returning its
// new session id.
func (f *Facade) ImplementProtocol(ctx context.Context, protocolName, deviceAddress, deviceHint string) (string, error) {
	return f.gw.ImplementProtocol(ctx, protocolName, deviceAddress, deviceHint)
}

// CloseSession tears down sessionID.
func (f *Facade) CloseSession(sessionID string) (Ack, error) {
	if err := f.gw.CloseSession(sessionID); err != nil {
		return Ack{}, err
	}
	return Ack{}, nil
}

// Read returns the current value of parameterName on sessionID.
func (f *Facade) Read(ctx context.Context, sessionID, parameterName string) (codec.TypedValue, error) {
	return f.gw.Read(ctx, sessionID, parameterName)
}

// Write sets parameterName on sessionID to value.
func (f *Facade) Write(ctx context.Context, sessionID, parameterName string, value codec.TypedValue) (Ack, error) {
	if err := f.gw.Write(ctx, sessionID, parameterName, value); err != nil {
		return Ack{}, err
	}
	return Ack{}, nil
}

// ClassifyDevice returns the fingerprint's own declared protocol (the
// classifier does not infer one) and the coarse classifier's probability
// for its top device-type class.
func (f *Facade) ClassifyDevice(fingerprint resolver.Fingerprint) (string, float64) {
	return f.gw.ClassifyDevice(fingerprint)
}

// ResolveDescriptor returns the descriptor matching fingerprint, or an
// UnknownDevice error when nothing clears the acceptance threshold.
func (f *Facade) ResolveDescriptor(fingerprint resolver.Fingerprint) (*descriptor.DeviceDescriptor, error) {
	return f.gw.ResolveDescriptor(fingerprint)
}

// DetectAnomalies records currentReading and runs every anomaly strategy
// against sessionID's descriptor and history.
func (f *Facade) DetectAnomalies(sessionID string, currentReading session.Reading, lastMaintenance anomaly.LastMaintenance) ([]anomaly.Report, error) {
	return f.gw.DetectAnomalies(sessionID, currentReading, lastMaintenance)
}

// IngestDocument runs the ingestion pipeline over path and returns the
// resulting descriptor, already persisted and indexed.
func (f *Facade) IngestDocument(path string) (*descriptor.DeviceDescriptor, error) {
	return f.gw.IngestDocument(path)
}

// SearchDescriptors returns up to topK (device_id, similarity) pairs for
// queryText.
func (f *Facade) SearchDescriptors(queryText string, topK int) []vectorindex.Match {
	return f.gw.SearchDescriptors(queryText, topK)
}

// ProcessQuery dispatches a natural-language request into an operation
// plan and executes it against every matching live session.
func (f *Facade) ProcessQuery(ctx context.Context, text string) gateway.QueryResult {
	return f.gw.ProcessQuery(ctx, text)
}
