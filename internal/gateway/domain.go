// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"time"

	"github.com/circutor-labs/protogateway/internal/anomaly"
	"github.com/circutor-labs/protogateway/internal/codec"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/dispatch"
	"github.com/circutor-labs/protogateway/internal/ingest"
	"github.com/circutor-labs/protogateway/internal/resolver"
	"github.com/circutor-labs/protogateway/internal/session"
	"github.com/circutor-labs/protogateway/internal/vectorindex"
)

// ImplementProtocol resolves device_hint against the known descriptor
// set and opens a live session at device_address, returning the new
// session's id. The name mirrors the tool surface's operation: "bring
// this protocol-speaking device under management," not "register a new
// wire protocol" (the ProtocolSpec registry is static, see
// internal/protocolspec).
func (g *Gateway) ImplementProtocol(ctx context.Context, protocolName, deviceAddress, deviceHint string) (string, error) {
	desc, err := g.ResolveDescriptor(resolver.Fingerprint{Protocol: protocolName, DeviceHint: deviceHint})
	if err != nil {
		return "", err
	}
	sess, err := g.OpenSession(ctx, deviceAddress, desc)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// CloseSession tears down a live session and releases its transport.
func (g *Gateway) CloseSession(sessionID string) error {
	return g.Sessions.Close(sessionID)
}

// ClassifyDevice runs only the coarse classification stage over a
// fingerprint, returning the protocol the fingerprint claims plus the
// classifier's confidence that a real device sits behind it — a cheap
// check ahead of committing to the fuller ResolveDescriptor lookup.
func (g *Gateway) ClassifyDevice(fp resolver.Fingerprint) (string, float64) {
	return fp.Protocol, g.Resolver.ClassifyConfidence(fp)
}

// ResolveDescriptor runs the full coarse-classify-then-semantic-search
// pipeline and returns the matched descriptor.
func (g *Gateway) ResolveDescriptor(fp resolver.Fingerprint) (*descriptor.DeviceDescriptor, error) {
	start := time.Now()
	desc, err := g.Resolver.Resolve(fp)
	g.metrics.observeVectorSearch(time.Since(start).Seconds())
	g.metrics.syncResolverCacheMetrics(g.Resolver.CacheHits, g.Resolver.CacheMisses, &g.lastCacheHits, &g.lastCacheMisses)
	return desc, err
}

// DetectAnomalies records reading against the session's history and runs
// every anomaly strategy over the session's descriptor. lastMaintenance
// carries whatever "task performed at" timestamps the caller tracks;
// tasks absent from it are never flagged overdue (see internal/anomaly).
func (g *Gateway) DetectAnomalies(sessionID string, reading session.Reading, lastMaintenance anomaly.LastMaintenance) ([]anomaly.Report, error) {
	sess, ok := g.Sessions.BySessionID(sessionID)
	if !ok {
		return nil, common.NewUnknownDevice("no session " + sessionID)
	}
	sess.RecordReading(reading.Parameter, reading.Value, reading.At)
	reports := g.Anomaly.Detect(sess.Descriptor, sess.History(), lastMaintenance)
	for _, r := range reports {
		g.metrics.observeAnomaly(string(r.Type))
	}
	return reports, nil
}

// IngestDocument runs the PDF/HTML ingestion pipeline over path, persists
// the resulting descriptor, and folds it into both the in-memory model
// and the vector index so it's immediately resolvable — the store's
// filesystem watch would pick the same file up on its own, but a caller
// of ingest_document expects the descriptor usable in the same call.
func (g *Gateway) IngestDocument(path string, extractors ...ingest.Extractor) (*descriptor.DeviceDescriptor, error) {
	desc, err := ingest.Ingest(path, extractors...)
	if err != nil {
		return nil, err
	}
	if err := g.Store.Save(desc); err != nil {
		return nil, err
	}
	if err := g.Model.Add(desc); err != nil {
		return nil, err
	}
	if err := g.Index.Upsert(desc.DeviceID, vectorindex.CanonicalText(desc)); err != nil {
		return nil, err
	}
	return desc, nil
}

// SearchDescriptors runs a semantic top-k search over the vector index.
func (g *Gateway) SearchDescriptors(queryText string, topK int) []vectorindex.Match {
	start := time.Now()
	matches := g.Index.SearchText(queryText, topK)
	g.metrics.observeVectorSearch(time.Since(start).Seconds())
	return matches
}

// QueryStepResult is the outcome of executing one PlanStep against
// whichever live sessions carry that step's parameter.
type QueryStepResult struct {
	SessionID string
	Operation dispatch.Operation
	Parameter string
	Value     codec.TypedValue
	Err       error
}

// QueryResult is process_query's full outcome: the plan the dispatcher
// built plus the per-session result of carrying it out.
type QueryResult struct {
	Plan    dispatch.Plan
	Results []QueryStepResult
}

// ProcessQuery dispatches text into a plan and executes it against every
// currently open session whose descriptor has the plan's parameter.
// Query text naming no live device (a status check before any session is
// open) yields an empty Results slice, not an error.
func (g *Gateway) ProcessQuery(ctx context.Context, text string) QueryResult {
	plan := g.Dispatcher.Dispatch(text, g.knownParameterNames())

	var results []QueryStepResult
	for _, step := range plan.Steps {
		if step.Parameter == "" {
			continue
		}
		for _, sess := range g.sessionsForParameter(step.Parameter) {
			results = append(results, g.executeStep(ctx, sess, step))
		}
	}
	return QueryResult{Plan: plan, Results: results}
}

func (g *Gateway) executeStep(ctx context.Context, sess *session.DeviceSession, step dispatch.PlanStep) QueryStepResult {
	res := QueryStepResult{SessionID: sess.ID, Operation: step.Operation, Parameter: step.Parameter}
	if step.Operation == dispatch.OpSet {
		if step.Value == nil {
			res.Err = common.NewInvariantViolation("set operation named no value")
			return res
		}
		tv := codec.TypedValue{Kind: codec.KindFloat, Float: *step.Value}
		res.Err = g.Write(ctx, sess.ID, step.Parameter, tv)
		if res.Err == nil {
			res.Value = tv
		}
		return res
	}
	v, err := g.Read(ctx, sess.ID, step.Parameter)
	res.Value, res.Err = v, err
	return res
}

func (g *Gateway) knownParameterNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range g.Model.All() {
		for name := range d.Parameters {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func (g *Gateway) sessionsForParameter(parameter string) []*session.DeviceSession {
	var matches []*session.DeviceSession
	for _, sess := range g.Sessions.All() {
		if sess.Descriptor == nil {
			continue
		}
		if _, ok := sess.Descriptor.Parameters[parameter]; ok {
			matches = append(matches, sess)
		}
	}
	return matches
}
