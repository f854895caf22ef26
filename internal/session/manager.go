// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/protocolspec"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handshake performs a protocol-specific probe after Transport.Connect
// succeeds, proving a freshly opened transport is serving the expected
// device. Open accepts a nil Handshake, in which case a successful
// Connect alone moves the session to READY.
type Handshake func(ctx context.Context) error

// Manager owns every live DeviceSession. It is a constructed component —
// callers build one per gateway instance, never a package-level registry.
type Manager struct {
	mu          sync.RWMutex
	bySessionID map[string]*DeviceSession
	byAddress   map[string]*DeviceSession // key: protocol+"|"+address
	log         zerolog.Logger
}

// NewManager returns an empty, ready-to-use session manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		bySessionID: make(map[string]*DeviceSession),
		byAddress:   make(map[string]*DeviceSession),
		log:         log,
	}
}

func addressKey(protocol, address string) string {
	return protocol + "|" + address
}

// Open returns the existing live session for (protocol, address) if one is
// READY or CONNECTING, or opens a fresh one: NEW -> CONNECTING -> READY on
// handshake success, CONNECTING -> FAILED on handshake failure after
// exhausting the ProtocolSpec's retry budget.
func (m *Manager) Open(ctx context.Context, protocol, address string, desc *descriptor.DeviceDescriptor, transport Transport, handshake Handshake) (*DeviceSession, error) {
	key := addressKey(protocol, address)

	m.mu.RLock()
	existing, ok := m.byAddress[key]
	m.mu.RUnlock()
	if ok {
		switch existing.State() {
		case StateReady, StateConnecting:
			return existing, nil
		}
	}

	spec, ok := protocolspec.Lookup(protocol)
	if !ok {
		return nil, common.NewInvariantViolation(fmt.Sprintf("unknown protocol %q", protocol))
	}

	sess := &DeviceSession{
		ID:         uuid.NewString(),
		Protocol:   protocol,
		Address:    address,
		Descriptor: desc,
		Transport:  transport,
		state:      StateNew,
		openedAt:   time.Now(),
	}

	m.mu.Lock()
	m.bySessionID[sess.ID] = sess
	m.byAddress[key] = sess
	m.mu.Unlock()

	sess.transitionTo(StateConnecting)
	if err := m.connectWithRetry(ctx, sess, spec, handshake); err != nil {
		sess.transitionTo(StateFailed)
		return nil, err
	}
	sess.transitionTo(StateReady)
	return sess, nil
}

func (m *Manager) connectWithRetry(ctx context.Context, sess *DeviceSession, spec protocolspec.ProtocolSpec, handshake Handshake) error {
	var lastErr error
	for attempt := 0; attempt <= spec.RetryCount; attempt++ {
		if err := sess.Transport.Connect(ctx); err == nil {
			if handshake == nil {
				return nil
			}
			if err := handshake(ctx); err == nil {
				return nil
			} else {
				lastErr = err
			}
		} else {
			lastErr = err
		}

		m.log.Debug().Str("session_id", sess.ID).Int("attempt", attempt+1).Msg("connection attempt failed, retrying")

		select {
		case <-time.After(spec.Backoff(attempt)):
		case <-ctx.Done():
			return common.NewCancelled("session open cancelled before handshake completed")
		}
	}
	return common.NewTransportError(fmt.Sprintf("handshake with %s at %s failed after %d attempts", sess.Protocol, sess.Address, spec.RetryCount+1), lastErr)
}

// Count returns the number of currently tracked sessions, regardless of
// state (a FAILED session stays counted until a caller closes it).
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySessionID)
}

// All returns a snapshot of every currently tracked session.
func (m *Manager) All() []*DeviceSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*DeviceSession, 0, len(m.bySessionID))
	for _, s := range m.bySessionID {
		out = append(out, s)
	}
	return out
}

// BySessionID returns the session for id, if any.
func (m *Manager) BySessionID(id string) (*DeviceSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.bySessionID[id]
	return s, ok
}

// Close transitions a session to CLOSED, releases its transport, and
// removes it from both maps. FAILED sessions are terminal until a caller
// re-opens, which always allocates a fresh session id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.bySessionID[id]
	if !ok {
		m.mu.Unlock()
		return common.NewUnknownDevice(fmt.Sprintf("no session %q", id))
	}
	delete(m.bySessionID, id)
	delete(m.byAddress, addressKey(sess.Protocol, sess.Address))
	m.mu.Unlock()

	sess.transitionTo(StateClosed)
	return sess.Transport.Close()
}

// WithOperation serializes fn against concurrent operations on the same
// session and records a failure against the retry budget if fn errors. It
// reports ErrBusy-shaped behavior by returning an InvariantViolation when a
// read/write is already in flight, rather than silently queuing.
func (m *Manager) WithOperation(ctx context.Context, sess *DeviceSession, retryBudget int, fn func(ctx context.Context) error) error {
	if !sess.beginOperation() {
		return common.NewInvariantViolation(fmt.Sprintf("session %s already has an operation in flight", sess.ID))
	}
	defer sess.endOperation()

	err := fn(ctx)
	if err != nil {
		if common.IsKind(err, common.KindCancelled) {
			return err
		}
		sess.recordFailure(retryBudget)
		return err
	}
	sess.mu.Lock()
	sess.errorCount = 0
	sess.mu.Unlock()
	return nil
}

// Sweep closes every session idle beyond ttl, returning the number closed.
func (m *Manager) Sweep(ttl time.Duration, now time.Time) int {
	m.mu.RLock()
	var stale []string
	for id, s := range m.bySessionID {
		s.mu.Lock()
		idle := now.Sub(s.lastActivityAt)
		if s.lastActivityAt.IsZero() {
			idle = now.Sub(s.openedAt)
		}
		state := s.state
		s.mu.Unlock()
		if state == StateReady && idle > ttl {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		_ = m.Close(id)
	}
	return len(stale)
}
