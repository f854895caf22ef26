// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package session owns the lifecycle of per-device connections: opening,
// retrying, timing out, and closing. A DeviceSession is a state machine;
// Manager is the constructed, owned registry of every live session —
// there is no package-level session table.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/protocolspec"
	"github.com/google/uuid"
)

// State is one node of the DeviceSession state machine.
type State string

const (
	StateNew        State = "NEW"
	StateConnecting State = "CONNECTING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
	StateClosed     State = "CLOSED"
)

// Reading is one observed (parameter, value) pair retained in a session's
// rolling history.
type Reading struct {
	At        time.Time
	Parameter string
	Value     float64
}

const historyCapacity = 10

// Transport is whatever a protocol codec needs to exchange bytes with a
// device; C1 codecs implement it, and C2 only depends on Connect/Close.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
}

// DeviceSession is the runtime state of one active connection.
type DeviceSession struct {
	mu sync.Mutex

	ID         string
	Protocol   string
	Address    string
	Descriptor *descriptor.DeviceDescriptor
	Transport  Transport

	state          State
	openedAt       time.Time
	lastActivityAt time.Time
	errorCount     int

	invokeID      byte // BACnet invoke id / Modbus transaction id, session-local
	history       []Reading
	inFlight      bool
}

// State reports the session's current lifecycle state.
func (s *DeviceSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextInvokeID returns the next session-local invoke id / transaction id,
// wrapping modulo its one-byte field width.
func (s *DeviceSession) NextInvokeID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokeID++
	return s.invokeID
}

// History returns a snapshot of the reading ring buffer, oldest first.
func (s *DeviceSession) History() []Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reading, len(s.history))
	copy(out, s.history)
	return out
}

// RecordReading appends a (parameter, value) observation, trimming the
// buffer to its fixed capacity and keeping timestamps non-decreasing by
// construction (observations are appended in the order they occur).
func (s *DeviceSession) RecordReading(parameter string, value float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Reading{At: at, Parameter: parameter, Value: value})
	if len(s.history) > historyCapacity {
		s.history = s.history[len(s.history)-historyCapacity:]
	}
	s.lastActivityAt = at
}

// beginOperation serializes operations within one session: a new read must
// not be issued while a previous one is in flight.
func (s *DeviceSession) beginOperation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *DeviceSession) endOperation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

func (s *DeviceSession) transitionTo(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *DeviceSession) recordFailure(budget int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	if s.errorCount > budget {
		s.state = StateFailed
	}
	return s.state
}
