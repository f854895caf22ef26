// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	failConnects int32
	connects     int32
	closed       bool
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	atomic.AddInt32(&f.connects, 1)
	if atomic.AddInt32(&f.failConnects, -1) >= 0 {
		return common.NewTransportError("simulated connect failure", nil)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func testDescriptor() *descriptor.DeviceDescriptor {
	return &descriptor.DeviceDescriptor{DeviceID: "acme|th-100", Manufacturer: "Acme", Model: "TH-100"}
}

func TestManager_OpenReusesReadySessionForSameAddress(t *testing.T) {
	m := NewManager(zerolog.Nop())
	transport := &fakeTransport{}

	s1, err := m.Open(context.Background(), "Modbus", "10.0.0.5:502", testDescriptor(), transport, nil)
	require.NoError(t, err)
	assert.Equal(t, StateReady, s1.State())

	s2, err := m.Open(context.Background(), "Modbus", "10.0.0.5:502", testDescriptor(), transport, nil)
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)
}

func TestManager_OpenRetriesAfterConnectFailure(t *testing.T) {
	m := NewManager(zerolog.Nop())
	transport := &fakeTransport{failConnects: 1}

	s, err := m.Open(context.Background(), "Modbus", "10.0.0.6:502", testDescriptor(), transport, nil)
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())
	assert.GreaterOrEqual(t, transport.connects, int32(2))
}

func TestManager_OpenFailsAfterRetryBudgetExhausted(t *testing.T) {
	m := NewManager(zerolog.Nop())
	transport := &fakeTransport{failConnects: 100}

	_, err := m.Open(context.Background(), "BACnet", "10.0.0.7:47808", testDescriptor(), transport, nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindTransport))
}

func TestManager_CloseRemovesSessionAndReleasesTransport(t *testing.T) {
	m := NewManager(zerolog.Nop())
	transport := &fakeTransport{}

	s, err := m.Open(context.Background(), "REST", "10.0.0.8:8080", testDescriptor(), transport, nil)
	require.NoError(t, err)

	require.NoError(t, m.Close(s.ID))
	assert.True(t, transport.closed)
	_, ok := m.BySessionID(s.ID)
	assert.False(t, ok)
}

func TestSession_RecordReadingTrimsToCapacity(t *testing.T) {
	s := &DeviceSession{state: StateReady}
	base := time.Now()
	for i := 0; i < 15; i++ {
		s.RecordReading("temperature", float64(i), base.Add(time.Duration(i)*time.Second))
	}
	hist := s.History()
	require.Len(t, hist, historyCapacity)
	assert.Equal(t, float64(5), hist[0].Value)
	assert.Equal(t, float64(14), hist[len(hist)-1].Value)
}

func TestManager_WithOperationRejectsConcurrentUse(t *testing.T) {
	m := NewManager(zerolog.Nop())
	s := &DeviceSession{ID: "s1", state: StateReady}

	blockCh := make(chan struct{})
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- m.WithOperation(context.Background(), s, 3, func(ctx context.Context) error {
			<-blockCh
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	err := m.WithOperation(context.Background(), s, 3, func(ctx context.Context) error { return nil })
	require.Error(t, err)

	close(blockCh)
	require.NoError(t, <-doneCh)
}

func TestManager_WithOperationTransitionsToFailedAfterBudget(t *testing.T) {
	m := NewManager(zerolog.Nop())
	s := &DeviceSession{ID: "s2", state: StateReady}

	for i := 0; i < 3; i++ {
		_ = m.WithOperation(context.Background(), s, 2, func(ctx context.Context) error {
			return common.NewTransportError("boom", nil)
		})
	}
	assert.Equal(t, StateFailed, s.State())
}

func TestManager_SweepClosesIdleSessions(t *testing.T) {
	m := NewManager(zerolog.Nop())
	transport := &fakeTransport{}

	s, err := m.Open(context.Background(), "REST", "10.0.0.9:8080", testDescriptor(), transport, nil)
	require.NoError(t, err)
	s.lastActivityAt = time.Now().Add(-time.Hour)

	closed := m.Sweep(time.Minute, time.Now())
	assert.Equal(t, 1, closed)
	_, ok := m.BySessionID(s.ID)
	assert.False(t, ok)
}
