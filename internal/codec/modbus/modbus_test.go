// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package modbus

import (
	"math"
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFloat_RoundTrip(t *testing.T) {
	for _, f := range []float64{22.5, -10.25, 0, 99.99, -0.01} {
		regs := EncodeFloat(f, 100)
		got := DecodeFloat(regs, 100)
		want := math.Round(f*100) / 100
		assert.InDelta(t, want, got, 1e-9, "round trip for %v", f)
	}
}

func TestWireAddress_TranslatesLogicalToZeroBased(t *testing.T) {
	addr, err := WireAddress("input_register", 30001)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), addr)

	addr, err = WireAddress("holding_register", 40010)
	require.NoError(t, err)
	assert.Equal(t, uint16(9), addr)

	addr, err = WireAddress("coil", 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), addr)
}

func TestWireAddress_RejectsOutOfSpaceAddress(t *testing.T) {
	_, err := WireAddress("input_register", 100)
	require.Error(t, err)
}

func TestEncodeReadRequest_BuildsValidMBAPFrame(t *testing.T) {
	frame := EncodeReadRequest(7, 1, FuncReadInputRegisters, 0, 2)
	require.Len(t, frame, mbapHeaderLen+5)
	assert.Equal(t, byte(0), frame[2]) // protocol id high byte
	assert.Equal(t, byte(0), frame[3])
	assert.Equal(t, FuncReadInputRegisters, frame[7])
}

func TestDecodeResponse_HappyPath(t *testing.T) {
	// transaction 7, unit 1, function 0x04, byte count 4, two registers
	frame := []byte{0, 7, 0, 0, 0, 7, 1, 0x04, 0x04, 0x00, 0x08, 0x09, 0xC4}
	resp, err := DecodeResponse(frame)
	require.NoError(t, err)
	assert.False(t, resp.IsException)
	assert.Equal(t, uint16(7), resp.TransactionID)

	regs, err := DecodeReadRegisters(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0008, 0x09C4}, regs)
}

func TestDecodeResponse_ExceptionPath(t *testing.T) {
	// function 0x04 | 0x80 = 0x84, exception code 0x02
	frame := []byte{0, 1, 0, 0, 0, 3, 1, 0x84, 0x02}
	resp, err := DecodeResponse(frame)
	require.NoError(t, err)
	require.True(t, resp.IsException)
	assert.Equal(t, ExcIllegalDataAddress, resp.Exception)

	pe := ToProtocolException(resp.Function, resp.Exception)
	assert.True(t, common.IsKind(pe, common.KindProtocolException))
	assert.Equal(t, int(ExcIllegalDataAddress), pe.Code)
}

func TestDecodeResponse_RejectsLengthMismatch(t *testing.T) {
	frame := []byte{0, 1, 0, 0, 0, 99, 1, 0x03, 0x00}
	_, err := DecodeResponse(frame)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindDecode))
}

func TestDecodeResponse_RejectsShortFrame(t *testing.T) {
	_, err := DecodeResponse([]byte{0, 1, 0, 0})
	require.Error(t, err)
}
