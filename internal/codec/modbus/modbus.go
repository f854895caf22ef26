// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package modbus implements the Modbus/TCP PDU layer: MBAP framing, the
// six supported function codes, address-space translation, and the
// two-register float encoding. The codec is pure — it holds no state of
// its own; the transaction-id counter lives on the caller's session, so
// codecs stay stateless modulo the invoke_id/transaction_id counters the
// connection manager owns per session.
//
// The function-code set, MBAP header layout, and exception-code table are
// grounded on github.com/goburrow/modbus and cross-checked against the
// grid-x/modbus reference implementation.
package modbus

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/circutor-labs/protogateway/internal/common"
)

// Function codes.
const (
	FuncReadCoils            byte = 0x01
	FuncReadDiscreteInputs   byte = 0x02
	FuncReadHoldingRegisters byte = 0x03
	FuncReadInputRegisters   byte = 0x04
	FuncWriteSingleCoil      byte = 0x05
	FuncWriteSingleRegister  byte = 0x06

	exceptionBit byte = 0x80
)

// ExceptionCode is the one-byte code a peer returns alongside (function |
// 0x80) when it rejects a request.
type ExceptionCode byte

const (
	ExcIllegalFunction        ExceptionCode = 0x01
	ExcIllegalDataAddress     ExceptionCode = 0x02
	ExcIllegalDataValue       ExceptionCode = 0x03
	ExcSlaveDeviceFailure     ExceptionCode = 0x04
	ExcAcknowledge            ExceptionCode = 0x05
	ExcSlaveDeviceBusy        ExceptionCode = 0x06
	ExcMemoryParityError      ExceptionCode = 0x08
	ExcGatewayPathUnavailable ExceptionCode = 0x0A
	ExcGatewayTargetFailed    ExceptionCode = 0x0B
)

var exceptionNames = map[ExceptionCode]string{
	ExcIllegalFunction:        "illegal function",
	ExcIllegalDataAddress:     "illegal data address",
	ExcIllegalDataValue:       "illegal data value",
	ExcSlaveDeviceFailure:     "slave device failure",
	ExcAcknowledge:            "acknowledge",
	ExcSlaveDeviceBusy:        "slave device busy",
	ExcMemoryParityError:      "memory parity error",
	ExcGatewayPathUnavailable: "gateway path unavailable",
	ExcGatewayTargetFailed:    "gateway target device failed",
}

func (c ExceptionCode) String() string {
	if n, ok := exceptionNames[c]; ok {
		return n
	}
	return "unknown exception"
}

// MBAPHeader is the 7-byte Modbus Application Protocol header prefixed to
// every TCP PDU.
type MBAPHeader struct {
	TransactionID uint16
	ProtocolID    uint16 // always 0
	Length        uint16 // byte count of UnitID + PDU that follows
	UnitID        byte
}

const mbapHeaderLen = 7

// EncodeRequest builds the MBAP+PDU bytes for a read/write request. data is
// the function-specific payload (address+quantity, or address+value).
func EncodeRequest(transactionID uint16, unitID byte, function byte, data []byte) []byte {
	pduLen := 1 + len(data) // function code + data
	hdr := MBAPHeader{
		TransactionID: transactionID,
		ProtocolID:    0,
		Length:        uint16(1 + pduLen), // unit id + pdu
		UnitID:        unitID,
	}
	buf := make([]byte, mbapHeaderLen+pduLen)
	binary.BigEndian.PutUint16(buf[0:2], hdr.TransactionID)
	binary.BigEndian.PutUint16(buf[2:4], hdr.ProtocolID)
	binary.BigEndian.PutUint16(buf[4:6], hdr.Length)
	buf[6] = hdr.UnitID
	buf[7] = function
	copy(buf[8:], data)
	return buf
}

// EncodeReadRequest builds a read request for one of the four read
// function codes, over the given zero-based wire address and quantity.
func EncodeReadRequest(transactionID uint16, unitID byte, function byte, address, quantity uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], quantity)
	return EncodeRequest(transactionID, unitID, function, data)
}

// EncodeWriteSingleRegister builds a Write Single Register (0x06) request.
func EncodeWriteSingleRegister(transactionID uint16, unitID byte, address uint16, value uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], value)
	return EncodeRequest(transactionID, unitID, FuncWriteSingleRegister, data)
}

// EncodeWriteSingleCoil builds a Write Single Coil (0x05) request. Modbus
// represents an "on" coil as 0xFF00 and "off" as 0x0000.
func EncodeWriteSingleCoil(transactionID uint16, unitID byte, address uint16, on bool) []byte {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], value)
	return EncodeRequest(transactionID, unitID, FuncWriteSingleCoil, data)
}

// DecodedResponse is a structurally-valid Modbus/TCP response.
type DecodedResponse struct {
	TransactionID uint16
	UnitID        byte
	Function      byte
	IsException   bool
	Exception     ExceptionCode
	Payload       []byte // byte-count-stripped register/coil data, when not an exception
}

// DecodeResponse validates the MBAP header and splits out the PDU,
// recognizing exception responses (function code OR 0x80).
func DecodeResponse(frame []byte) (*DecodedResponse, error) {
	if len(frame) < mbapHeaderLen+1 {
		return nil, common.NewDecodeError(fmt.Sprintf("modbus frame too short: %d bytes", len(frame)), nil)
	}

	protocolID := binary.BigEndian.Uint16(frame[2:4])
	if protocolID != 0 {
		return nil, common.NewDecodeError(fmt.Sprintf("unexpected modbus protocol id %d", protocolID), nil)
	}
	length := binary.BigEndian.Uint16(frame[4:6])
	if int(length)+6 != len(frame) {
		return nil, common.NewDecodeError(fmt.Sprintf("modbus MBAP length mismatch: header says %d, frame is %d bytes", length, len(frame)), nil)
	}

	resp := &DecodedResponse{
		TransactionID: binary.BigEndian.Uint16(frame[0:2]),
		UnitID:        frame[6],
		Function:      frame[7],
	}

	if resp.Function&exceptionBit != 0 {
		if len(frame) < mbapHeaderLen+2 {
			return nil, common.NewDecodeError("modbus exception frame missing exception code", nil)
		}
		resp.IsException = true
		resp.Exception = ExceptionCode(frame[8])
		resp.Function &^= exceptionBit
		return resp, nil
	}

	resp.Payload = frame[8:]
	return resp, nil
}

// DecodeReadRegisters parses a read-holding/read-input response body
// (byte count + N big-endian 16-bit registers) into the raw register
// slice.
func DecodeReadRegisters(payload []byte) ([]uint16, error) {
	if len(payload) < 1 {
		return nil, common.NewDecodeError("modbus register response missing byte count", nil)
	}
	byteCount := int(payload[0])
	if len(payload) < 1+byteCount || byteCount%2 != 0 {
		return nil, common.NewDecodeError(fmt.Sprintf("modbus register response byte count mismatch: %d", byteCount), nil)
	}
	n := byteCount / 2
	regs := make([]uint16, n)
	for i := 0; i < n; i++ {
		regs[i] = binary.BigEndian.Uint16(payload[1+2*i : 3+2*i])
	}
	return regs, nil
}

// EncodeFloat encodes f as two big-endian 16-bit registers (high word
// first), scaled by scale and rounded to the nearest integer — scale is
// the factor recorded in the register entry, commonly ×100 to preserve
// two decimals.
func EncodeFloat(f float64, scale float64) [2]uint16 {
	scaled := int32(math.Round(f * scale))
	var regs [2]uint16
	regs[0] = uint16(uint32(scaled) >> 16)
	regs[1] = uint16(uint32(scaled))
	return regs
}

// DecodeFloat is the inverse of EncodeFloat: two big-endian 16-bit
// registers (high word first) recombined into a signed 32-bit value and
// divided by scale.
func DecodeFloat(regs [2]uint16, scale float64) float64 {
	raw := int32(uint32(regs[0])<<16 | uint32(regs[1]))
	return float64(raw) / scale
}

// WireAddress translates a logical Modbus address (input registers
// 30001–3xxxx, holding 40001–4xxxx, coils 1–n, discrete inputs 10001–n)
// to the zero-based address carried on the wire.
func WireAddress(space string, logicalAddress int) (uint16, error) {
	switch space {
	case "input_register":
		if logicalAddress < 30001 {
			return 0, common.NewDecodeError(fmt.Sprintf("input register address %d below 30001", logicalAddress), nil)
		}
		return uint16(logicalAddress - 30001), nil
	case "holding_register":
		if logicalAddress < 40001 {
			return 0, common.NewDecodeError(fmt.Sprintf("holding register address %d below 40001", logicalAddress), nil)
		}
		return uint16(logicalAddress - 40001), nil
	case "discrete_input":
		if logicalAddress < 10001 {
			return 0, common.NewDecodeError(fmt.Sprintf("discrete input address %d below 10001", logicalAddress), nil)
		}
		return uint16(logicalAddress - 10001), nil
	case "coil":
		if logicalAddress < 1 {
			return 0, common.NewDecodeError(fmt.Sprintf("coil address %d below 1", logicalAddress), nil)
		}
		return uint16(logicalAddress - 1), nil
	default:
		return 0, common.NewDecodeError(fmt.Sprintf("unknown modbus address space %q", space), nil)
	}
}

// ToProtocolException converts a decoded Modbus exception response into
// the gateway's common error taxonomy.
func ToProtocolException(function byte, code ExceptionCode) *common.ProtocolException {
	return common.NewProtocolException(
		fmt.Sprintf("modbus exception %#x (%s) on function %#x", byte(code), code, function),
		int(code),
	)
}
