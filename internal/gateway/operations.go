// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/circutor-labs/protogateway/internal/codec"
	"github.com/circutor-labs/protogateway/internal/codec/bacnet"
	"github.com/circutor-labs/protogateway/internal/codec/modbus"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/protocolspec"
	"github.com/circutor-labs/protogateway/internal/session"
)

const defaultRetryBudget = 3

// Read performs a read of parameter against the session's device,
// recording the observed value into the session's reading history on
// success so the anomaly detector's drift/pattern strategies see it.
func (g *Gateway) Read(ctx context.Context, sessionID, parameter string) (codec.TypedValue, error) {
	sess, ok := g.Sessions.BySessionID(sessionID)
	if !ok {
		return codec.TypedValue{}, common.NewUnknownDevice(fmt.Sprintf("no session %q", sessionID))
	}
	spec, ok := sess.Descriptor.Parameters[parameter]
	if !ok {
		return codec.TypedValue{}, common.NewUnknownParameter(parameter)
	}

	var result codec.TypedValue
	err := g.Sessions.WithOperation(ctx, sess, defaultRetryBudget, func(ctx context.Context) error {
		v, err := g.readParameter(ctx, sess, spec)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return codec.TypedValue{}, err
	}

	sess.RecordReading(parameter, result.AsFloat64(), time.Now())
	g.metrics.observeRead(sess.Protocol)
	return result, nil
}

// Write performs a write of value against parameter on the session's
// device. Parameters addressed as a read-only space (input register,
// discrete input) reject the write up front rather than attempting one
// the device would refuse anyway.
func (g *Gateway) Write(ctx context.Context, sessionID, parameter string, value codec.TypedValue) error {
	sess, ok := g.Sessions.BySessionID(sessionID)
	if !ok {
		return common.NewUnknownDevice(fmt.Sprintf("no session %q", sessionID))
	}
	spec, ok := sess.Descriptor.Parameters[parameter]
	if !ok {
		return common.NewUnknownParameter(parameter)
	}

	err := g.Sessions.WithOperation(ctx, sess, defaultRetryBudget, func(ctx context.Context) error {
		return g.writeParameter(ctx, sess, spec, value)
	})
	if err != nil {
		return err
	}

	sess.RecordReading(parameter, value.AsFloat64(), time.Now())
	g.metrics.observeWrite(sess.Protocol)
	return nil
}

func (g *Gateway) readParameter(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec) (codec.TypedValue, error) {
	switch sess.Protocol {
	case protocolspec.NameModbus:
		return readModbus(ctx, sess, spec)
	case protocolspec.NameBACnet:
		return readBACnet(ctx, sess, spec)
	case protocolspec.NameREST:
		return readREST(ctx, sess, spec)
	default:
		return codec.TypedValue{}, common.NewInvariantViolation(fmt.Sprintf("no read path for protocol %q", sess.Protocol))
	}
}

func (g *Gateway) writeParameter(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec, value codec.TypedValue) error {
	switch sess.Protocol {
	case protocolspec.NameModbus:
		return writeModbus(ctx, sess, spec, value)
	case protocolspec.NameBACnet:
		return writeBACnet(ctx, sess, spec, value)
	case protocolspec.NameREST:
		return writeREST(ctx, sess, spec, value)
	default:
		return common.NewInvariantViolation(fmt.Sprintf("no write path for protocol %q", sess.Protocol))
	}
}

func readModbus(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec) (codec.TypedValue, error) {
	hint := spec.Addressing.ModbusRegister
	if hint == nil {
		return codec.TypedValue{}, common.NewInvariantViolation(fmt.Sprintf("parameter %q has no modbus_register addressing", spec.Name))
	}
	transport, ok := sess.Transport.(*modbus.Transport)
	if !ok {
		return codec.TypedValue{}, common.NewInvariantViolation("modbus session has a non-modbus transport")
	}

	wireAddr, err := modbus.WireAddress(string(hint.Space), hint.Address)
	if err != nil {
		return codec.TypedValue{}, err
	}

	txID := uint16(sess.NextInvokeID())
	var function byte
	quantity := uint16(2)
	switch hint.Space {
	case descriptor.SpaceHoldingRegister:
		function = modbus.FuncReadHoldingRegisters
	case descriptor.SpaceInputRegister:
		function = modbus.FuncReadInputRegisters
	case descriptor.SpaceCoil:
		function, quantity = modbus.FuncReadCoils, 1
	case descriptor.SpaceDiscreteInput:
		function, quantity = modbus.FuncReadDiscreteInputs, 1
	}

	req := modbus.EncodeReadRequest(txID, defaultUnitID, function, wireAddr, quantity)
	frame, err := transport.Send(ctx, req)
	if err != nil {
		return codec.TypedValue{}, err
	}
	resp, err := modbus.DecodeResponse(frame)
	if err != nil {
		return codec.TypedValue{}, err
	}
	if resp.IsException {
		return codec.TypedValue{}, modbus.ToProtocolException(resp.Function, resp.Exception)
	}

	if hint.Space == descriptor.SpaceCoil || hint.Space == descriptor.SpaceDiscreteInput {
		on := len(resp.Payload) >= 2 && resp.Payload[1]&0x01 != 0
		return codec.TypedValue{Kind: codec.KindBool, Bool: on, Unit: spec.Unit}, nil
	}

	regs, err := modbus.DecodeReadRegisters(resp.Payload)
	if err != nil {
		return codec.TypedValue{}, err
	}
	if len(regs) < 2 {
		return codec.TypedValue{}, common.NewDecodeError("modbus register read returned fewer than 2 registers", nil)
	}
	f := modbus.DecodeFloat([2]uint16{regs[0], regs[1]}, hint.Scale)
	return codec.TypedValue{Kind: codec.KindFloat, Float: f, Unit: spec.Unit}, nil
}

func writeModbus(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec, value codec.TypedValue) error {
	hint := spec.Addressing.ModbusRegister
	if hint == nil {
		return common.NewInvariantViolation(fmt.Sprintf("parameter %q has no modbus_register addressing", spec.Name))
	}
	transport, ok := sess.Transport.(*modbus.Transport)
	if !ok {
		return common.NewInvariantViolation("modbus session has a non-modbus transport")
	}

	wireAddr, err := modbus.WireAddress(string(hint.Space), hint.Address)
	if err != nil {
		return err
	}

	txID := uint16(sess.NextInvokeID())
	var req []byte
	switch hint.Space {
	case descriptor.SpaceHoldingRegister:
		regs := modbus.EncodeFloat(value.AsFloat64(), hint.Scale)
		// a single-register write only carries the low word; the high
		// word is written first as a separate single-register write so
		// both halves land before the device latches the value.
		req = modbus.EncodeWriteSingleRegister(txID, defaultUnitID, wireAddr, regs[0])
		if _, err := transport.Send(ctx, req); err != nil {
			return err
		}
		req = modbus.EncodeWriteSingleRegister(uint16(sess.NextInvokeID()), defaultUnitID, wireAddr+1, regs[1])
	case descriptor.SpaceCoil:
		req = modbus.EncodeWriteSingleCoil(txID, defaultUnitID, wireAddr, value.AsFloat64() != 0)
	default:
		return common.NewInvariantViolation(fmt.Sprintf("modbus address space %q is read-only", hint.Space))
	}

	frame, err := transport.Send(ctx, req)
	if err != nil {
		return err
	}
	resp, err := modbus.DecodeResponse(frame)
	if err != nil {
		return err
	}
	if resp.IsException {
		return modbus.ToProtocolException(resp.Function, resp.Exception)
	}
	return nil
}

func readBACnet(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec) (codec.TypedValue, error) {
	hint := spec.Addressing.BACnetObject
	if hint == nil {
		return codec.TypedValue{}, common.NewInvariantViolation(fmt.Sprintf("parameter %q has no bacnet_object addressing", spec.Name))
	}
	transport, ok := sess.Transport.(*bacnet.Transport)
	if !ok {
		return codec.TypedValue{}, common.NewInvariantViolation("bacnet session has a non-bacnet transport")
	}

	invokeID := sess.NextInvokeID()
	object := bacnet.ObjectID{Type: bacnet.ObjectType(hint.ObjectType), Instance: uint32(hint.Instance)}
	req := bacnet.EncodeReadProperty(invokeID, object, byte(hint.PropertyID))

	frame, err := transport.Send(ctx, req)
	if err != nil {
		return codec.TypedValue{}, err
	}
	ack, err := bacnet.DecodeAck(frame, invokeID)
	if err != nil {
		return codec.TypedValue{}, err
	}
	f, err := bacnet.DecodeReadPropertyValue(ack.Payload)
	if err != nil {
		return codec.TypedValue{}, err
	}
	return codec.TypedValue{Kind: codec.KindFloat, Float: f, Unit: spec.Unit}, nil
}

func writeBACnet(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec, value codec.TypedValue) error {
	hint := spec.Addressing.BACnetObject
	if hint == nil {
		return common.NewInvariantViolation(fmt.Sprintf("parameter %q has no bacnet_object addressing", spec.Name))
	}
	transport, ok := sess.Transport.(*bacnet.Transport)
	if !ok {
		return common.NewInvariantViolation("bacnet session has a non-bacnet transport")
	}

	invokeID := sess.NextInvokeID()
	object := bacnet.ObjectID{Type: bacnet.ObjectType(hint.ObjectType), Instance: uint32(hint.Instance)}
	req := bacnet.EncodeWriteProperty(invokeID, object, byte(hint.PropertyID), float32(value.AsFloat64()))

	frame, err := transport.Send(ctx, req)
	if err != nil {
		return err
	}
	_, err = bacnet.DecodeAck(frame, invokeID)
	return err
}

func readREST(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec) (codec.TypedValue, error) {
	transport, ok := sess.Transport.(*restTransport)
	if !ok {
		return codec.TypedValue{}, common.NewInvariantViolation("rest session has a non-rest transport")
	}
	if spec.Addressing.RESTPath == "" {
		return codec.TypedValue{}, common.NewInvariantViolation(fmt.Sprintf("parameter %q has no rest_path addressing", spec.Name))
	}
	return transport.client.Read(ctx, spec.Addressing.RESTPath, spec.Unit)
}

func writeREST(ctx context.Context, sess *session.DeviceSession, spec descriptor.ParameterSpec, value codec.TypedValue) error {
	transport, ok := sess.Transport.(*restTransport)
	if !ok {
		return common.NewInvariantViolation("rest session has a non-rest transport")
	}
	if spec.Addressing.RESTPath == "" {
		return common.NewInvariantViolation(fmt.Sprintf("parameter %q has no rest_path addressing", spec.Name))
	}
	return transport.client.Write(ctx, spec.Addressing.RESTPath, value)
}
