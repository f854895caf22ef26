// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package common holds the error taxonomy, logging setup, and configuration
// types shared by every other package in the gateway.
package common

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which branch of the error taxonomy an error belongs to,
// independent of its message text.
type Kind string

const (
	KindTransport         Kind = "transport"
	KindDecode             Kind = "decode"
	KindProtocolException Kind = "protocol_exception"
	KindUnknownDevice      Kind = "unknown_device"
	KindUnknownParameter   Kind = "unknown_parameter"
	KindOutOfRange         Kind = "out_of_range"
	KindInvariantViolation Kind = "invariant_violation"
	KindCancelled          Kind = "cancelled"
)

// GatewayError is the common shape for every error surfaced across a
// component boundary: a stable kind tag plus a human-readable message,
// wrapping an optional cause.
type GatewayError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *GatewayError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Kind reports the taxonomy bucket this error falls into.
func (e *GatewayError) Kind() Kind { return e.kind }

// Unwrap lets errors.Is / errors.As traverse into the wrapped cause.
func (e *GatewayError) Unwrap() error { return e.cause }

func newErr(kind Kind, msg string, cause error) *GatewayError {
	return &GatewayError{kind: kind, msg: msg, cause: cause}
}

// NewTransportError reports an unreachable host, timeout, reset connection,
// or otherwise malformed transport-level exchange.
func NewTransportError(msg string, cause error) *GatewayError {
	return newErr(KindTransport, msg, errors.WithStack(cause))
}

// NewDecodeError reports a frame that fails structural validation.
func NewDecodeError(msg string, cause error) *GatewayError {
	return newErr(KindDecode, msg, cause)
}

// NewProtocolException reports a well-formed error response from the peer
// (BACnet error PDU, Modbus exception, HTTP 4xx/5xx). code is the
// protocol-specific numeric code, stored for the caller to inspect.
type ProtocolException struct {
	*GatewayError
	Code int
}

func NewProtocolException(msg string, code int) *ProtocolException {
	return &ProtocolException{GatewayError: newErr(KindProtocolException, msg, nil), Code: code}
}

// NewUnknownDevice reports that the resolver could not reach the
// acceptance threshold for a fingerprint.
func NewUnknownDevice(msg string) *GatewayError {
	return newErr(KindUnknownDevice, msg, nil)
}

// NewUnknownParameter reports that a requested parameter name is absent
// from the device descriptor.
func NewUnknownParameter(name string) *GatewayError {
	return newErr(KindUnknownParameter, fmt.Sprintf("parameter %q not found", name), nil)
}

// NewOutOfRange reports a write value outside a parameter's error_range.
func NewOutOfRange(parameter string, value float64) *GatewayError {
	return newErr(KindOutOfRange, fmt.Sprintf("value %v for %q is outside the permitted range", value, parameter), nil)
}

// NewInvariantViolation reports a descriptor that fails structural validation.
func NewInvariantViolation(msg string) *GatewayError {
	return newErr(KindInvariantViolation, msg, nil)
}

// NewCancelled reports that the caller's deadline elapsed before the
// operation completed.
func NewCancelled(msg string) *GatewayError {
	return newErr(KindCancelled, msg, nil)
}

// IsKind reports whether err (or any error it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.kind == kind
	}
	var pe *ProtocolException
	if errors.As(err, &pe) {
		return pe.kind == kind
	}
	return false
}
