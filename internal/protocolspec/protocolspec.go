// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package protocolspec holds the immutable per-protocol wire descriptions
// that drive the codecs and the connection manager's retry policy. A
// ProtocolSpec is never retro-edited; a protocol upgrade is a new entry
// under a new name.
package protocolspec

import "time"

// Transport identifies the underlying socket kind a protocol rides on.
type Transport string

const (
	TransportUDP Transport = "udp"
	TransportTCP Transport = "tcp"
)

// Discovery identifies how unknown devices of a protocol are found.
type Discovery string

const (
	DiscoveryBroadcastWhoIs Discovery = "broadcast-who-is"
	DiscoveryHTTPProbe      Discovery = "http-probe"
	DiscoveryUnitIDProbe    Discovery = "unit-id-probe"
)

// ProtocolSpec is the immutable description of a wire protocol. Values are
// constructed once, at startup, from the static Registry below.
type ProtocolSpec struct {
	Name          string
	Transport     Transport
	DefaultPort   int
	Timeout       time.Duration
	RetryCount    int
	RetryBackoff  time.Duration
	Discovery     Discovery
}

const (
	NameBACnet = "BACnet"
	NameModbus = "Modbus"
	NameREST   = "REST"
)

// Registry is the static, startup-built set of known protocol specs. It is
// never mutated after gateway.New returns.
var Registry = map[string]ProtocolSpec{
	NameBACnet: {
		Name:         NameBACnet,
		Transport:    TransportUDP,
		DefaultPort:  47808,
		Timeout:      3 * time.Second,
		RetryCount:   3,
		RetryBackoff: 250 * time.Millisecond,
		Discovery:    DiscoveryBroadcastWhoIs,
	},
	NameModbus: {
		Name:         NameModbus,
		Transport:    TransportTCP,
		DefaultPort:  502,
		Timeout:      2 * time.Second,
		RetryCount:   3,
		RetryBackoff: 200 * time.Millisecond,
		Discovery:    DiscoveryUnitIDProbe,
	},
	NameREST: {
		Name:         NameREST,
		Transport:    TransportTCP,
		DefaultPort:  80,
		Timeout:      5 * time.Second,
		RetryCount:   2,
		RetryBackoff: 300 * time.Millisecond,
		Discovery:    DiscoveryHTTPProbe,
	},
}

// Lookup returns the named protocol spec and whether it exists.
func Lookup(name string) (ProtocolSpec, bool) {
	s, ok := Registry[name]
	return s, ok
}

// Backoff returns the delay before the given zero-based retry attempt,
// starting from RetryBackoff and doubling with each attempt.
func (p ProtocolSpec) Backoff(attempt int) time.Duration {
	d := p.RetryBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}
