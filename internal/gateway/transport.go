// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"

	"github.com/circutor-labs/protogateway/internal/codec/bacnet"
	"github.com/circutor-labs/protogateway/internal/codec/modbus"
	"github.com/circutor-labs/protogateway/internal/codec/rest"
	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/protocolspec"
	"github.com/circutor-labs/protogateway/internal/session"
)

// defaultUnitID is the Modbus slave id used when a descriptor doesn't
// carry one of its own; single-unit TCP gateways (the common case for
// the devices this module targets) all answer on unit 1.
const defaultUnitID byte = 1

// restTransport adapts rest.Client, which is stateless HTTP and so has
// no connect/disconnect lifecycle of its own, to session.Transport. Both
// Connect and Close are no-ops; reachability is only proven by the first
// actual Read/Write, the same way an HTTP client never dials ahead of
// the request that needs the connection.
type restTransport struct {
	client *rest.Client
}

func (t *restTransport) Connect(ctx context.Context) error {
	return nil
}

func (t *restTransport) Close() error {
	return nil
}

// OpenSession opens (or reuses) a live session for desc at address,
// choosing the transport and handshake implied by desc.ProtocolName.
// Only BACnet sessions get a handshake: a Who-Is is sent and any reply
// counts as success, without decoding it as an I-Am. Modbus sessions are
// READY once the TCP connect succeeds, and REST sessions as soon as their
// no-op Connect returns; neither performs a probe read.
func (g *Gateway) OpenSession(ctx context.Context, address string, desc *descriptor.DeviceDescriptor) (*session.DeviceSession, error) {
	spec, ok := protocolspec.Lookup(desc.ProtocolName)
	if !ok {
		return nil, common.NewInvariantViolation(fmt.Sprintf("unknown protocol %q", desc.ProtocolName))
	}

	switch desc.ProtocolName {
	case protocolspec.NameModbus:
		transport := modbus.NewTransport(address, defaultUnitID, spec.Timeout)
		return g.Sessions.Open(ctx, desc.ProtocolName, address, desc, transport, nil)

	case protocolspec.NameBACnet:
		transport := bacnet.NewTransport(address, spec.Timeout)
		handshake := func(ctx context.Context) error {
			_, err := transport.Send(ctx, bacnet.EncodeWhoIs())
			return err
		}
		return g.Sessions.Open(ctx, desc.ProtocolName, address, desc, transport, handshake)

	case protocolspec.NameREST:
		client := rest.NewClient(address, rest.Auth{Mode: rest.AuthNone}, spec.Timeout)
		transport := &restTransport{client: client}
		return g.Sessions.Open(ctx, desc.ProtocolName, address, desc, transport, nil)

	default:
		return nil, common.NewInvariantViolation(fmt.Sprintf("no transport wired for protocol %q", desc.ProtocolName))
	}
}
