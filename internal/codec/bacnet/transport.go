// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package bacnet

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/circutor-labs/protogateway/internal/common"
)

// Transport owns the UDP socket to one BACnet/IP device. Grounded on
// modbus.Transport's connect/send split, adapted from a TCP stream socket
// to a connected UDP datagram socket, since BACnet/IP frames are
// individually addressed datagrams rather than a byte stream.
type Transport struct {
	address string
	timeout time.Duration
	conn    *net.UDPConn
}

// NewTransport builds (but does not yet connect) a Transport for the
// given "host:port" BACnet/IP address.
func NewTransport(address string, timeout time.Duration) *Transport {
	return &Transport{address: address, timeout: timeout}
}

// Connect resolves and dials the UDP socket.
func (t *Transport) Connect(ctx context.Context) error {
	raddr, err := net.ResolveUDPAddr("udp", t.address)
	if err != nil {
		return common.NewTransportError("bacnet address resolution failed", err)
	}
	errCh := make(chan error, 1)
	var conn *net.UDPConn
	go func() {
		c, dialErr := net.DialUDP("udp", nil, raddr)
		conn = c
		errCh <- dialErr
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return common.NewTransportError("bacnet dial failed", err)
		}
		t.conn = conn
		return nil
	case <-ctx.Done():
		return common.NewCancelled("bacnet connect cancelled before completion")
	}
}

// Close releases the UDP socket.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// Send writes a fully-framed BVLC+NPDU+APDU datagram and returns the
// response datagram, honoring ctx's deadline.
func (t *Transport) Send(ctx context.Context, frame []byte) ([]byte, error) {
	if t.conn == nil {
		return nil, common.NewTransportError("bacnet send on unconnected transport", nil)
	}
	deadline := time.Now().Add(t.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = t.conn.SetDeadline(deadline)

	if _, err := t.conn.Write(frame); err != nil {
		return nil, common.NewTransportError("bacnet write failed", err)
	}

	buf := make([]byte, 1500)
	type result struct {
		n   int
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		n, err := t.conn.Read(buf)
		resCh <- result{n, err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, common.NewTransportError(fmt.Sprintf("bacnet read from %s failed", t.address), res.err)
		}
		return buf[:res.n], nil
	case <-ctx.Done():
		return nil, common.NewCancelled("bacnet operation cancelled before response")
	}
}
