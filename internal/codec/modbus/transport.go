// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package modbus

import (
	"context"
	"fmt"
	"time"

	"github.com/circutor-labs/protogateway/internal/common"
	goburrow "github.com/goburrow/modbus"
)

// Transport owns the TCP socket to one Modbus/TCP device, delegating the
// actual connect/send/timeout handling to goburrow/modbus's TCPClientHandler
// while this package retains ownership of PDU framing
// (EncodeRequest/DecodeResponse above). Each session owns its own
// Transport; there is no process-global device map.
type Transport struct {
	handler *goburrow.TCPClientHandler
	unitID  byte
}

// NewTransport builds (but does not yet connect) a Transport for the given
// "host:port" address and Modbus unit id, with the given request timeout.
func NewTransport(address string, unitID byte, timeout time.Duration) *Transport {
	handler := goburrow.NewTCPClientHandler(address)
	handler.Timeout = timeout
	handler.SlaveId = unitID
	return &Transport{handler: handler, unitID: unitID}
}

// Connect opens the TCP socket, with no process-global device map.
func (t *Transport) Connect(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- t.handler.Connect() }()
	select {
	case err := <-errCh:
		if err != nil {
			return common.NewTransportError(fmt.Sprintf("modbus connect failed"), err)
		}
		return nil
	case <-ctx.Done():
		return common.NewCancelled("modbus connect cancelled before completion")
	}
}

// Close releases the TCP socket.
func (t *Transport) Close() error {
	return t.handler.Close()
}

// Send transmits a fully-framed MBAP+PDU request and returns the raw
// response bytes, honoring ctx's deadline by abandoning the in-flight read
// when it expires.
func (t *Transport) Send(ctx context.Context, aduRequest []byte) ([]byte, error) {
	type result struct {
		resp []byte
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		resp, err := t.handler.Send(aduRequest)
		resCh <- result{resp, err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, common.NewTransportError("modbus send failed", res.err)
		}
		return res.resp, nil
	case <-ctx.Done():
		return nil, common.NewCancelled("modbus operation cancelled before response")
	}
}
