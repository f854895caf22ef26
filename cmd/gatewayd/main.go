// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Command gatewayd runs the protocol gateway as a long-lived process:
// it loads configuration, wires the gateway composition root, and serves
// /healthz and /metrics until an OS signal requests a graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circutor-labs/protogateway/internal/config"
	"github.com/circutor-labs/protogateway/internal/gateway"
	"github.com/circutor-labs/protogateway/internal/toolsurface"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("gatewayd", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	confDir := fs.String("conf-dir", "", "directory holding configuration.toml (default ./res)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	cfg, err := config.Load(*confDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	overlay := pflag.NewFlagSet("gatewayd-overlay", pflag.ContinueOnError)
	config.FlagSet(overlay, cfg)
	overlay.String("conf-dir", *confDir, "directory holding configuration.toml (default ./res)")
	if err := overlay.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer gw.Close()

	// Constructed even though gatewayd exposes no transport of its own:
	// it is the same facade an HTTP or MCP front end would wrap, and
	// building it here proves the gateway is in a state the tool surface
	// can actually drive before the process starts serving traffic.
	_ = toolsurface.New(gw)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.ListenPort),
		Handler:      gw.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	serveErr := make(chan error, 1)
	go func() {
		gw.Log.Info().Str("addr", httpServer.Addr).Msg("gatewayd listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("gatewayd server failed: %w", err)
	case <-stop:
	}

	gw.Log.Info().Msg("shutting down gatewayd")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
