// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Command ingestdoc runs the documentation-ingestion pipeline over one
// file and persists the resulting descriptor into an existing gateway's
// storage directory, without starting the long-lived gatewayd process.
package main

import (
	"fmt"
	"os"

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
	fs := pflag.NewFlagSet("ingestdoc", pflag.ContinueOnError)
	confDir := fs.String("conf-dir", "", "directory holding configuration.toml (default ./res)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: ingestdoc [--conf-dir DIR] DOCUMENT_PATH")
	}
	docPath := fs.Arg(0)

	cfg, err := config.Load(*confDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer gw.Close()

	facade := toolsurface.New(gw)
	desc, err := facade.IngestDocument(docPath)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", docPath, err)
	}

	fmt.Printf("device_id=%s manufacturer=%q model=%q protocol=%q parameters=%d partial=%t\n",
		desc.DeviceID, desc.Manufacturer, desc.Model, desc.ProtocolName, len(desc.Parameters), desc.Partial)
	return nil
}
