// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the gateway's flat configuration object
// from a TOML file, with an optional command-line flag overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/pelletier/go-toml"
	"github.com/spf13/pflag"
)

const (
	defaultConfigDir  = "./res"
	defaultConfigFile = "configuration.toml"
)

// Load reads the local configuration file from confDir (defaulting to
// ./res) and returns the populated Config. A missing file is not an
// error — the gateway falls back to common.Default().
func Load(confDir string) (*common.Config, error) {
	if len(confDir) == 0 {
		confDir = defaultConfigDir
	}

	path := filepath.Join(confDir, defaultConfigFile)
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve absolute config path %s: %w", path, err)
	}

	return loadFromFile(absPath)
}

func loadFromFile(absPath string) (cfg *common.Config, err error) {
	cfg = common.Default()

	contents, readErr := os.ReadFile(absPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not load configuration file (%s): %w", absPath, readErr)
	}

	// go-toml can panic on malformed tables; recover and report a
	// structured error rather than crashing the process.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not load configuration file; invalid TOML (%s): %v", absPath, r)
		}
	}()

	if unmarshalErr := toml.Unmarshal(contents, cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("unable to parse configuration file (%s): %w", absPath, unmarshalErr)
	}

	return cfg, nil
}

// FlagSet registers pflag overlays for every Config field onto fs, seeded
// with cfg's current values as defaults. Call fs.Parse(os.Args[1:]) and
// the parsed values land directly in cfg.
func FlagSet(fs *pflag.FlagSet, cfg *common.Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "bind host")
	fs.IntVar(&cfg.ListenPort, "listen-port", cfg.ListenPort, "HTTP metrics/health listen port")
	fs.IntVar(&cfg.MCPPort, "mcp-port", cfg.MCPPort, "tool-surface listen port")
	fs.IntVar(&cfg.BACnetPort, "bacnet-port", cfg.BACnetPort, "BACnet/IP UDP port")
	fs.IntVar(&cfg.ModbusPort, "modbus-port", cfg.ModbusPort, "Modbus/TCP port")
	fs.IntVar(&cfg.DiscoveryTimeoutMs, "discovery-timeout-ms", cfg.DiscoveryTimeoutMs, "device discovery timeout in ms")
	fs.IntVar(&cfg.MaxDiscoveryAttempts, "max-discovery-attempts", cfg.MaxDiscoveryAttempts, "max discovery retries")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "directory holding descriptors and vector index")
}
