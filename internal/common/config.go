// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2017-2018 Canonical Ltd
// Copyright (C) 2018 IOTech Ltd
//
// SPDX-License-Identifier: Apache-2.0

package common

// Config is the flat, enumerated configuration object for the gateway
// process. It is loaded once at startup and never mutated afterward — no
// option changes at runtime.
type Config struct {
	Host                string `toml:"host"`
	ListenPort          int    `toml:"listen_port"`
	MCPPort             int    `toml:"mcp_port"`
	BACnetPort          int    `toml:"bacnet_port"`
	ModbusPort          int    `toml:"modbus_port"`
	DiscoveryTimeoutMs  int    `toml:"discovery_timeout_ms"`
	MaxDiscoveryAttempts int   `toml:"max_discovery_attempts"`
	LogLevel            string `toml:"log_level"`
	StorageDir          string `toml:"storage_dir"`
}

// Default returns the configuration used when no file is present, with
// the standard BACnet/IP and Modbus/TCP default ports.
func Default() *Config {
	return &Config{
		Host:                 "0.0.0.0",
		ListenPort:           8080,
		MCPPort:              8765,
		BACnetPort:           47808,
		ModbusPort:           502,
		DiscoveryTimeoutMs:   3000,
		MaxDiscoveryAttempts: 3,
		LogLevel:             "info",
		StorageDir:           "./data",
	}
}
