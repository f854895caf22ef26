// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"regexp"
	"strings"
)

// Identity is the set of identity fields recovered from a document's text.
type Identity struct {
	Manufacturer string
	Model        string
	DeviceType   string
	ProtocolName string
}

// The label patterns below mirror the label-sweep catalogue from the Python
// reference's _extract_device_info: a short list of label synonyms tried
// in order, first match wins.
var manufacturerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)manufacturer[:\s]+([A-Za-z][A-Za-z\s&]*)`),
	regexp.MustCompile(`(?i)brand[:\s]+([A-Za-z][A-Za-z\s&]*)`),
	regexp.MustCompile(`(?i)company[:\s]+([A-Za-z][A-Za-z\s&]*)`),
}

var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)model[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)part number[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)product[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
}

var protocolPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)protocol[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)communication[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)interface[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
}

var deviceTypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)device type[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)product type[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
	regexp.MustCompile(`(?i)category[:\s]+([A-Za-z0-9][A-Za-z0-9\s\-_]*)`),
}

// firstMatch returns the trimmed first capture group from the first
// pattern in patterns that matches text, to end of line.
func firstMatch(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		for _, line := range strings.Split(text, "\n") {
			if m := p.FindStringSubmatch(line); m != nil {
				return strings.TrimSpace(m[1]), true
			}
		}
	}
	return "", false
}

// normalizeProtocol folds vendor-specific spellings into the canonical
// protocol set REST, BACnet, Modbus, OPC-UA.
func normalizeProtocol(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "bacnet"):
		return "BACnet"
	case strings.Contains(lower, "modbus"):
		return "Modbus"
	case strings.Contains(lower, "rest"), strings.Contains(lower, "http"):
		return "REST"
	case strings.Contains(lower, "opc"):
		return "OPC-UA"
	default:
		return strings.TrimSpace(raw)
	}
}

// ExtractIdentity sweeps text for manufacturer, model, device type, and
// protocol using the label-pattern catalogue. Any field not located is
// left empty; the caller marks the resulting descriptor partial.
func ExtractIdentity(text string) Identity {
	var id Identity
	if m, ok := firstMatch(text, manufacturerPatterns); ok {
		id.Manufacturer = m
	}
	if m, ok := firstMatch(text, modelPatterns); ok {
		id.Model = m
	}
	if m, ok := firstMatch(text, deviceTypePatterns); ok {
		id.DeviceType = strings.ToLower(m)
	}
	if m, ok := firstMatch(text, protocolPatterns); ok {
		id.ProtocolName = normalizeProtocol(m)
	}
	return id
}
