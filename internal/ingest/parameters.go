// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/circutor-labs/protogateway/internal/descriptor"
)

// bacnetObjectPattern matches "<object_type> <instance> <name...>" triples,
// e.g. "AI 1 Zone Temperature" or "BV: 3 Fan Enable".
var bacnetObjectPattern = regexp.MustCompile(`(?i)\b(AI|AV|BI|BV|MSV)\b[:\s]+([0-9]+)[:\s]+([A-Za-z][A-Za-z0-9 _\-]*)`)

// restEndpointPattern matches "endpoint: /api/path" style lines, capturing
// the path and, when present, a leading parameter name.
var restEndpointPattern = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9_ ]*)\s*(?:endpoint|api|url)[:\s]+(/[A-Za-z0-9/_\-]+)`)

// modbusRegisterPattern matches "<name> <register> <space> [x<scale>]"
// table rows, e.g. "temperature 40001 holding x100".
var modbusRegisterPattern = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9_ ]*?)\s+(\d{4,6})\s+(input|holding|coil|discrete)(?:\s+x(\d+))?`)

// wideDefault returns a permissive, self-consistent (normal==warning==error)
// range for t when the document gives no explicit bound, per spec's
// "type-appropriate wide defaults" rule.
func wideDefault(t descriptor.ValueType) descriptor.Range {
	switch t {
	case descriptor.ValueBool:
		return descriptor.Range{Min: 0, Max: 1}
	case descriptor.ValueEnum:
		return descriptor.Range{Min: 0, Max: 255}
	default:
		return descriptor.Range{Min: -1e6, Max: 1e6}
	}
}

func paramWithDefaults(name string, t descriptor.ValueType, unit string) descriptor.ParameterSpec {
	r := wideDefault(t)
	return descriptor.ParameterSpec{
		Name:         name,
		Type:         t,
		Unit:         unit,
		NormalRange:  r,
		WarningRange: r,
		ErrorRange:   r,
	}
}

func slugify(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// ExtractBACnetParameters matches (object_type, instance, name) tuples
// from text and returns one ParameterSpec per match, addressed by the
// recovered object type and instance. property_id is fixed to 85
// (present-value), the only property this pipeline infers from prose.
func ExtractBACnetParameters(text string) map[string]descriptor.ParameterSpec {
	const presentValuePropertyID = 85
	out := make(map[string]descriptor.ParameterSpec)
	for _, m := range bacnetObjectPattern.FindAllStringSubmatch(text, -1) {
		objType := strings.ToUpper(m[1])
		instance, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		name := slugify(m[3])
		if name == "" {
			continue
		}
		p := paramWithDefaults(name, descriptor.ValueFloat, "")
		p.Addressing.BACnetObject = &descriptor.BACnetObjectHint{
			ObjectType: objType,
			Instance:   instance,
			PropertyID: presentValuePropertyID,
		}
		out[name] = p
	}
	return out
}

// ExtractRESTParameters matches "<name> endpoint: /path" lines and returns
// one ParameterSpec per distinct path.
func ExtractRESTParameters(text string) map[string]descriptor.ParameterSpec {
	out := make(map[string]descriptor.ParameterSpec)
	for _, m := range restEndpointPattern.FindAllStringSubmatch(text, -1) {
		name := slugify(m[1])
		path := strings.TrimSpace(m[2])
		if name == "" || path == "" {
			continue
		}
		p := paramWithDefaults(name, descriptor.ValueFloat, "")
		p.Addressing.RESTPath = path
		out[name] = p
	}
	return out
}

// ExtractModbusParameters matches register-table rows and returns one
// ParameterSpec per distinct name, addressed to the matched logical
// register and address space, scaled by the matched factor (default 1).
func ExtractModbusParameters(text string) map[string]descriptor.ParameterSpec {
	out := make(map[string]descriptor.ParameterSpec)
	for _, m := range modbusRegisterPattern.FindAllStringSubmatch(text, -1) {
		name := slugify(m[1])
		address, err := strconv.Atoi(m[2])
		if err != nil || name == "" {
			continue
		}
		space := registerSpaceFor(m[3])
		scale := 1.0
		if m[4] != "" {
			if s, err := strconv.Atoi(m[4]); err == nil && s > 0 {
				scale = float64(s)
			}
		}
		p := paramWithDefaults(name, descriptor.ValueFloat, "")
		p.Addressing.ModbusRegister = &descriptor.ModbusRegisterHint{
			Space:   space,
			Address: address,
			Scale:   scale,
		}
		out[name] = p
	}
	return out
}

func registerSpaceFor(word string) descriptor.RegisterSpace {
	switch strings.ToLower(word) {
	case "input":
		return descriptor.SpaceInputRegister
	case "holding":
		return descriptor.SpaceHoldingRegister
	case "coil":
		return descriptor.SpaceCoil
	case "discrete":
		return descriptor.SpaceDiscreteInput
	default:
		return descriptor.SpaceHoldingRegister
	}
}

// ExtractParameters dispatches to the protocol-appropriate extractor
// based on the already-identified protocol name.
func ExtractParameters(text, protocolName string) map[string]descriptor.ParameterSpec {
	switch protocolName {
	case "BACnet":
		return ExtractBACnetParameters(text)
	case "REST":
		return ExtractRESTParameters(text)
	case "Modbus":
		return ExtractModbusParameters(text)
	default:
		return map[string]descriptor.ParameterSpec{}
	}
}
