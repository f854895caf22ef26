// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package descriptor holds the learned "truth" about a device model — its
// parameters, error codes, maintenance schedule, and protocol-specific
// addressing — plus the validation and on-disk persistence of that data.
package descriptor

// ValueType is the declared type of a ParameterSpec's value.
type ValueType string

const (
	ValueFloat ValueType = "float"
	ValueInt   ValueType = "int"
	ValueBool  ValueType = "bool"
	ValueEnum  ValueType = "enum"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v falls within the closed interval, inclusive
// of both endpoints: a value exactly at a boundary belongs to the
// narrower range that contains it.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Empty reports whether the interval has no width. Every declared range
// must be non-empty.
func (r Range) Empty() bool {
	return r.Max <= r.Min
}

// Width returns Max - Min.
func (r Range) Width() float64 {
	return r.Max - r.Min
}

// Center returns the midpoint of the interval.
func (r Range) Center() float64 {
	return (r.Min + r.Max) / 2
}

// Subset reports whether r is contained within other, both endpoints
// inclusive — used to check normal ⊆ warning ⊆ error.
func (r Range) Subset(other Range) bool {
	return r.Min >= other.Min && r.Max <= other.Max
}

// Addressing carries the protocol-specific hint a ParameterSpec needs to
// be reachable over the wire. Exactly one field is populated, matching the
// descriptor's protocol_name.
type Addressing struct {
	ModbusRegister *ModbusRegisterHint `yaml:"modbus_register,omitempty"`
	BACnetObject   *BACnetObjectHint   `yaml:"bacnet_object,omitempty"`
	RESTPath       string              `yaml:"rest_path,omitempty"`
}

// ModbusRegisterHint locates a parameter within one of the four Modbus
// address spaces.
type ModbusRegisterHint struct {
	Space  RegisterSpace `yaml:"space"`
	Address int          `yaml:"address"` // logical 1-based address, e.g. 30001, 40001
	Scale   float64       `yaml:"scale"`   // e.g. 100 to preserve two decimals
}

// RegisterSpace is one of the four Modbus address spaces.
type RegisterSpace string

const (
	SpaceInputRegister    RegisterSpace = "input_register"
	SpaceHoldingRegister  RegisterSpace = "holding_register"
	SpaceCoil             RegisterSpace = "coil"
	SpaceDiscreteInput    RegisterSpace = "discrete_input"
)

// BACnetObjectHint locates a parameter as a (object_type, instance,
// property_id) triple.
type BACnetObjectHint struct {
	ObjectType string `yaml:"object_type"` // AI, AV, BI, BV, MSV
	Instance   int    `yaml:"instance"`
	PropertyID int    `yaml:"property_id"`
}

// ParameterSpec is the typed description of one readable/writable
// quantity on a device.
type ParameterSpec struct {
	Name                string     `yaml:"name"`
	Type                ValueType  `yaml:"type"`
	Unit                string     `yaml:"unit"`
	NormalRange         Range      `yaml:"normal_range"`
	WarningRange        Range      `yaml:"warning_range"`
	ErrorRange          Range      `yaml:"error_range"`
	TroubleshootingSteps []string  `yaml:"troubleshooting_steps,omitempty"`
	Addressing          Addressing `yaml:"addressing"`
}

// ErrorCodeEntry is the documentation-derived meaning of one device error
// code.
type ErrorCodeEntry struct {
	Description      string   `yaml:"description"`
	RemediationSteps []string `yaml:"remediation_steps,omitempty"`
}

// DeviceDescriptor is the learned truth about one device model.
type DeviceDescriptor struct {
	DeviceID       string                    `yaml:"device_id"`
	Manufacturer   string                    `yaml:"manufacturer"`
	Model          string                    `yaml:"model"`
	DeviceType     string                    `yaml:"device_type"`
	ProtocolName   string                    `yaml:"protocol_name"`
	Parameters     map[string]ParameterSpec  `yaml:"parameters"`
	ErrorCodes     map[string]ErrorCodeEntry `yaml:"error_codes"`
	TroubleshootingSteps []string            `yaml:"troubleshooting_steps,omitempty"`
	MaintenanceSchedule  map[string]int       `yaml:"maintenance_schedule,omitempty"` // task -> interval in days
	RawText        string                    `yaml:"raw_text,omitempty"`
	Partial        bool                      `yaml:"partial"` // true when ingestion left fields unknown
}

// DeviceID derives the stable identifier for a (manufacturer, model) pair,
// used both at ingestion time and for descriptor-store lookups.
func DeviceID(manufacturer, model string) string {
	return normalize(manufacturer) + "-" + normalize(model)
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r-'A'+'a')
			lastDash = false
		default:
			if !lastDash && len(out) > 0 {
				out = append(out, '-')
				lastDash = true
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	return string(out)
}
