// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"fmt"

	"github.com/circutor-labs/protogateway/internal/common"
)

// Validate enforces a descriptor's structural invariants on construction:
// range nesting, non-empty intervals, addressing consistent with the
// descriptor's protocol, and unique error codes. It returns a
// *common.GatewayError of kind InvariantViolation on the first failure
// found.
func Validate(d *DeviceDescriptor) error {
	if d.DeviceID == "" {
		return common.NewInvariantViolation("device_id must not be empty")
	}
	if d.ProtocolName == "" {
		return common.NewInvariantViolation("protocol_name must not be empty")
	}

	for name, p := range d.Parameters {
		if p.NormalRange.Empty() || p.WarningRange.Empty() || p.ErrorRange.Empty() {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q has an empty range", name))
		}
		if !p.NormalRange.Subset(p.WarningRange) {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q: normal_range is not a subset of warning_range", name))
		}
		if !p.WarningRange.Subset(p.ErrorRange) {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q: warning_range is not a subset of error_range", name))
		}
		if err := validateAddressing(d.ProtocolName, name, p.Addressing); err != nil {
			return err
		}
	}

	// error_codes keys are already unique by construction of the Go map;
	// the invariant is enforced structurally.

	return nil
}

func validateAddressing(protocol, paramName string, a Addressing) error {
	switch protocol {
	case "Modbus":
		if a.ModbusRegister == nil {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q on a Modbus descriptor has no register addressing", paramName))
		}
	case "BACnet":
		if a.BACnetObject == nil {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q on a BACnet descriptor has no object addressing", paramName))
		}
	case "REST":
		if a.RESTPath == "" {
			return common.NewInvariantViolation(fmt.Sprintf("parameter %q on a REST descriptor has no endpoint path", paramName))
		}
	}
	return nil
}
