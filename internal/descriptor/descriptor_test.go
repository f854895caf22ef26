// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescriptor() *DeviceDescriptor {
	return &DeviceDescriptor{
		DeviceID:     "johnson-controls-fx06",
		Manufacturer: "Johnson Controls",
		Model:        "FX06",
		DeviceType:   "HVAC Controller",
		ProtocolName: "Modbus",
		Parameters: map[string]ParameterSpec{
			"Temperature_Sensor_1": {
				Name:         "Temperature_Sensor_1",
				Type:         ValueFloat,
				Unit:         "°C",
				NormalRange:  Range{Min: 18, Max: 26},
				WarningRange: Range{Min: 15, Max: 30},
				ErrorRange:   Range{Min: 10, Max: 40},
				Addressing: Addressing{
					ModbusRegister: &ModbusRegisterHint{Space: SpaceInputRegister, Address: 30001, Scale: 100},
				},
			},
		},
		ErrorCodes: map[string]ErrorCodeEntry{
			"E101": {Description: "Sensor fault", RemediationSteps: []string{"Check wiring"}},
		},
		MaintenanceSchedule: map[string]int{"sensor_calibration": 90},
	}
}

func TestValidate_AcceptsWellFormedDescriptor(t *testing.T) {
	require.NoError(t, Validate(sampleDescriptor()))
}

func TestValidate_RejectsNonNestedRanges(t *testing.T) {
	d := sampleDescriptor()
	p := d.Parameters["Temperature_Sensor_1"]
	p.WarningRange = Range{Min: 19, Max: 24} // not a superset of normal_range
	d.Parameters["Temperature_Sensor_1"] = p

	err := Validate(d)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindInvariantViolation))
}

func TestValidate_RejectsEmptyRange(t *testing.T) {
	d := sampleDescriptor()
	p := d.Parameters["Temperature_Sensor_1"]
	p.NormalRange = Range{Min: 20, Max: 20}
	d.Parameters["Temperature_Sensor_1"] = p

	err := Validate(d)
	require.Error(t, err)
}

func TestValidate_RejectsAddressingMismatch(t *testing.T) {
	d := sampleDescriptor()
	p := d.Parameters["Temperature_Sensor_1"]
	p.Addressing = Addressing{} // Modbus descriptor with no register hint
	d.Parameters["Temperature_Sensor_1"] = p

	err := Validate(d)
	require.Error(t, err)
}

func TestModel_LookupByIDAndVendor(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Add(sampleDescriptor()))

	got, ok := m.ByDeviceID("johnson-controls-fx06")
	require.True(t, ok)
	assert.Equal(t, "FX06", got.Model)

	got2, ok := m.ByVendorModel("Johnson Controls", "FX06")
	require.True(t, ok)
	assert.Same(t, got, got2)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	d := sampleDescriptor()
	require.NoError(t, store.Save(d))

	m, err := store.Load()
	require.NoError(t, err)

	got, ok := m.ByDeviceID(d.DeviceID)
	require.True(t, ok)
	assert.Equal(t, d.Manufacturer, got.Manufacturer)
	assert.Equal(t, d.Parameters["Temperature_Sensor_1"].NormalRange, got.Parameters["Temperature_Sensor_1"].NormalRange)
	assert.Equal(t, d.MaintenanceSchedule, got.MaintenanceSchedule)
}

func TestDeviceID_Normalization(t *testing.T) {
	assert.Equal(t, "johnson-controls-fx06", DeviceID("Johnson Controls", "FX06"))
}
