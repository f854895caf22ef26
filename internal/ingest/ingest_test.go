// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModbusDoc = `Manufacturer: Acme Sensors
Model: TH-100
Device Type: sensor
Protocol: Modbus TCP

temperature 40001 holding x100
humidity 40003 holding x100

E001 Sensor reading out of range
Troubleshooting: recalibrate the sensor
Troubleshooting: check wiring continuity

E002 Communication timeout

sensor_calibration: 90 days
filter_replacement: 6 months
`

func TestExtractIdentity_RecoversAllFields(t *testing.T) {
	id := ExtractIdentity(sampleModbusDoc)
	assert.Equal(t, "Acme Sensors", id.Manufacturer)
	assert.Equal(t, "TH-100", id.Model)
	assert.Equal(t, "sensor", id.DeviceType)
	assert.Equal(t, "Modbus", id.ProtocolName)
}

func TestExtractModbusParameters_RecoversRegisterAddressing(t *testing.T) {
	params := ExtractModbusParameters(sampleModbusDoc)
	require.Contains(t, params, "temperature")
	p := params["temperature"]
	require.NotNil(t, p.Addressing.ModbusRegister)
	assert.Equal(t, 40001, p.Addressing.ModbusRegister.Address)
	assert.Equal(t, descriptor.SpaceHoldingRegister, p.Addressing.ModbusRegister.Space)
	assert.Equal(t, 100.0, p.Addressing.ModbusRegister.Scale)
}

func TestExtractErrorCodes_AttachesNearestPrecedingRemediation(t *testing.T) {
	codes := ExtractErrorCodes(sampleModbusDoc)
	require.Contains(t, codes, "E001")
	assert.Equal(t, "Sensor reading out of range", codes["E001"].Description)
	assert.Equal(t, []string{"recalibrate the sensor", "check wiring continuity"}, codes["E001"].RemediationSteps)

	require.Contains(t, codes, "E002")
	assert.Empty(t, codes["E002"].RemediationSteps)
}

func TestExtractErrorCodes_TroubleshootingOutsideBlockIsDiscarded(t *testing.T) {
	text := "E099 Unknown fault\n\nTroubleshooting: unrelated remedy in the next block"
	codes := ExtractErrorCodes(text)
	require.Contains(t, codes, "E099")
	assert.Empty(t, codes["E099"].RemediationSteps)
}

func TestExtractMaintenance_NormalizesToDays(t *testing.T) {
	maintenance, err := ExtractMaintenance(sampleModbusDoc)
	require.NoError(t, err)
	assert.Equal(t, 90, maintenance["sensor_calibration"])
	assert.Equal(t, 180, maintenance["filter_replacement"])
}

func TestExtractMaintenance_UnrecognizedUnitRejectsDocument(t *testing.T) {
	_, err := ExtractMaintenance("calibration: 3 fortnights")
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindInvariantViolation))
}

func TestIngestText_ProducesCompleteDescriptor(t *testing.T) {
	d, err := IngestText(sampleModbusDoc)
	require.NoError(t, err)
	assert.Equal(t, "acme-sensors-th-100", d.DeviceID)
	assert.Equal(t, "Modbus", d.ProtocolName)
	assert.False(t, d.Partial)
	assert.Contains(t, d.Parameters, "temperature")
	assert.Contains(t, d.ErrorCodes, "E001")
	assert.Equal(t, 90, d.MaintenanceSchedule["sensor_calibration"])
}

func TestIngestText_MissingIdentityFieldsMarksPartial(t *testing.T) {
	d, err := IngestText("some undated fragment with no labeled fields")
	require.NoError(t, err)
	assert.True(t, d.Partial)
}

func TestExtractText_KeepsLayoutYieldAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleModbusDoc), 0o644))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Acme Sensors")
}

func TestExtractText_BelowFloorFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0o644))

	_, err := ExtractText(path)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindDecode))
}

func TestExtractHTML_FlattensTableRowsAndParagraphs(t *testing.T) {
	html := `<html><body>
<p>Manufacturer: Zeta Controls</p>
<p>Model: P9</p>
<p>Protocol: BACnet</p>
<table>
<tr><td>AI</td><td>1</td><td>Zone Temperature</td></tr>
</table>
</body></html>`

	text, err := ExtractHTML(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Manufacturer: Zeta Controls")
	assert.Contains(t, text, "AI: 1: Zone Temperature")
}
