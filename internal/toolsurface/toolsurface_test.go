// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package toolsurface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/gateway"
	"github.com/circutor-labs/protogateway/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDoc = `Manufacturer: Acme Sensors
Model: TH-100
Device Type: sensor
Protocol: Modbus TCP

temperature 40001 holding x100
humidity 40003 holding x100

E001 Sensor reading out of range
Troubleshooting: recalibrate the sensor

sensor_calibration: 90 days
`

func newTestFacade(t *testing.T) (*Facade, string) {
	t.Helper()
	cfg := common.Default()
	cfg.StorageDir = t.TempDir()
	gw, err := gateway.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })

	fixturePath := filepath.Join(t.TempDir(), "th-100.txt")
	require.NoError(t, os.WriteFile(fixturePath, []byte(fixtureDoc), 0o644))

	return New(gw), fixturePath
}

func TestIngestDocument_PersistsAndIndexesDescriptor(t *testing.T) {
	f, path := newTestFacade(t)

	desc, err := f.IngestDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme Sensors", desc.Manufacturer)
	assert.Equal(t, "TH-100", desc.Model)
	assert.Contains(t, desc.Parameters, "temperature")
}

func TestSearchDescriptors_FindsIngestedDevice(t *testing.T) {
	f, path := newTestFacade(t)
	desc, err := f.IngestDocument(path)
	require.NoError(t, err)

	matches := f.SearchDescriptors("temperature sensor reading", 5)
	require.NotEmpty(t, matches)

	var found bool
	for _, m := range matches {
		if m.DeviceID == desc.DeviceID {
			found = true
		}
	}
	assert.True(t, found, "expected ingested device %q among search matches", desc.DeviceID)
}

func TestResolveDescriptorAndClassifyDevice_MatchIngestedDevice(t *testing.T) {
	f, path := newTestFacade(t)
	desc, err := f.IngestDocument(path)
	require.NoError(t, err)

	fp := resolver.Fingerprint{Protocol: "Modbus", DeviceHint: "Acme Sensors TH-100 temperature humidity"}

	resolved, err := f.ResolveDescriptor(fp)
	require.NoError(t, err)
	assert.Equal(t, desc.DeviceID, resolved.DeviceID)

	protocol, confidence := f.ClassifyDevice(fp)
	assert.Equal(t, "Modbus", protocol)
	assert.Greater(t, confidence, 0.0)
}

func TestCloseSession_UnknownSessionIsAnError(t *testing.T) {
	f, _ := newTestFacade(t)
	_, err := f.CloseSession("does-not-exist")
	assert.Error(t, err)
}

func TestProcessQuery_NoLiveSessionYieldsEmptyResultsNotError(t *testing.T) {
	f, path := newTestFacade(t)
	_, err := f.IngestDocument(path)
	require.NoError(t, err)

	result := f.ProcessQuery(nil, "what is the current temperature")
	assert.Equal(t, "temperature", result.Plan.Steps[0].Parameter)
	assert.Empty(t, result.Results)
}
