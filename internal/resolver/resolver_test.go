// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"testing"

	"github.com/circutor-labs/protogateway/internal/common"
	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) (*descriptor.Model, *vectorindex.Index) {
	t.Helper()
	model := descriptor.NewModel()
	d := &descriptor.DeviceDescriptor{
		DeviceID:     "acme-th100",
		Manufacturer: "Acme",
		Model:        "TH-100",
		DeviceType:   "sensor",
		ProtocolName: "Modbus",
		Parameters: map[string]descriptor.ParameterSpec{
			"temperature": {
				Name: "temperature", Type: descriptor.ValueFloat, Unit: "degC",
				NormalRange: descriptor.Range{Min: 0, Max: 50},
				WarningRange: descriptor.Range{Min: -10, Max: 60},
				ErrorRange: descriptor.Range{Min: -40, Max: 100},
				Addressing: descriptor.Addressing{
					ModbusRegister: &descriptor.ModbusRegisterHint{Space: descriptor.SpaceHoldingRegister, Address: 40001, Scale: 100},
				},
			},
		},
	}
	require.NoError(t, model.Add(d))

	idx := vectorindex.New(vectorindex.Dimension)
	require.NoError(t, idx.Upsert(d.DeviceID, vectorindex.CanonicalText(d)))
	return model, idx
}

func TestResolve_MatchesKnownDevice(t *testing.T) {
	model, idx := buildFixture(t)
	r := New(model, idx)

	d, err := r.Resolve(Fingerprint{Protocol: "Modbus", Port: 502, VendorHint: "Acme", ModelHint: "TH-100"})
	require.NoError(t, err)
	assert.Equal(t, "acme-th100", d.DeviceID)
}

func TestResolve_UnknownDeviceBelowThreshold(t *testing.T) {
	model, idx := buildFixture(t)
	r := New(model, idx)

	_, err := r.Resolve(Fingerprint{Protocol: "BACnet", Port: 47808, VendorHint: "totally", ModelHint: "unrelated gibberish zz qq"})
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindUnknownDevice))
}

func TestResolve_CachesRepeatedFingerprint(t *testing.T) {
	model, idx := buildFixture(t)
	r := New(model, idx)

	fp := Fingerprint{Protocol: "Modbus", Port: 502, VendorHint: "Acme", ModelHint: "TH-100"}
	_, err := r.Resolve(fp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.CacheHits)
	assert.Equal(t, int64(1), r.CacheMisses)

	_, err = r.Resolve(fp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.CacheHits)
}

func TestFingerprint_DigestIsStableForSameFields(t *testing.T) {
	f1 := Fingerprint{Protocol: "Modbus", Port: 502, VendorHint: "Acme", ModelHint: "TH-100"}
	f2 := Fingerprint{Protocol: "Modbus", Port: 502, VendorHint: "Acme", ModelHint: "TH-100"}
	assert.Equal(t, f1.Digest(), f2.Digest())
}

func TestResolver_CacheEvictsOldestBeyondCapacity(t *testing.T) {
	model, idx := buildFixture(t)
	r := New(model, idx)
	r.cacheCap = 2

	r.cachePut("a", &descriptor.DeviceDescriptor{DeviceID: "a"})
	r.cachePut("b", &descriptor.DeviceDescriptor{DeviceID: "b"})
	r.cachePut("c", &descriptor.DeviceDescriptor{DeviceID: "c"})

	_, aOK := r.cacheGet("a")
	_, cOK := r.cacheGet("c")
	assert.False(t, aOK)
	assert.True(t, cOK)
}

func TestDebugSearch_ReportsAcceptedAndRejectedCandidates(t *testing.T) {
	model, idx := buildFixture(t)
	r := New(model, idx)

	candidates := r.DebugSearch(Fingerprint{Protocol: "Modbus", Port: 502, VendorHint: "Acme", ModelHint: "TH-100"}, 5)
	require.Len(t, candidates, 1)
	assert.Equal(t, "acme-th100", candidates[0].DeviceID)
	assert.True(t, candidates[0].Accepted)

	rejected := r.DebugSearch(Fingerprint{Protocol: "BACnet", Port: 47808, VendorHint: "totally", ModelHint: "unrelated gibberish zz qq"}, 5)
	require.Len(t, rejected, 1)
	assert.False(t, rejected[0].Accepted)
}
