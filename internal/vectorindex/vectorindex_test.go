// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_IsDeterministic(t *testing.T) {
	v1 := Embed("Acme TH-100 temperature sensor")
	v2 := Embed("Acme TH-100 temperature sensor")
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, Dimension)
}

func TestEmbed_IsL2Normalized(t *testing.T) {
	v := Embed("a reasonably long piece of descriptive device text")
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	v := Embed("Acme TH-100")
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_UnrelatedTextScoresLower(t *testing.T) {
	a := Embed("Acme TH-100 temperature humidity sensor Modbus")
	b := Embed("Acme TH-100 temperature humidity sensor Modbus")
	c := Embed("zzz qqq xyz totally unrelated gibberish wxyz")
	assert.Greater(t, CosineSimilarity(a, b), CosineSimilarity(a, c))
}

func TestIndex_UpsertAndSearchReturnsClosestMatch(t *testing.T) {
	idx := New(Dimension)
	require.NoError(t, idx.Upsert("acme-th100", "Acme TH-100 temperature humidity sensor Modbus TCP"))
	require.NoError(t, idx.Upsert("zeta-p9", "Zeta P9 pressure valve controller BACnet"))

	matches := idx.SearchText("Acme TH-100 temperature sensor", 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "acme-th100", matches[0].DeviceID)
}

func TestIndex_UpsertSameDeviceIDReplaces(t *testing.T) {
	idx := New(Dimension)
	require.NoError(t, idx.Upsert("d1", "first text"))
	require.NoError(t, idx.Upsert("d1", "second text, quite different"))
	assert.Equal(t, 1, idx.Count())
}

func TestIndex_RemoveDeletesRecord(t *testing.T) {
	idx := New(Dimension)
	require.NoError(t, idx.Upsert("d1", "alpha"))
	require.NoError(t, idx.Upsert("d2", "beta"))
	idx.Remove("d1")
	assert.Equal(t, 1, idx.Count())
	matches := idx.SearchText("beta", 5)
	require.Len(t, matches, 1)
	assert.Equal(t, "d2", matches[0].DeviceID)
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")

	idx := New(Dimension)
	require.NoError(t, idx.Upsert("acme-th100", "Acme TH-100 temperature humidity sensor"))
	require.NoError(t, idx.Upsert("zeta-p9", "Zeta P9 pressure valve controller"))
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path, Dimension)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())

	matches := loaded.SearchText("Acme TH-100 temperature", 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "acme-th100", matches[0].DeviceID)
}

func TestLoad_MissingFileYieldsEmptyIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "missing.bin"), Dimension)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Count())
}

func TestCanonicalText_OrdersSectionsDeterministically(t *testing.T) {
	d := &descriptor.DeviceDescriptor{
		Manufacturer: "Acme",
		Model:        "TH-100",
		DeviceType:   "sensor",
		ProtocolName: "Modbus",
		Parameters: map[string]descriptor.ParameterSpec{
			"temperature": {Name: "temperature", Type: descriptor.ValueFloat, Unit: "degC"},
		},
		ErrorCodes: map[string]descriptor.ErrorCodeEntry{
			"E01": {Description: "sensor fault"},
		},
		TroubleshootingSteps: []string{"power cycle the device"},
		RawText:              "original documentation text",
	}

	text1 := CanonicalText(d)
	text2 := CanonicalText(d)
	assert.Equal(t, text1, text2)
	assert.Contains(t, text1, "Manufacturer: Acme")
	assert.Contains(t, text1, "temperature")
	assert.Contains(t, text1, "E01")
	assert.Contains(t, text1, "power cycle")
}
