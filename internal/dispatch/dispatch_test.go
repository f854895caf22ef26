// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent_RecognizesAllFiveOperations(t *testing.T) {
	cases := map[string]Operation{
		"set the temperature to 72":          OpSet,
		"compare humidity versus temperature": OpCompare,
		"show the trend for pressure":        OpTrend,
		"what is the status of the pump":     OpStatus,
		"what is the current temperature":    OpGet,
		"temperature in the server room":     OpGet, // no keyword: defaults to get
	}
	for query, want := range cases {
		assert.Equal(t, want, classifyIntent(query), "query: %s", query)
	}
}

func TestExtractEntities_PrefersLongestKnownParameterMatch(t *testing.T) {
	known := []string{"temperature", "zone_temperature"}
	e := extractEntities("what is the zone temperature reading", known)
	assert.Equal(t, "zone_temperature", e.Parameter)
}

func TestExtractEntities_RecoversLocationAndValue(t *testing.T) {
	e := extractEntities("set the temperature to 72.5 in the server room", []string{"temperature"})
	assert.Equal(t, "temperature", e.Parameter)
	assert.Equal(t, "server", e.Location)
	assert.NotNil(t, e.Value)
	assert.Equal(t, 72.5, *e.Value)
}

func TestExtractEntities_ZoneNamedForm(t *testing.T) {
	e := extractEntities("what is the temperature in zone a", []string{"temperature"})
	assert.Equal(t, "a", e.Location)
}

func TestExtractEntities_NoValuePresent(t *testing.T) {
	e := extractEntities("what is the status of the compressor", []string{"compressor"})
	assert.False(t, e.HasValue)
	assert.Nil(t, e.Value)
}

func TestDispatch_RuleBasedBuildsSingleStepPlan(t *testing.T) {
	d := New()
	plan := d.Dispatch("what is the temperature in zone a", []string{"temperature"})
	assert.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, OpGet, step.Operation)
	assert.Equal(t, "temperature", step.Parameter)
	assert.Equal(t, "a", step.Location)
	assert.Equal(t, ruleConfidence, plan.Confidence)
}

func TestDispatch_SetOperationCarriesValue(t *testing.T) {
	d := New()
	plan := d.Dispatch("set the temperature to 72.5 in zone a", []string{"temperature"})
	step := plan.Steps[0]
	assert.Equal(t, OpSet, step.Operation)
	assert.NotNil(t, step.Value)
	assert.Equal(t, 72.5, *step.Value)
}
