// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package mlmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearClassifier_PredictIsDeterministic(t *testing.T) {
	m := NewDeviceClassifier()
	inputs := []float64{502, 1, 12.5, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	p1 := m.Predict(inputs)
	p2 := m.Predict(inputs)
	require.Equal(t, p1, p2)

	sum := 0.0
	for _, p := range p1 {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLinearClassifier_ArgmaxPicksHighestProbability(t *testing.T) {
	m := NewDeviceClassifier()
	idx, prob := m.Argmax([]float64{502, 1, 12.5, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, m.OutputSize)
	assert.Greater(t, prob, 0.0)
}

func TestLinearClassifier_PadsShortInput(t *testing.T) {
	m := NewDeviceClassifier()
	short := m.Predict([]float64{1, 2, 3})
	assert.Len(t, short, m.OutputSize)
}

func TestLinearClassifier_TruncatesLongInput(t *testing.T) {
	m := NewDeviceClassifier()
	long := make([]float64, 200)
	probs := m.Predict(long)
	assert.Len(t, probs, m.OutputSize)
}

func TestLinearScorer_ScoreIsDeterministic(t *testing.T) {
	m := NewAnomalyScorer()
	inputs := make([]float64, 32)
	for i := range inputs {
		inputs[i] = float64(i) * 0.1
	}
	s1 := m.Score(inputs)
	s2 := m.Score(inputs)
	assert.Equal(t, s1, s2)
}

func TestIntentClassifier_HasExpectedShape(t *testing.T) {
	m := NewIntentClassifier()
	assert.Equal(t, 64, m.InputSize)
	assert.Equal(t, 8, m.OutputSize)
}
