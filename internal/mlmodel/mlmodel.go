// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package mlmodel implements the gateway's fixed-weight linear models:
// a small device-type classifier, an optional intent classifier, and an
// anomaly scorer. Grounded on the TinyMLModel shape from the Python
// reference implementation's local AI engine (y = Wx + b, softmax for
// classification) — but weights are fixed constants derived
// deterministically from each model's name, never randomly sampled,
// since the gateway must produce the same output for the same input on
// every run and never depends on a network call or a training step.
package mlmodel

import "math"

// LinearClassifier is a y = Wx + b linear model followed by softmax,
// sized InputSize -> OutputSize.
type LinearClassifier struct {
	InputSize  int
	OutputSize int
	Weights    []float64 // row-major, OutputSize x InputSize
	Bias       []float64 // OutputSize
}

// Predict returns the softmax-normalized class probabilities for inputs,
// padding with zero or truncating if inputs doesn't match InputSize.
func (m *LinearClassifier) Predict(inputs []float64) []float64 {
	x := fitToSize(inputs, m.InputSize)
	logits := make([]float64, m.OutputSize)
	for o := 0; o < m.OutputSize; o++ {
		sum := m.Bias[o]
		row := o * m.InputSize
		for i := 0; i < m.InputSize; i++ {
			sum += m.Weights[row+i] * x[i]
		}
		logits[o] = sum
	}
	return softmax(logits)
}

// Argmax returns the index and probability of the highest-scoring class.
func (m *LinearClassifier) Argmax(inputs []float64) (int, float64) {
	probs := m.Predict(inputs)
	best, bestP := 0, probs[0]
	for i, p := range probs {
		if p > bestP {
			best, bestP = i, p
		}
	}
	return best, bestP
}

// LinearScorer is a y = Wx + b linear model collapsing InputSize features
// to a single scalar score, used for the learned anomaly strategy.
type LinearScorer struct {
	InputSize int
	Weights   []float64
	Bias      float64
}

// Score computes the scalar output for inputs, padding/truncating as
// LinearClassifier.Predict does.
func (m *LinearScorer) Score(inputs []float64) float64 {
	x := fitToSize(inputs, m.InputSize)
	sum := m.Bias
	for i := 0; i < m.InputSize; i++ {
		sum += m.Weights[i] * x[i]
	}
	return sum
}

func fitToSize(in []float64, size int) []float64 {
	out := make([]float64, size)
	n := len(in)
	if n > size {
		n = size
	}
	copy(out, in[:n])
	return out
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(v - max)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// deterministicWeight derives a reproducible pseudo-weight in [-scale,
// scale] from (seed, index), so model construction never touches a
// random source yet still spreads weights instead of using all-zeros.
func deterministicWeight(seed uint32, index int, scale float64) float64 {
	h := seed ^ uint32(index)*2654435761
	h ^= h >> 15
	h *= 0x2c1b3c6d
	h ^= h >> 12
	h *= 0x297a2d39
	h ^= h >> 15
	frac := float64(h%2000001)/1000000.0 - 1.0 // in [-1, 1]
	return frac * scale
}

func deterministicWeights(seed uint32, count int, scale float64) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = deterministicWeight(seed, i, scale)
	}
	return out
}

// NewDeviceClassifier returns the fixed 16-feature -> 5-class model used
// by the coarse resolver stage (port, protocol, response-time, and other
// network-observable features in, device-type class out).
func NewDeviceClassifier() *LinearClassifier {
	const in, out = 16, 5
	return &LinearClassifier{
		InputSize:  in,
		OutputSize: out,
		Weights:    deterministicWeights(0xD3715C1, in*out, 0.35),
		Bias:       deterministicWeights(0xD3715C2, out, 0.05),
	}
}

// NewIntentClassifier returns the fixed 64-feature -> 8-intent model
// available as the dispatcher's optional learned path.
func NewIntentClassifier() *LinearClassifier {
	const in, out = 64, 8
	return &LinearClassifier{
		InputSize:  in,
		OutputSize: out,
		Weights:    deterministicWeights(0x17E57A1, in*out, 0.2),
		Bias:       deterministicWeights(0x17E57B2, out, 0.05),
	}
}

// anomalyDeviationWeight and anomalyTrendWeight are the coefficients on
// the two features that actually carry anomaly signal (deviation from
// center, magnitude of change since the previous reading). They are hand
// calibrated rather than hash-derived like the rest of the vector: with
// anomalyBias, a reading pinned at its error-range boundary with a
// matching-size jump (both features at their clamp ceiling of 1) scores
// at least anomalyBias+anomalyDeviationWeight+anomalyTrendWeight-0.2 =
// 0.8 even under the most unfavorable time-of-day/week contribution (the
// remaining hashed weights are capped at scale 0.05 each over 4 active
// slots, so their combined pull is bounded by 0.2 in either direction),
// clearing DetectLearned's 0.7 reporting gate unconditionally. A quiet
// reading (both features at 0) scores at most anomalyBias+0.2 = -0.1,
// staying well clear of the gate regardless of time of day.
const (
	anomalyDeviationWeight = 0.9
	anomalyTrendWeight     = 0.4
	anomalyBias            = -0.3
)

// NewAnomalyScorer returns the fixed 32-feature -> 1-scalar model backing
// the learned-score anomaly strategy. Inputs are expected pre-normalized
// to roughly [-1, 1]. Slots 0 and 1 (deviation, trend magnitude) carry
// the calibrated weights above; the remaining slots (time-of-day/week
// encodings, and reserved slots no feature extractor populates yet) keep
// small hash-derived weights so they nudge the score without being able
// to drive it across the reporting threshold on their own.
func NewAnomalyScorer() *LinearScorer {
	const in = 32
	weights := deterministicWeights(0xA0FFA17, in, 0.05)
	weights[0] = anomalyDeviationWeight
	weights[1] = anomalyTrendWeight
	return &LinearScorer{
		InputSize: in,
		Weights:   weights,
		Bias:      anomalyBias,
	}
}
