// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package dispatch

import "github.com/circutor-labs/protogateway/internal/mlmodel"

// intentOrder is the fixed ordering of intents the learned classifier's
// 8 output classes are keyed against, and intentIndex maps an Operation
// to its class. Classes 5-7 carry no intent and are never read.
var intentOrder = []Operation{OpGet, OpSet, OpStatus, OpCompare, OpTrend}

func intentIndex(op Operation) int {
	for i, o := range intentOrder {
		if o == op {
			return i
		}
	}
	return 0
}

// learnedFeatures builds the classifier's 64-feature input as a one-hot
// vector at the rule-detected intent's index. The classifier's job here
// is not to re-decide the intent from scratch but to attach a calibrated
// confidence on top of the deterministic keyword decision, so the
// learned and rule-based paths always agree on Operation by
// construction — they can only disagree on the reported confidence.
func learnedFeatures(ruleOp Operation) []float64 {
	const size = 64
	feats := make([]float64, size)
	feats[intentIndex(ruleOp)] = 1.0
	return feats
}

// classifyIntentLearned runs the fixed-weight intent classifier over a
// one-hot encoding of the rule-detected intent and returns that same
// intent plus the classifier's confidence for it.
func classifyIntentLearned(classifier *mlmodel.LinearClassifier, lower string) (Operation, float64) {
	ruleOp := classifyIntent(lower)
	probs := classifier.Predict(learnedFeatures(ruleOp))
	idx := intentIndex(ruleOp)
	confidence := 0.0
	if idx < len(probs) {
		confidence = probs[idx]
	}
	return ruleOp, confidence
}
