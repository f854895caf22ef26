// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"strings"

	"github.com/circutor-labs/protogateway/internal/mlmodel"
)

const ruleConfidence = 0.9

// Dispatcher turns query text into a Plan. UseLearned selects the
// mlmodel-backed confidence path; both paths always agree on the
// resulting Operation and entities, so a caller can flip UseLearned
// without changing any downstream plan execution.
type Dispatcher struct {
	UseLearned bool
	classifier *mlmodel.LinearClassifier
}

// New returns a Dispatcher using the rule-based path only.
func New() *Dispatcher {
	return &Dispatcher{}
}

// NewLearned returns a Dispatcher that also consults the fixed-weight
// intent classifier for confidence reporting.
func NewLearned() *Dispatcher {
	return &Dispatcher{UseLearned: true, classifier: mlmodel.NewIntentClassifier()}
}

// Dispatch builds a Plan from query, given the union of parameter names
// known across the descriptors the caller has in scope. A query that
// names no known parameter still produces a plan (status/trend queries
// can be parameter-less, scoped by Location alone); the caller decides
// whether an empty Parameter is actionable.
func (d *Dispatcher) Dispatch(query string, knownParameters []string) Plan {
	lower := strings.ToLower(query)
	entities := extractEntities(query, knownParameters)

	var op Operation
	var confidence float64
	if d.UseLearned && d.classifier != nil {
		op, confidence = classifyIntentLearned(d.classifier, lower)
	} else {
		op, confidence = classifyIntent(lower), ruleConfidence
	}

	step := PlanStep{
		Operation: op,
		Parameter: entities.Parameter,
		Location:  entities.Location,
	}
	if entities.HasValue {
		step.Value = entities.Value
	}

	return Plan{Steps: []PlanStep{step}, Confidence: confidence}
}
