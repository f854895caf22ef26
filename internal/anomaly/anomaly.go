// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package anomaly runs six independent detection strategies over a
// device's readings — range, drift, pattern, maintenance, environmental
// cross-check, and a learned score — each drawing its remediation text
// only from documentation-derived data, never inventing advice. Grounded
// on the Python reference implementation's DocumentationAnomalyDetector,
// whose six _detect_* methods this package's six Detect* functions mirror.
package anomaly

import (
	"fmt"
	"time"

	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/mlmodel"
	"github.com/google/uuid"
)

// Type identifies which strategy produced a report.
type Type string

const (
	TypeRange          Type = "range"
	TypeDrift          Type = "drift"
	TypePattern        Type = "pattern"
	TypeMaintenance    Type = "maintenance-overdue"
	TypeEnvironmental  Type = "environmental"
	TypeLearned        Type = "learned"
)

// Severity ranks how urgent a report is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Report is one anomaly finding.
type Report struct {
	AnomalyID          string
	Type               Type
	Severity           Severity
	Parameter          string
	CurrentValue       float64
	ExpectedRangeMin   float64
	ExpectedRangeMax   float64
	DeviationPct       float64
	Description        string
	RootCauseHint      string
	RemediationSteps   []string
	MaintenanceRequired bool
	Confidence         float64
	Timestamp          time.Time
}

func newReport(t Type, sev Severity) Report {
	return Report{AnomalyID: uuid.NewString(), Type: t, Severity: sev, Timestamp: time.Now()}
}

// DetectRange compares value against the parameter's normal/warning/error
// ranges: outside error is critical, outside warning is medium, otherwise
// no report.
func DetectRange(paramName string, p descriptor.ParameterSpec, value float64) *Report {
	var sev Severity
	switch {
	case !p.ErrorRange.Contains(value):
		sev = SeverityCritical
	case !p.WarningRange.Contains(value):
		sev = SeverityMedium
	default:
		return nil
	}

	r := newReport(TypeRange, sev)
	r.Parameter = paramName
	r.CurrentValue = value
	r.ExpectedRangeMin = p.NormalRange.Min
	r.ExpectedRangeMax = p.NormalRange.Max
	r.DeviationPct = deviationPct(value, p.NormalRange)
	r.Description = fmt.Sprintf("%s reading %.3f is outside the expected range [%v, %v]", paramName, value, p.NormalRange.Min, p.NormalRange.Max)
	r.RemediationSteps = p.TroubleshootingSteps
	if sev == SeverityCritical {
		r.Confidence = 0.95
		r.MaintenanceRequired = true
	} else {
		r.Confidence = 0.85
	}
	return &r
}

func deviationPct(value float64, r descriptor.Range) float64 {
	width := r.Width()
	if width == 0 {
		return 0
	}
	return absFloat(value-r.Center()) / width * 100
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// DetectDrift compares value against baseline (the first observation of
// this parameter on this session): >20% relative deviation is medium,
// >50% is high (and maintenance required).
func DetectDrift(paramName string, p descriptor.ParameterSpec, baseline, value float64) *Report {
	if baseline == 0 {
		return nil
	}
	relDev := absFloat(value-baseline) / absFloat(baseline)
	var sev Severity
	switch {
	case relDev > 0.5:
		sev = SeverityHigh
	case relDev > 0.2:
		sev = SeverityMedium
	default:
		return nil
	}

	r := newReport(TypeDrift, sev)
	r.Parameter = paramName
	r.CurrentValue = value
	r.DeviationPct = relDev * 100
	r.Description = fmt.Sprintf("%s has drifted %.1f%% from its session baseline of %.3f", paramName, relDev*100, baseline)
	r.RemediationSteps = p.TroubleshootingSteps
	r.Confidence = 0.80
	r.MaintenanceRequired = sev == SeverityHigh
	return &r
}

// DetectPattern inspects the rolling window (oldest first, at most the
// last ten observations) for a high coefficient of variation or a sharp
// single-step jump.
func DetectPattern(paramName string, p descriptor.ParameterSpec, window []float64) *Report {
	if len(window) < 3 {
		return nil
	}

	mean := meanOf(window)
	if mean == 0 {
		return nil
	}
	stdDev := stdDevOf(window, mean)

	highCV := stdDev > 0.1*absFloat(mean)
	bigJump := false
	for i := 1; i < len(window); i++ {
		if absFloat(window[i]-window[i-1]) > 0.2*absFloat(mean) {
			bigJump = true
			break
		}
	}

	if !highCV && !bigJump {
		return nil
	}

	r := newReport(TypePattern, SeverityMedium)
	r.Parameter = paramName
	r.CurrentValue = window[len(window)-1]
	r.Description = fmt.Sprintf("%s shows an irregular pattern over its recent readings", paramName)
	r.RemediationSteps = p.TroubleshootingSteps
	r.Confidence = 0.75
	return &r
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stdDevOf(vals []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return sqrtFloat(sum / float64(len(vals)))
}

func sqrtFloat(f float64) float64 {
	if f <= 0 {
		return 0
	}
	x := f
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

// DetectMaintenance computes days since last maintenance for each
// scheduled task and reports medium severity past due, high past 2x due.
func DetectMaintenance(taskName string, intervalDays int, lastMaintenance time.Time, now time.Time) *Report {
	daysSince := now.Sub(lastMaintenance).Hours() / 24
	if daysSince <= float64(intervalDays) {
		return nil
	}

	sev := SeverityMedium
	if daysSince > float64(2*intervalDays) {
		sev = SeverityHigh
	}

	r := newReport(TypeMaintenance, sev)
	r.Parameter = taskName
	r.Description = fmt.Sprintf("maintenance task %q is %.0f days overdue (interval %d days)", taskName, daysSince-float64(intervalDays), intervalDays)
	r.RemediationSteps = []string{fmt.Sprintf("perform scheduled maintenance: %s", taskName)}
	r.Confidence = 0.90
	r.MaintenanceRequired = true
	return &r
}

// environmentalPlaybook is the fixed remediation text for the
// temperature/humidity cross-check — never invented per-device.
var environmentalPlaybook = []string{
	"verify HVAC setpoints for the affected zone",
	"check for blocked vents or failed dampers",
	"confirm the zone is not exposed to an external heat/moisture source",
}

// DetectEnvironmental flags temperature > 30 and humidity > 80 in the
// same reading as a medium environmental anomaly.
func DetectEnvironmental(temperature, humidity float64) *Report {
	if !(temperature > 30 && humidity > 80) {
		return nil
	}
	r := newReport(TypeEnvironmental, SeverityMedium)
	r.Parameter = "temperature,humidity"
	r.CurrentValue = temperature
	r.Description = fmt.Sprintf("temperature %.1f°C with humidity %.1f%% exceeds the comfort-range combination", temperature, humidity)
	r.RootCauseHint = "comfort-range excursion: high temperature combined with high humidity"
	r.RemediationSteps = environmentalPlaybook
	r.Confidence = 0.85
	return &r
}

// DetectLearned scores features with scorer and emits a report when the
// score exceeds 0.7, with severity a step function of the score.
func DetectLearned(parameter string, scorer *mlmodel.LinearScorer, features []float64) *Report {
	score := scorer.Score(features)
	if score <= 0.7 {
		return nil
	}
	var sev Severity
	if score > 0.9 {
		sev = SeverityCritical
	} else {
		sev = SeverityHigh
	}

	r := newReport(TypeLearned, sev)
	r.Parameter = parameter
	r.Description = fmt.Sprintf("learned anomaly score %.3f for %s exceeded the reporting threshold", score, parameter)
	r.Confidence = score
	return &r
}
