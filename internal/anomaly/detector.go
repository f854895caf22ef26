// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package anomaly

import (
	"math"
	"sort"
	"time"

	"github.com/circutor-labs/protogateway/internal/descriptor"
	"github.com/circutor-labs/protogateway/internal/mlmodel"
	"github.com/circutor-labs/protogateway/internal/session"
)

// learnedFeatureCount is the feature count the learned scorer expects.
const learnedFeatureCount = 32

// Detector runs all six strategies over one device's current readings and
// history. It is a constructed component, not a global. It keeps no
// per-device state, so a gateway builds one Detector and uses it for
// every session.
type Detector struct {
	scorer *mlmodel.LinearScorer
	now    func() time.Time
}

// New builds a Detector with a fixed-weight learned scorer and the real
// wall clock. Tests may override now via NewWithClock.
func New() *Detector {
	return &Detector{scorer: mlmodel.NewAnomalyScorer(), now: time.Now}
}

// NewWithClock builds a Detector whose "now" is supplied by the caller,
// for deterministic maintenance-overdue tests.
func NewWithClock(now func() time.Time) *Detector {
	return &Detector{scorer: mlmodel.NewAnomalyScorer(), now: now}
}

// baselines maps parameter name to its first-observed value within a
// session's retained history, used by the drift strategy.
func baselines(history []session.Reading) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range history {
		if _, ok := out[r.Parameter]; !ok {
			out[r.Parameter] = r.Value
		}
	}
	return out
}

// windows groups history into per-parameter rolling windows, oldest first.
func windows(history []session.Reading) map[string][]float64 {
	out := make(map[string][]float64)
	for _, r := range history {
		out[r.Parameter] = append(out[r.Parameter], r.Value)
	}
	return out
}

// latestValues returns, per parameter, the most recently recorded value.
func latestValues(history []session.Reading) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range history {
		out[r.Parameter] = r.Value
	}
	return out
}

// LastMaintenance carries the operational "last performed" timestamp per
// maintenance task, keyed by the same task name used in
// DeviceDescriptor.MaintenanceSchedule. This is runtime state reported
// alongside a reading batch, not documentation-derived truth, so it is
// supplied by the caller rather than stored on the descriptor.
type LastMaintenance map[string]time.Time

// Detect runs range, drift, pattern, maintenance, environmental, and
// learned-score strategies over desc and the session's retained history, returning
// every report produced, sorted by descending severity rank then
// parameter name for determinism.
func (d *Detector) Detect(desc *descriptor.DeviceDescriptor, history []session.Reading, lastMaintenance LastMaintenance) []Report {
	var reports []Report

	base := baselines(history)
	latest := latestValues(history)
	win := windows(history)

	for name, p := range desc.Parameters {
		value, ok := latest[name]
		if !ok {
			continue
		}
		if r := DetectRange(name, p, value); r != nil {
			reports = append(reports, *r)
		}
		if r := DetectDrift(name, p, base[name], value); r != nil {
			reports = append(reports, *r)
		}
		if r := DetectPattern(name, p, win[name]); r != nil {
			reports = append(reports, *r)
		}
	}

	for task, intervalDays := range desc.MaintenanceSchedule {
		last, ok := lastMaintenance[task]
		if !ok {
			continue
		}
		if r := DetectMaintenance(task, intervalDays, last, d.now()); r != nil {
			reports = append(reports, *r)
		}
	}

	if temp, okT := latest["temperature"]; okT {
		if humidity, okH := latest["humidity"]; okH {
			if r := DetectEnvironmental(temp, humidity); r != nil {
				reports = append(reports, *r)
			}
		}
	}

	for name, p := range desc.Parameters {
		w, ok := win[name]
		if !ok {
			continue
		}
		if r := DetectLearned(name, d.scorer, learnedFeatures(p, w, d.now())); r != nil {
			reports = append(reports, *r)
		}
	}

	sortReports(reports)
	return reports
}

// clamp bounds v to [-1, 1]; every learned feature is normalized to this
// range so a handful of fixed, modestly-scaled weights can combine
// without any single feature dominating the score.
func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// learnedFeatures builds the 32-feature vector the anomaly scorer
// expects: the magnitude of the current reading's deviation from center
// and the magnitude of its change since the previous reading, both
// normalized against the parameter's error range, plus time-of-day and
// time-of-week position encoded as sin/cos pairs. Both magnitude
// features are unsigned (clamp of an absolute value) rather than signed,
// so the scorer's single positive weight on each catches a deviation
// or jump in either direction instead of only the one matching the
// weight's sign. Remaining slots stay zero until richer device-context
// features are wired in.
func learnedFeatures(p descriptor.ParameterSpec, window []float64, now time.Time) []float64 {
	feats := make([]float64, learnedFeatureCount)
	if len(window) == 0 {
		return feats
	}

	halfWidth := p.ErrorRange.Width() / 2
	if halfWidth == 0 {
		halfWidth = 1
	}
	center := p.NormalRange.Center()
	current := window[len(window)-1]
	feats[0] = clamp(math.Abs(current-center) / halfWidth)

	if len(window) >= 2 {
		previous := window[len(window)-2]
		feats[1] = clamp(math.Abs(current-previous) / halfWidth)
	}

	const hoursPerDay = 24.0
	const daysPerWeek = 7.0
	hourOfDay := float64(now.Hour()) + float64(now.Minute())/60.0
	dayOfWeek := float64(now.Weekday())

	feats[2] = math.Sin(2 * math.Pi * hourOfDay / hoursPerDay)
	feats[3] = math.Cos(2 * math.Pi * hourOfDay / hoursPerDay)
	feats[4] = math.Sin(2 * math.Pi * dayOfWeek / daysPerWeek)
	feats[5] = math.Cos(2 * math.Pi * dayOfWeek / daysPerWeek)

	return feats
}

var severityRank = map[Severity]int{
	SeverityCritical: 3,
	SeverityHigh:      2,
	SeverityMedium:    1,
	SeverityLow:       0,
}

func sortReports(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		ri, rj := severityRank[reports[i].Severity], severityRank[reports[j].Severity]
		if ri != rj {
			return ri > rj
		}
		return reports[i].Parameter < reports[j].Parameter
	})
}
