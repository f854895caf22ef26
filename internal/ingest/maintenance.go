// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/circutor-labs/protogateway/internal/common"
)

// maintenancePhrasePattern matches "<task>: <interval> <unit>" phrases,
// e.g. "sensor_calibration: 90 days" or "Filter replacement - 6 months".
// The unit group captures any trailing word, not just the recognized
// ones — recognition is checked separately against daysPerUnit, so an
// interval written in an unrecognized unit (e.g. "3 fortnights") is
// still matched and can actually reach the rejection path below, rather
// than silently failing to match at all. The task/interval separator
// requires a literal colon or dash rather than bare whitespace, so the
// pattern doesn't also snag space-separated register listings like
// "temperature 40001 holding x100" as a bogus maintenance phrase. The
// interval and its unit must follow the separator on the same line, so a
// hyphenated model number at a line end ("Model: TH-100" followed by a
// "Device Type:" line) is not read as an interval in unit "device".
var maintenancePhrasePattern = regexp.MustCompile(`(?i)([A-Za-z][A-Za-z0-9_ ]*?)[:\-]+[ \t]*(\d+(?:\.\d+)?)[ \t]*([A-Za-z]+)\b`)

// daysPerUnit normalizes every recognized interval unit to days. A unit
// absent from this table is un-normalizable; the source document stores
// maintenance intervals in inconsistent units across device types, and
// rather than guess a conversion, ingestion rejects the whole document.
var daysPerUnit = map[string]float64{
	"day": 1, "days": 1,
	"week": 7, "weeks": 7,
	"month": 30, "months": 30,
	"year": 365, "years": 365,
	"hour": 1.0 / 24, "hours": 1.0 / 24,
}

// ExtractMaintenance sweeps text for maintenance-interval phrases and
// normalizes each to a whole number of days. It returns an
// InvariantViolation error if any matched unit cannot be normalized,
// rejecting the whole document rather than silently defaulting.
func ExtractMaintenance(text string) (map[string]int, error) {
	out := make(map[string]int)

	for _, m := range maintenancePhrasePattern.FindAllStringSubmatch(text, -1) {
		task := slugify(m[1])
		if task == "" {
			continue
		}
		amount, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(m[3])
		perDay, ok := daysPerUnit[unit]
		if !ok {
			return nil, common.NewInvariantViolation(fmt.Sprintf("maintenance task %q has an un-normalizable interval unit %q", task, unit))
		}
		days := int(math.Round(amount * perDay))
		if days < 1 {
			days = 1
		}
		out[task] = days
	}

	return out, nil
}
