// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"regexp"
	"strconv"
	"strings"
)

// intentKeywords maps each recognized operation to the phrases that
// signal it in an operator query. Order matters: set/compare/trend/status
// are checked before the get fallback, since "set the X to 5" also
// contains no get-specific keyword and "what is the trend of X" contains
// "is" which would otherwise look like a get.
var intentKeywords = []struct {
	op       Operation
	keywords []string
}{
	{OpSet, []string{"set ", "change ", "write ", "adjust "}},
	{OpCompare, []string{"compare", "versus", " vs "}},
	{OpTrend, []string{"trend", "history", "over time", "last week", "last hour"}},
	{OpStatus, []string{"status", "state of", "health", "is it working", "online"}},
	{OpGet, []string{"what is", "what's", "read ", "get ", "current value", "show me"}},
}

var valuePattern = regexp.MustCompile(`-?\d+(\.\d+)?`)
var locationPattern = regexp.MustCompile(`(?i)\bin (?:the )?([a-z0-9 ]+?)(?:\s+(?:zone|room))\b|\bzone ([a-z0-9_-]+)`)

// classifyIntent runs the keyword table against a lowercased query and
// returns the first matching operation, defaulting to OpGet when nothing
// matches — an unqualified "temperature in room 2" is a read request.
func classifyIntent(lower string) Operation {
	for _, entry := range intentKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.op
			}
		}
	}
	return OpGet
}

// extractParameter returns the longest known parameter name that occurs
// as a substring of the lowercased query, so "zone temperature" prefers
// "zone_temperature" over a bare "temperature" when both are known.
func extractParameter(lower string, known []string) string {
	best := ""
	for _, name := range known {
		candidate := strings.ToLower(strings.ReplaceAll(name, "_", " "))
		if strings.Contains(lower, candidate) && len(candidate) > len(best) {
			best = candidate
		}
	}
	if best == "" {
		return ""
	}
	for _, name := range known {
		if strings.ToLower(strings.ReplaceAll(name, "_", " ")) == best {
			return name
		}
	}
	return ""
}

func extractLocation(lower string) string {
	m := locationPattern.FindStringSubmatch(lower)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

func extractValue(lower string) (float64, bool) {
	m := valuePattern.FindString(lower)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractEntities recovers the parameter/location/value triple from a
// query. known is the union of parameter names across whatever
// descriptors the caller has in scope.
func extractEntities(query string, known []string) Entities {
	lower := strings.ToLower(query)
	e := Entities{
		Parameter: extractParameter(lower, known),
		Location:  extractLocation(lower),
	}
	if v, ok := extractValue(lower); ok {
		e.Value = &v
		e.HasValue = true
	}
	return e
}
