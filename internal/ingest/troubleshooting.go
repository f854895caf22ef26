// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import "strings"

// ExtractTroubleshooting collects every troubleshooting/remedy line in
// the document, in encounter order, deduplicated. This feeds the
// descriptor-level troubleshooting_steps field, distinct from the
// per-error-code remediation steps ExtractErrorCodes attaches.
func ExtractTroubleshooting(text string) []string {
	var steps []string
	seen := make(map[string]bool)

	for _, line := range splitLines(text) {
		m := troubleshootingLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		step := strings.TrimSpace(m[1])
		if seen[step] {
			continue
		}
		seen[step] = true
		steps = append(steps, step)
	}
	return steps
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])
	return lines
}
