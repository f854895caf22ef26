// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"regexp"
	"strings"

	"github.com/circutor-labs/protogateway/internal/descriptor"
)

// errorRowPattern matches "<code> <description>" rows where code follows
// one of the common vendor conventions: E###, 0x##, S###.
var errorRowPattern = regexp.MustCompile(`(?i)^\s*(E\d{2,4}|0x[0-9A-Fa-f]{2,4}|S\d{2,4})\b[:\s\-]+(.+)$`)

// troubleshootingLinePattern matches a free-text troubleshooting/remedy
// line, the kind that follows an error row in vendor documentation.
var troubleshootingLinePattern = regexp.MustCompile(`(?i)^\s*(?:troubleshoot(?:ing)?|remedy|resolution|fix)[:\s\-]+(.+)$`)

// ExtractErrorCodes sweeps text for error-code rows and, per paragraph
// block (text separated by a blank line), attaches any troubleshooting
// line to the nearest preceding error row in that same block. A
// troubleshooting line with no preceding error row in its block is
// discarded rather than attached speculatively — adjacency across a
// blank-line boundary is never assumed.
func ExtractErrorCodes(text string) map[string]descriptor.ErrorCodeEntry {
	out := make(map[string]descriptor.ErrorCodeEntry)

	for _, block := range strings.Split(text, "\n\n") {
		lastCode := ""
		for _, line := range strings.Split(block, "\n") {
			if m := errorRowPattern.FindStringSubmatch(line); m != nil {
				code := strings.ToUpper(strings.TrimSpace(m[1]))
				entry := out[code]
				entry.Description = strings.TrimSpace(m[2])
				out[code] = entry
				lastCode = code
				continue
			}
			if m := troubleshootingLinePattern.FindStringSubmatch(line); m != nil {
				if lastCode == "" {
					continue
				}
				entry := out[lastCode]
				entry.RemediationSteps = append(entry.RemediationSteps, strings.TrimSpace(m[1]))
				out[lastCode] = entry
			}
		}
	}

	return out
}
