// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package vectorindex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/circutor-labs/protogateway/internal/descriptor"
)

const rawTextPrefixLen = 512

// CanonicalText builds the text summary that gets embedded for a
// descriptor: identity, then parameters, then error codes, then
// troubleshooting steps, then a bounded prefix of raw_text, in that
// fixed order so the same descriptor always embeds to the same vector.
func CanonicalText(d *descriptor.DeviceDescriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Manufacturer: %s\n", d.Manufacturer)
	fmt.Fprintf(&b, "Model: %s\n", d.Model)
	fmt.Fprintf(&b, "Device type: %s\n", d.DeviceType)
	fmt.Fprintf(&b, "Protocol: %s\n", d.ProtocolName)

	if len(d.Parameters) > 0 {
		b.WriteString("Parameters:\n")
		names := sortedKeys(d.Parameters)
		for _, name := range names {
			p := d.Parameters[name]
			fmt.Fprintf(&b, "  - %s (%s) in %s\n", p.Name, p.Type, p.Unit)
		}
	}

	if len(d.ErrorCodes) > 0 {
		b.WriteString("Error codes:\n")
		codes := sortedKeys(d.ErrorCodes)
		for _, code := range codes {
			fmt.Fprintf(&b, "  - %s: %s\n", code, d.ErrorCodes[code].Description)
		}
	}

	if len(d.TroubleshootingSteps) > 0 {
		b.WriteString("Troubleshooting:\n")
		for _, step := range d.TroubleshootingSteps {
			fmt.Fprintf(&b, "  - %s\n", step)
		}
	}

	if d.RawText != "" {
		raw := d.RawText
		if len(raw) > rawTextPrefixLen {
			raw = raw[:rawTextPrefixLen]
		}
		b.WriteString(raw)
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
