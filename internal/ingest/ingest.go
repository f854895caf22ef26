// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"github.com/circutor-labs/protogateway/internal/descriptor"
)

// Ingest runs the full pipeline over the document at path: text
// extraction, identity, parameters, error table, and maintenance
// extraction, producing a DeviceDescriptor. Fields the document never
// supported are left at their zero value and the descriptor is marked
// Partial, rather than guessed. Maintenance intervals that cannot be
// normalized to days fail the whole ingestion rather than being dropped
// silently.
func Ingest(path string, extractors ...Extractor) (*descriptor.DeviceDescriptor, error) {
	text, err := ExtractText(path, extractors...)
	if err != nil {
		return nil, err
	}
	return IngestText(text)
}

// IngestText runs the identity/parameter/error/maintenance sweeps over
// already-extracted text. Exposed separately from Ingest so HTML
// documents (flattened via ExtractHTML) and test fixtures can skip the
// file-extraction fallback chain.
func IngestText(text string) (*descriptor.DeviceDescriptor, error) {
	id := ExtractIdentity(text)

	maintenance, err := ExtractMaintenance(text)
	if err != nil {
		return nil, err
	}

	d := &descriptor.DeviceDescriptor{
		DeviceID:             descriptor.DeviceID(valueOr(id.Manufacturer, "unknown"), valueOr(id.Model, "unknown")),
		Manufacturer:         id.Manufacturer,
		Model:                id.Model,
		DeviceType:           id.DeviceType,
		ProtocolName:         id.ProtocolName,
		Parameters:           ExtractParameters(text, id.ProtocolName),
		ErrorCodes:           ExtractErrorCodes(text),
		TroubleshootingSteps: ExtractTroubleshooting(text),
		MaintenanceSchedule:  maintenance,
		RawText:              text,
		Partial:              id.Manufacturer == "" || id.Model == "" || id.DeviceType == "" || id.ProtocolName == "",
	}

	return d, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
