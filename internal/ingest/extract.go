// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

// Package ingest turns a vendor document into a DeviceDescriptor: text
// extraction, then regex/heuristic sweeps for identity, parameters, error
// codes, and maintenance intervals. Grounded on the Python reference
// implementation's PDFParser, which tries PyMuPDF, then pdfplumber, then
// PyPDF2 in turn and gives up below a minimum character floor. No PDF
// library appears anywhere in the retrieved pack, so extraction here is
// modeled behind the Extractor interface: a real PDF library slots in
// without touching the rest of the pipeline, and the layout and plain
// extractors shipped here operate directly on already-decoded text (e.g. a .txt
// export or an upstream OCR pass), which keeps this package network-free
// and deterministic.
package ingest

import (
	"os"

	"github.com/circutor-labs/protogateway/internal/common"
)

// minYieldFloor is the minimum character count a final extraction attempt
// must clear; below it the document is considered unreadable.
const minYieldFloor = 50

// fallbackThreshold is the character count below which the layout
// extractor is considered to have yielded too little, triggering the
// plain-text fallback.
const fallbackThreshold = 100

// Extractor turns a document path into its text content.
type Extractor interface {
	Extract(path string) (string, error)
}

// LayoutExtractor preserves whitespace and line structure, the way a
// layout-aware PDF reader would. Since no in-pack library performs PDF
// layout extraction, this reads the file's raw bytes verbatim: callers
// feed it layout-preserving text exports.
type LayoutExtractor struct{}

func (LayoutExtractor) Extract(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", common.NewDecodeError("layout extraction failed", err)
	}
	return string(b), nil
}

// PlainExtractor is the fallback when layout extraction yields too
// little. It reads the file's raw bytes verbatim, the same as
// LayoutExtractor, so on a text export it yields the same text.
type PlainExtractor struct{}

func (PlainExtractor) Extract(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", common.NewDecodeError("plain extraction failed", err)
	}
	return string(b), nil
}

// ExtractText runs the fallback chain: layout first, then plain if the
// layout yield is below fallbackThreshold, failing if the final yield is
// still below minYieldFloor.
func ExtractText(path string, extractors ...Extractor) (string, error) {
	if len(extractors) == 0 {
		extractors = []Extractor{LayoutExtractor{}, PlainExtractor{}}
	}

	var text string
	var lastErr error
	for _, ex := range extractors {
		t, err := ex.Extract(path)
		if err != nil {
			lastErr = err
			continue
		}
		text = t
		if len(text) >= fallbackThreshold {
			break
		}
	}

	if len(text) < minYieldFloor {
		return "", common.NewDecodeError("extracted text below minimum yield floor", lastErr)
	}
	return text, nil
}
