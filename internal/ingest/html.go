// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/circutor-labs/protogateway/internal/common"
)

// HTMLExtractor reads an HTML-structured vendor document (an online
// manual exported as a single page) and flattens it to a text stream:
// each table row becomes a colon-joined line so the row/phrase regex
// sweeps elsewhere in this package see the same shape they'd see in a
// plain-text document. Grounded on the table/selection-walking idiom
// used to process HTML documents.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", common.NewDecodeError("HTML extraction failed", err)
	}
	return ExtractHTML(string(b))
}

// ExtractHTML parses an already-read HTML string (rather than a
// filesystem path) into the same flattened line format.
func ExtractHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", common.NewDecodeError("could not parse HTML document", err)
	}
	return flattenHTML(doc), nil
}

func flattenHTML(doc *goquery.Document) string {
	var b strings.Builder

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			b.WriteString(strings.Join(cells, ": "))
			b.WriteString("\n")
		}
	})

	doc.Find("p, li, h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})

	return b.String()
}
