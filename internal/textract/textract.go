// Package textract turns fetched filing documents into plain text for
// the LLM prompt. Extraction failure is a degraded result, not an
// error: the build continues with whatever text survived.
package textract

import (
	"net/http"
	"strings"
)

// Result is the outcome of extracting one document. When Degraded is
// true, Text may be empty and Err holds the cause; callers log it and
// proceed with less context.
type Result struct {
	Text     string
	Degraded bool
	Err      error
}

// Extractor converts document bytes into plain text.
type Extractor interface {
	Extract(data []byte) Result
}

// ForContent picks an extractor by sniffing the document bytes, using
// the declared content type as a tiebreaker. Filing render endpoints
// return PDF for most filings and HTML for inline-XBRL ones.
func ForContent(data []byte, contentType string) Extractor {
	if len(data) >= 5 && string(data[:5]) == "%PDF-" {
		return &PDFExtractor{}
	}
	sniffed := http.DetectContentType(data)
	if strings.Contains(contentType, "html") || strings.Contains(sniffed, "html") {
		return &HTMLExtractor{}
	}
	return &PDFExtractor{}
}
