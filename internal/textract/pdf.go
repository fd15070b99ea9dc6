package textract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// PDFExtractor extracts per-page plain text in document order.
type PDFExtractor struct{}

// Extract reads every page of the PDF. Corrupt documents make the
// underlying reader panic (e.g. "zlib: invalid header"); that is
// recovered into a degraded result. Pages that fail individually are
// skipped.
func (e *PDFExtractor) Extract(data []byte) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Degraded: true, Err: eris.Errorf("textract: panic reading pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Degraded: true, Err: eris.Wrap(err, "textract: open pdf")}
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Result{Degraded: true, Err: eris.New("textract: pdf yielded no text")}
	}
	return Result{Text: text}
}
