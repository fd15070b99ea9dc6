package textract

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// HTMLExtractor extracts visible text from an HTML filing rendering.
type HTMLExtractor struct{}

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_-]+)`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Extract parses the document, drops script and style subtrees, and
// returns body text with block boundaries preserved as newlines.
func (e *HTMLExtractor) Extract(data []byte) Result {
	decoded, err := decodeCharset(data)
	if err != nil {
		// Undecodable charset: parse the raw bytes and hope for ASCII.
		decoded = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return Result{Degraded: true, Err: eris.Wrap(err, "textract: parse html")}
	}

	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		sb.WriteString(sel.Text())
	})
	text := sb.String()
	if text == "" {
		text = doc.Text()
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return Result{Degraded: true, Err: eris.New("textract: html yielded no text")}
	}
	return Result{Text: text}
}

// decodeCharset converts documents with a declared non-UTF-8 charset.
func decodeCharset(data []byte) ([]byte, error) {
	m := metaCharsetRe.FindSubmatch(data)
	if m == nil {
		return data, nil
	}
	name := strings.ToLower(string(m[1]))
	if name == "utf-8" || name == "utf8" || name == "us-ascii" {
		return data, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "textract: charset %s", name)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "textract: decode %s", name)
	}
	return decoded, nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n\n"))
}
