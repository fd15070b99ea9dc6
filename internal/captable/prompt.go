// Package captable builds capitalization tables for a ticker: it
// resolves the latest filings, extracts their text, asks the model for
// a structured record, derives the financial ratios, and persists the
// result artifacts.
package captable

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// Section labels prefixing each filing's text in the combined prompt.
const (
	label10K = "10-K FILING:"
	label10Q = "10-Q FILING:"
)

// systemInstruction is fixed; determinism comes from it plus
// temperature zero.
const systemInstruction = `You are a financial analyst extracting capital structure data from SEC filings.

From the filing text provided, extract the company's capitalization table as a single JSON object with exactly these fields:

{
  "ticker": "string",
  "as_of": "YYYY-MM-DD balance sheet date",
  "cash_and_equivalents": number in millions,
  "debt": [
    {
      "type": "instrument name, e.g. Senior Secured Notes",
      "amount": number in millions (outstanding principal),
      "holdings_fraction": number in millions held by the company, if disclosed,
      "coupon": "interest rate as disclosed, e.g. 5.25%",
      "secured": "secured" or "unsecured",
      "maturity": "maturity year or date as disclosed"
    }
  ],
  "total_debt": number in millions,
  "book_value_of_equity": number in millions (total stockholders' equity),
  "market_value_of_equity": number in millions if determinable, else null,
  "ltm_adj_ebitda": number in millions (last twelve months adjusted EBITDA), else null,
  "total_debt_plus_cols": number in millions (total debt plus capitalized operating lease obligations), else null,
  "adj_ebitdar": number in millions (adjusted EBITDAR), else null,
  "debt_footnotes": { "instrument name": "relevant footnote text" }
}

Rules:
- List debt instruments in the order they appear in the filing.
- Use null for any value the filings do not disclose. Never invent figures.
- Amounts are plain numbers in millions of dollars, without currency symbols or thousands separators.
- Prefer the most recent balance sheet (the 10-Q when present, otherwise the 10-K).
- Respond with the JSON object only, inside a ` + "```json" + ` fence.`

// buildUserContent concatenates the extracted filing texts with section
// labels, annual report first.
func buildUserContent(text10K, text10Q string) string {
	var sb strings.Builder
	sb.WriteString(label10K)
	sb.WriteString("\n")
	sb.WriteString(text10K)
	if text10Q != "" {
		sb.WriteString("\n\n")
		sb.WriteString(label10Q)
		sb.WriteString("\n")
		sb.WriteString(text10Q)
	}
	return sb.String()
}

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// extractJSONPayload pulls the JSON document out of a model response.
// The first ```json fence wins; without one, the substring from the
// first '{' to the last '}' is used.
func extractJSONPayload(response string) (string, error) {
	if m := jsonFenceRe.FindStringSubmatch(response); m != nil {
		payload := strings.TrimSpace(m[1])
		if payload != "" {
			return payload, nil
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", eris.New("captable: model response contains no JSON object")
	}
	return response[start : end+1], nil
}
