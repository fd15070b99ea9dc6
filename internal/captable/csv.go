package captable

import (
	"bytes"
	"encoding/csv"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/captable-cli/internal/model"
)

// debtHeader is the column header of the debt table block.
var debtHeader = []string{"Type", "Amount ($mm)", "Holdings ($mm)", "Coupon", "Secured", "Maturity"}

// renderCSV produces the fixed-layout CSV rendering of a record:
// company and as-of lines, cash, the debt table with totals, the
// capitalization block, the ratios block, and footnotes.
func renderCSV(rec model.CapTableRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Company", rec.Ticker},
		{"As of", rec.AsOf},
		{},
		{"Cash and Equivalents", rec.CashAndEquivalents.String()},
		{},
		debtHeader,
	}

	for _, d := range rec.Debt {
		rows = append(rows, []string{
			d.Type,
			d.Amount.String(),
			d.HoldingsFraction.String(),
			d.Coupon,
			d.Secured,
			d.Maturity,
		})
	}
	rows = append(rows,
		[]string{"Total Debt", rec.TotalDebt.String()},
		[]string{},
		[]string{"Book Value of Equity", rec.BookValueOfEquity.String()},
		[]string{"Market Value of Equity", rec.MarketValueOfEquity.String()},
		[]string{"Book Capitalization", rec.BookCapitalization.String()},
		[]string{"Market Capitalization", rec.MarketCapitalization.String()},
		[]string{},
		[]string{"Key Financial Ratios"},
	)

	for _, key := range ratioKeys(rec.KeyFinancialRatios) {
		rows = append(rows, []string{ratioLabel(key), rec.KeyFinancialRatios[key]})
	}

	if len(rec.DebtFootnotes) > 0 {
		rows = append(rows, []string{}, []string{"Footnotes"})
		keys := make([]string, 0, len(rec.DebtFootnotes))
		for k := range rec.DebtFootnotes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, []string{k, rec.DebtFootnotes[k]})
		}
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, eris.Wrap(err, "captable: write csv rows")
	}
	return buf.Bytes(), nil
}

// ratioKeys returns the record's ratio keys in canonical order,
// followed by any extra keys alphabetically.
func ratioKeys(ratios map[string]string) []string {
	seen := make(map[string]bool, len(ratios))
	var keys []string
	for _, key := range ratioOrder {
		if _, ok := ratios[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	var extra []string
	for k := range ratios {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func ratioLabel(key string) string {
	if label, ok := ratioLabels[key]; ok {
		return label
	}
	return key
}
