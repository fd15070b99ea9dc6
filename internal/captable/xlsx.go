package captable

import (
	"bytes"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/captable-cli/internal/model"
)

// renderXLSX produces a single-sheet workbook mirroring the CSV layout.
func renderXLSX(rec model.CapTableRecord) ([]byte, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Cap Table")
	if err != nil {
		return nil, eris.Wrap(err, "captable: add xlsx sheet")
	}

	addRow := func(values ...string) {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}

	addRow("Company", rec.Ticker)
	addRow("As of", rec.AsOf)
	addRow()
	addRow("Cash and Equivalents", rec.CashAndEquivalents.String())
	addRow()
	addRow(debtHeader...)
	for _, d := range rec.Debt {
		addRow(d.Type, d.Amount.String(), d.HoldingsFraction.String(), d.Coupon, d.Secured, d.Maturity)
	}
	addRow("Total Debt", rec.TotalDebt.String())
	addRow()
	addRow("Book Value of Equity", rec.BookValueOfEquity.String())
	addRow("Market Value of Equity", rec.MarketValueOfEquity.String())
	addRow("Book Capitalization", rec.BookCapitalization.String())
	addRow("Market Capitalization", rec.MarketCapitalization.String())
	addRow()
	addRow("Key Financial Ratios")
	for _, key := range ratioKeys(rec.KeyFinancialRatios) {
		addRow(ratioLabel(key), rec.KeyFinancialRatios[key])
	}

	if len(rec.DebtFootnotes) > 0 {
		addRow()
		addRow("Footnotes")
		keys := make([]string, 0, len(rec.DebtFootnotes))
		for k := range rec.DebtFootnotes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			addRow(k, rec.DebtFootnotes[k])
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "captable: write xlsx")
	}
	return buf.Bytes(), nil
}
