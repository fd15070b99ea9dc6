package captable

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sells-group/captable-cli/internal/model"
)

// Placeholder published for a ratio whose inputs are incomplete or
// whose denominator is zero. Renderers rely on the key always being
// present.
const ratioPlaceholder = "-"

// Ratio keys, published in full on every computation.
const (
	RatioDebtToEBITDA       = "total_debt_to_adj_ebitda"
	RatioDebtToMarketCap    = "total_debt_to_market_capitalization"
	RatioDebtCOLsToEBITDAR  = "total_debt_plus_cols_to_adj_ebitdar"
	RatioNetDebtToEBITDAR   = "net_debt_plus_cols_to_adj_ebitdar"
	RatioDebtCOLsToBookCap  = "total_debt_plus_cols_to_book_capitalization"
	RatioDebtCOLsToMktCap   = "total_debt_plus_cols_to_market_capitalization"
)

// ratioLabels are the human-readable row labels used by the CSV and
// XLSX renderings.
var ratioLabels = map[string]string{
	RatioDebtToEBITDA:      "Total Debt / Adj. EBITDA",
	RatioDebtToMarketCap:   "Total Debt / Market Capitalization",
	RatioDebtCOLsToEBITDAR: "Total Debt + COLs / Adj. EBITDAR",
	RatioNetDebtToEBITDAR:  "Net Debt + COLs / Adj. EBITDAR",
	RatioDebtCOLsToBookCap: "Total Debt + COLs / Book Capitalization",
	RatioDebtCOLsToMktCap:  "Total Debt + COLs / Market Capitalization",
}

// ratioOrder fixes the row order in rendered artifacts.
var ratioOrder = []string{
	RatioDebtToEBITDA,
	RatioDebtToMarketCap,
	RatioDebtCOLsToEBITDAR,
	RatioNetDebtToEBITDAR,
	RatioDebtCOLsToBookCap,
	RatioDebtCOLsToMktCap,
}

// Compute derives the capitalization sums and financial ratios on exact
// decimals. It is pure and idempotent: derived fields are recomputed
// from the base fields each time, so re-running it on its own output
// changes nothing.
func Compute(rec model.CapTableRecord) model.CapTableRecord {
	rec.BookCapitalization = sumIfPresent(rec.TotalDebt, rec.BookValueOfEquity)
	rec.MarketCapitalization = sumIfPresent(rec.TotalDebt, rec.MarketValueOfEquity)

	debtPlusCOLs := sumIfPresent(rec.TotalDebt, rec.COLs)
	netDebtPlusCOLs := model.Money{}
	if debtPlusCOLs.Valid && rec.CashAndEquivalents.Valid {
		netDebtPlusCOLs = model.MoneyFrom(debtPlusCOLs.Dec.Sub(rec.CashAndEquivalents.Dec))
	}

	ratios := map[string]string{
		RatioDebtToEBITDA:      multiple(rec.TotalDebt, rec.LTMAdjEBITDA, 1),
		RatioDebtToMarketCap:   percentage(rec.TotalDebt, rec.MarketCapitalization, 1),
		RatioDebtCOLsToEBITDAR: multiple(debtPlusCOLs, rec.AdjEBITDAR, 2),
		RatioNetDebtToEBITDAR:  multiple(netDebtPlusCOLs, rec.AdjEBITDAR, 2),
		RatioDebtCOLsToBookCap: percentage(debtPlusCOLs, rec.BookCapitalization, 2),
		RatioDebtCOLsToMktCap:  percentage(debtPlusCOLs, rec.MarketCapitalization, 2),
	}
	rec.KeyFinancialRatios = ratios
	return rec
}

func sumIfPresent(a, b model.Money) model.Money {
	if !a.Valid || !b.Valid {
		return model.Money{}
	}
	return model.MoneyFrom(a.Dec.Add(b.Dec))
}

// multiple formats num/den as "{value}x" with the given decimal places.
func multiple(num, den model.Money, places int32) string {
	v, ok := divide(num, den)
	if !ok {
		return ratioPlaceholder
	}
	return fmt.Sprintf("%sx", v.StringFixed(places))
}

// percentage formats num/den*100 as "{value}%" with the given places.
func percentage(num, den model.Money, places int32) string {
	v, ok := divide(num, den)
	if !ok {
		return ratioPlaceholder
	}
	return fmt.Sprintf("%s%%", v.Mul(decimal.NewFromInt(100)).StringFixed(places))
}

// ratioDivPrecision bounds non-terminating divisions well past the
// rendered places.
const ratioDivPrecision = 8

func divide(num, den model.Money) (decimal.Decimal, bool) {
	if !num.Valid || !den.Valid || den.Dec.IsZero() {
		return decimal.Decimal{}, false
	}
	return num.Dec.DivRound(den.Dec, ratioDivPrecision), true
}
