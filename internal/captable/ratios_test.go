package captable

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/captable-cli/internal/model"
)

func money(s string) model.Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return model.MoneyFrom(d)
}

func TestComputeCapitalizations(t *testing.T) {
	rec := Compute(model.CapTableRecord{
		TotalDebt:           money("1000"),
		BookValueOfEquity:   money("500"),
		MarketValueOfEquity: money("2000"),
	})

	assert.True(t, rec.BookCapitalization.Equal(money("1500")))
	assert.True(t, rec.MarketCapitalization.Equal(money("3000")))
}

func TestComputeCapitalizationExact(t *testing.T) {
	// Operands that would drift under binary floats stay exact.
	rec := Compute(model.CapTableRecord{
		TotalDebt:         money("0.1"),
		BookValueOfEquity: money("0.2"),
	})
	assert.Equal(t, "0.3", rec.BookCapitalization.Dec.String())
}

func TestComputeCapitalizationMissingOperand(t *testing.T) {
	rec := Compute(model.CapTableRecord{TotalDebt: money("1000")})
	assert.False(t, rec.BookCapitalization.Valid)
	assert.False(t, rec.MarketCapitalization.Valid)
}

func TestComputeRatios(t *testing.T) {
	rec := Compute(model.CapTableRecord{
		CashAndEquivalents:  money("200"),
		TotalDebt:           money("1000"),
		BookValueOfEquity:   money("500"),
		MarketValueOfEquity: money("2000"),
		LTMAdjEBITDA:        money("400"),
		COLs:                money("300"),
		AdjEBITDAR:          money("500"),
	})

	// book_cap 1500, market_cap 3000, debt+cols 1300, net 1100
	assert.Equal(t, "2.5x", rec.KeyFinancialRatios[RatioDebtToEBITDA])
	assert.Equal(t, "33.3%", rec.KeyFinancialRatios[RatioDebtToMarketCap])
	assert.Equal(t, "2.60x", rec.KeyFinancialRatios[RatioDebtCOLsToEBITDAR])
	assert.Equal(t, "2.20x", rec.KeyFinancialRatios[RatioNetDebtToEBITDAR])
	assert.Equal(t, "86.67%", rec.KeyFinancialRatios[RatioDebtCOLsToBookCap])
	assert.Equal(t, "43.33%", rec.KeyFinancialRatios[RatioDebtCOLsToMktCap])
}

func TestComputePlaceholders(t *testing.T) {
	// Missing EBITDA and equity figures leave every ratio populated
	// with the placeholder, never omitted.
	rec := Compute(model.CapTableRecord{TotalDebt: money("1000")})

	require.Len(t, rec.KeyFinancialRatios, len(ratioOrder))
	for _, key := range ratioOrder {
		assert.Equal(t, "-", rec.KeyFinancialRatios[key], key)
	}
}

func TestComputeZeroDenominator(t *testing.T) {
	rec := Compute(model.CapTableRecord{
		TotalDebt:    money("1000"),
		LTMAdjEBITDA: money("0"),
	})
	assert.Equal(t, "-", rec.KeyFinancialRatios[RatioDebtToEBITDA])
}

func TestComputeIdempotent(t *testing.T) {
	rec := Compute(model.CapTableRecord{
		CashAndEquivalents:  money("200"),
		TotalDebt:           money("1000"),
		BookValueOfEquity:   money("500"),
		MarketValueOfEquity: money("2000"),
		LTMAdjEBITDA:        money("400"),
		COLs:                money("300"),
		AdjEBITDAR:          money("500"),
	})
	again := Compute(rec)

	assert.Equal(t, rec.KeyFinancialRatios, again.KeyFinancialRatios)
	assert.True(t, rec.BookCapitalization.Equal(again.BookCapitalization))
	assert.True(t, rec.MarketCapitalization.Equal(again.MarketCapitalization))
}

func TestComputeNegativeNetDebt(t *testing.T) {
	// More cash than debt+COLs makes the net ratio negative, not "-".
	rec := Compute(model.CapTableRecord{
		CashAndEquivalents: money("2000"),
		TotalDebt:          money("1000"),
		COLs:               money("300"),
		AdjEBITDAR:         money("500"),
	})
	assert.Equal(t, "-1.40x", rec.KeyFinancialRatios[RatioNetDebtToEBITDAR])
}
