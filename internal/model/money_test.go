package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		valid   bool
		wantErr bool
	}{
		{name: "bare number", input: `1000`, want: "1000", valid: true},
		{name: "decimal number", input: `1234.56`, want: "1234.56", valid: true},
		{name: "negative number", input: `-42.5`, want: "-42.5", valid: true},
		{name: "comma string", input: `"1,234,567.89"`, want: "1234567.89", valid: true},
		{name: "dollar prefix", input: `"$500"`, want: "500", valid: true},
		{name: "accounting negative", input: `"(123.4)"`, want: "-123.4", valid: true},
		{name: "null", input: `null`, valid: false},
		{name: "empty string", input: `""`, valid: false},
		{name: "dash placeholder", input: `"-"`, valid: false},
		{name: "n/a", input: `"N/A"`, valid: false},
		{name: "garbage string", input: `"twelve"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.valid, m.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, m.Dec.String())
			}
		})
	}
}

func TestMoneyMarshal(t *testing.T) {
	m := MoneyFromInt(1500)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "1500", string(data))

	data, err = json.Marshal(Money{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestMoneyRoundTrip(t *testing.T) {
	orig := MoneyFrom(decimal.RequireFromString("123456.78"))
	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, orig.Equal(back))
}

func TestCapTableRecordRoundTrip(t *testing.T) {
	rec := CapTableRecord{
		Ticker:             "ACME",
		AsOf:               "2026-06-30",
		CashAndEquivalents: MoneyFromInt(250),
		Debt: []DebtInstrument{
			{Type: "Senior Secured Notes", Amount: MoneyFromInt(600), Coupon: "6.25%", Secured: "yes", Maturity: "2029"},
			{Type: "Revolver", Amount: MoneyFromInt(400), Secured: "yes", Maturity: "2027"},
		},
		TotalDebt:         MoneyFromInt(1000),
		BookValueOfEquity: MoneyFromInt(500),
		KeyFinancialRatios: map[string]string{
			"total_debt_to_adj_ebitda": "2.5x",
		},
		DebtFootnotes: map[string]string{"1": "Includes accrued interest."},
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back CapTableRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec.Ticker, back.Ticker)
	assert.Equal(t, rec.AsOf, back.AsOf)
	assert.True(t, rec.TotalDebt.Equal(back.TotalDebt))
	assert.True(t, rec.BookValueOfEquity.Equal(back.BookValueOfEquity))
	require.Len(t, back.Debt, 2)
	assert.Equal(t, rec.Debt[0].Type, back.Debt[0].Type)
	assert.True(t, rec.Debt[0].Amount.Equal(back.Debt[0].Amount))
	assert.Equal(t, rec.KeyFinancialRatios, back.KeyFinancialRatios)
	assert.Equal(t, rec.DebtFootnotes, back.DebtFootnotes)
}

func TestParseMoney(t *testing.T) {
	m, err := ParseMoney("1,000")
	require.NoError(t, err)
	assert.True(t, m.Valid)
	assert.Equal(t, "1000", m.Dec.String())

	m, err = ParseMoney("")
	require.NoError(t, err)
	assert.False(t, m.Valid)
}
