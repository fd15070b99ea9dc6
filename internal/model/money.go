package model

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
)

// Money is a nullable monetary amount carried as an exact decimal.
// Filings and LLM output represent amounts inconsistently — bare JSON
// numbers, comma-grouped strings ("1,234.5"), dollar-prefixed strings —
// so unmarshaling normalizes all of these. Absent, null, empty, or "-"
// values parse as invalid rather than zero.
type Money struct {
	Dec   decimal.Decimal
	Valid bool
}

// MoneyFrom wraps a decimal as a valid Money.
func MoneyFrom(d decimal.Decimal) Money {
	return Money{Dec: d, Valid: true}
}

// MoneyFromInt wraps an integer as a valid Money.
func MoneyFromInt(n int64) Money {
	return Money{Dec: decimal.NewFromInt(n), Valid: true}
}

// ParseMoney parses a numeric or comma-formatted string amount.
func ParseMoney(s string) (Money, error) {
	cleaned := normalizeAmount(s)
	if cleaned == "" {
		return Money{}, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{}, eris.Wrapf(err, "model: parse amount %q", s)
	}
	return Money{Dec: d, Valid: true}, nil
}

func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a") {
		return ""
	}
	// Accounting-style negatives: (123.4)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	return s
}

// UnmarshalJSON accepts a JSON number, a formatted string, or null.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*m = Money{}
		return nil
	}
	if data[0] == '"' {
		if len(data) < 2 || data[len(data)-1] != '"' {
			return eris.Errorf("model: malformed string amount %s", string(data))
		}
		parsed, err := ParseMoney(string(data[1 : len(data)-1]))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return eris.Wrapf(err, "model: parse numeric amount %s", string(data))
	}
	*m = Money{Dec: d, Valid: true}
	return nil
}

// MarshalJSON emits a bare JSON number, or null when invalid.
func (m Money) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return []byte(m.Dec.String()), nil
}

// String renders the amount, or "-" when invalid.
func (m Money) String() string {
	if !m.Valid {
		return "-"
	}
	return m.Dec.String()
}

// IsZero reports whether the amount is valid and exactly zero.
func (m Money) IsZero() bool {
	return m.Valid && m.Dec.IsZero()
}

// Equal reports valid/value equality.
func (m Money) Equal(other Money) bool {
	if m.Valid != other.Valid {
		return false
	}
	if !m.Valid {
		return true
	}
	return m.Dec.Equal(other.Dec)
}
