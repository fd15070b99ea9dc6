package model

import (
	"time"
)

// FormType identifies a filing form.
type FormType string

const (
	Form10K FormType = "10-K"
	Form10Q FormType = "10-Q"
)

// FilingRef identifies the latest filing the source index reported for a
// ticker/form pair. Immutable once resolved.
type FilingRef struct {
	Ticker    string    `json:"ticker"`
	FormType  FormType  `json:"form_type"`
	FiledAt   time.Time `json:"filed_at"`
	SourceURL string    `json:"source_url"`
	LocalPath string    `json:"local_path,omitempty"`
}

// ArtifactMeta is the sidecar record stored next to filing bytes. It
// carries the filed date explicitly so freshness checks never fall back
// to filename parsing or file mtimes.
type ArtifactMeta struct {
	Ticker    string    `json:"ticker"`
	FormType  FormType  `json:"form_type"`
	FiledAt   time.Time `json:"filed_at"`
	StoredAt  time.Time `json:"stored_at"`
	SourceURL string    `json:"source_url,omitempty"`
}

// DebtInstrument is one row of the extracted debt table, in filing order.
type DebtInstrument struct {
	Type             string `json:"type"`
	Amount           Money  `json:"amount"`
	HoldingsFraction Money  `json:"holdings_fraction"`
	Coupon           string `json:"coupon"`
	Secured          string `json:"secured"`
	Maturity         string `json:"maturity"`
}

// CapTableRecord is the structured capitalization table extracted from a
// ticker's filings, replaced wholesale on each successful extraction.
// book_capitalization and market_capitalization are derived; ratio values
// are formatted strings or the "-" placeholder.
type CapTableRecord struct {
	Ticker               string            `json:"ticker"`
	AsOf                 string            `json:"as_of"`
	CashAndEquivalents   Money             `json:"cash_and_equivalents"`
	Debt                 []DebtInstrument  `json:"debt"`
	TotalDebt            Money             `json:"total_debt"`
	BookValueOfEquity    Money             `json:"book_value_of_equity"`
	MarketValueOfEquity  Money             `json:"market_value_of_equity"`
	BookCapitalization   Money             `json:"book_capitalization"`
	MarketCapitalization Money             `json:"market_capitalization"`
	LTMAdjEBITDA         Money             `json:"ltm_adj_ebitda"`
	COLs                 Money             `json:"total_debt_plus_cols"`
	AdjEBITDAR           Money             `json:"adj_ebitdar"`
	KeyFinancialRatios   map[string]string `json:"key_financial_ratios"`
	DebtFootnotes        map[string]string `json:"debt_footnotes"`
}

// BuildStatus is the user-visible outcome class of a build.
type BuildStatus string

const (
	StatusOK BuildStatus = "ok"
	// StatusWarning means the LLM responded but its output could not be
	// structured; the raw text is returned instead of a record.
	StatusWarning BuildStatus = "warning"
	StatusError   BuildStatus = "error"
)

// BuildResult is the transient per-request outcome. Its components are
// persisted individually; the result itself is not.
type BuildResult struct {
	Ticker            string          `json:"ticker"`
	Status            BuildStatus     `json:"status"`
	Cached            bool            `json:"cached"`
	Record            *CapTableRecord `json:"record,omitempty"`
	RawOutput         string          `json:"raw_output,omitempty"`
	Warning           string          `json:"warning,omitempty"`
	JSON              []byte          `json:"-"`
	CSV               []byte          `json:"-"`
	ArtifactLocations []string        `json:"artifact_locations,omitempty"`
}
