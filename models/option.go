package models

import (
	"time"
)

// OptionType distinguishes call and put rows.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// QuoteKey identifies one option series within a daily snapshot. The
// exchange publishes at most one row per key and per trading day.
type QuoteKey struct {
	ContractCode string
	Strike       float64
	Type         OptionType
}

// OptionQuoteRow is one exchange-reported row: a contract-month/strike/type
// with its end-of-day open interest and settlement (or close) price.
// Notional is always recomputed locally from OI, price and the contract
// multiplier; the upstream value is never trusted.
type OptionQuoteRow struct {
	ContractCode string     `json:"contract_code"`
	Strike       float64    `json:"strike"`
	Type         OptionType `json:"type"`
	OpenInterest float64    `json:"open_interest"`
	Price        float64    `json:"price"`
	Notional     float64    `json:"notional"`
}

// Key returns the join key for snapshot alignment.
func (r OptionQuoteRow) Key() QuoteKey {
	return QuoteKey{ContractCode: r.ContractCode, Strike: r.Strike, Type: r.Type}
}

// WithNotional returns a copy of the row with Notional recomputed as
// OI x price x multiplier.
func (r OptionQuoteRow) WithNotional(multiplier float64) OptionQuoteRow {
	r.Notional = r.OpenInterest * r.Price * multiplier
	return r
}

// DailySnapshot is one trading day's full option chain. Snapshots are
// immutable once constructed; the aligner only reads them.
type DailySnapshot struct {
	AsOfDate time.Time        `json:"as_of_date"`
	Rows     []OptionQuoteRow `json:"rows"`
}

// AlignedRow is a latest-day row augmented with open-interest changes
// against each supplied prior day. OIChanges[k-1] is OI_latest - OI_(k days
// back), with an absent counterpart treated as zero OI.
type AlignedRow struct {
	OptionQuoteRow
	OIChanges []float64 `json:"oi_changes"`
}

// OIChangeD returns the OI change versus k days back, or 0 when the
// alignment did not include that depth.
func (r AlignedRow) OIChangeD(k int) float64 {
	if k < 1 || k > len(r.OIChanges) {
		return 0
	}
	return r.OIChanges[k-1]
}

// AlignedTable is the most recent snapshot's row universe with OI-change
// columns. It is produced fresh per alignment call and never mutated.
type AlignedTable struct {
	AsOfDate time.Time    `json:"as_of_date"`
	Depth    int          `json:"depth"` // number of prior days joined
	Rows     []AlignedRow `json:"rows"`
}

// FilterContract returns a new table containing only rows of the given
// contract code, preserving input order.
func (t *AlignedTable) FilterContract(code string) *AlignedTable {
	out := &AlignedTable{AsOfDate: t.AsOfDate, Depth: t.Depth}
	for _, row := range t.Rows {
		if row.ContractCode == code {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// GreeksResult carries the per-row solver output. Nil fields signal that
// the solve did not converge or the inputs were invalid; a numeric sentinel
// is never used.
type GreeksResult struct {
	Strike     float64    `json:"strike"`
	Type       OptionType `json:"type"`
	ImpliedVol *float64   `json:"implied_vol"`
	Delta      *float64   `json:"delta"`
	Gamma      *float64   `json:"gamma"`
}

// GexPoint is the dealer gamma exposure summed across both option types at
// one strike.
type GexPoint struct {
	Strike float64 `json:"strike"`
	Gex    float64 `json:"gex"`
}

// SkewResult is the risk-reversal aggregation output.
type SkewResult struct {
	ATMStrike     float64  `json:"atm_strike"`
	ATMImpliedVol *float64 `json:"atm_implied_vol"`
	RiskReversal  *float64 `json:"risk_reversal"`
}

// ContractInfo pairs a contract code with its resolved settlement date.
type ContractInfo struct {
	Code       string    `json:"code"`
	Settlement time.Time `json:"settlement"`
}

// StrikeLevel is one row of the per-strike call/put distribution fed to the
// charting consumer: OI and notional per side plus the D1 OI changes.
type StrikeLevel struct {
	Strike       float64 `json:"strike"`
	CallOI       float64 `json:"call_oi"`
	PutOI        float64 `json:"put_oi"`
	CallNotional float64 `json:"call_notional"`
	PutNotional  float64 `json:"put_notional"`
	CallOIChange float64 `json:"call_oi_change"`
	PutOIChange  float64 `json:"put_oi_change"`
}

// Float64Ptr returns a pointer to v. Convenience for optional result fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
