package analytics

import (
	"math"
	"time"

	"txoflow/logger"
	"txoflow/models"
)

// RiskReversal measures implied-volatility skew for one contract: the mean
// IV at the at-the-money strike and the IV difference between the first
// near-25-delta call and the first near-25-delta put.
//
// "First" means first row in input iteration order that falls inside the
// configured delta band. When several strikes qualify the outcome therefore
// depends on upstream row ordering; this matches the published analytics
// and is deliberately not tie-broken further.
func (e *Engine) RiskReversal(rows []models.OptionQuoteRow, spot float64, settlement, asOf time.Time) (models.SkewResult, error) {
	if len(rows) == 0 {
		return models.SkewResult{}, ErrInsufficientData
	}

	atmStrike := rows[0].Strike
	for _, row := range rows[1:] {
		if math.Abs(row.Strike-spot) < math.Abs(atmStrike-spot) {
			atmStrike = row.Strike
		}
	}
	result := models.SkewResult{ATMStrike: atmStrike}

	solved := e.SolveChain(rows, spot, e.TimeToExpiry(settlement, asOf))

	band := e.cfg.DeltaBand
	if band.High <= band.Low {
		band.Low, band.High = 0.2, 0.3
	}

	var atmSum float64
	var atmCount int
	var callIV, putIV *float64
	anySolved := false
	for i, row := range rows {
		g := solved[i]
		if g.ImpliedVol == nil || g.Delta == nil {
			continue
		}
		anySolved = true

		if row.Strike == atmStrike {
			atmSum += *g.ImpliedVol
			atmCount++
		}

		absDelta := math.Abs(*g.Delta)
		if absDelta <= band.Low || absDelta >= band.High {
			continue
		}
		if row.Type == models.Call && callIV == nil {
			callIV = g.ImpliedVol
		}
		if row.Type == models.Put && putIV == nil {
			putIV = g.ImpliedVol
		}
	}

	if !anySolved {
		return result, nil
	}

	if atmCount > 0 {
		result.ATMImpliedVol = models.Float64Ptr(atmSum / float64(atmCount))
	}
	if callIV != nil && putIV != nil {
		result.RiskReversal = models.Float64Ptr(*callIV - *putIV)
	}

	e.log.WithComponent("analytics").WithFields(logger.Fields{
		"operation":  "risk_reversal",
		"rows":       len(rows),
		"atm_strike": atmStrike,
		"atm_quotes": atmCount,
		"has_rr":     result.RiskReversal != nil,
	}).Debug("aggregated risk reversal")

	return result, nil
}
