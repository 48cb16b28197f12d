package analytics

import (
	"sort"

	"txoflow/models"
)

// PutCallNotionalRatio is put notional over call notional in percent. The
// second return is false when no call notional exists to divide by.
func PutCallNotionalRatio(rows []models.AlignedRow) (float64, bool) {
	var callAmt, putAmt float64
	for _, row := range rows {
		switch row.Type {
		case models.Call:
			callAmt += row.Notional
		case models.Put:
			putAmt += row.Notional
		}
	}
	if callAmt <= 0 {
		return 0, false
	}
	return putAmt / callAmt * 100, true
}

// Basis is the futures price minus the spot price. The second return is
// false when either side is unknown (non-positive).
func Basis(futures, spot float64) (float64, bool) {
	if futures <= 0 || spot <= 0 {
		return 0, false
	}
	return futures - spot, true
}

// StrikeDistribution pivots one contract's aligned rows into a per-strike
// call/put view for the charting consumer, restricted to strikes within
// focusRange points of the center. The center is the spot price when known,
// otherwise the median listed strike. Strikes come back sorted ascending.
func StrikeDistribution(rows []models.AlignedRow, spot, focusRange float64) []models.StrikeLevel {
	levels := make(map[float64]*models.StrikeLevel)
	strikes := make([]float64, 0, len(rows))
	for _, row := range rows {
		level, ok := levels[row.Strike]
		if !ok {
			level = &models.StrikeLevel{Strike: row.Strike}
			levels[row.Strike] = level
			strikes = append(strikes, row.Strike)
		}
		switch row.Type {
		case models.Call:
			level.CallOI += row.OpenInterest
			level.CallNotional += row.Notional
			level.CallOIChange += row.OIChangeD(1)
		case models.Put:
			level.PutOI += row.OpenInterest
			level.PutNotional += row.Notional
			level.PutOIChange += row.OIChangeD(1)
		}
	}
	if len(strikes) == 0 {
		return nil
	}

	sort.Float64s(strikes)

	center := spot
	if center <= 0 {
		center = strikes[len(strikes)/2]
	}

	out := make([]models.StrikeLevel, 0, len(strikes))
	for _, strike := range strikes {
		if focusRange > 0 && (strike < center-focusRange || strike > center+focusRange) {
			continue
		}
		out = append(out, *levels[strike])
	}
	return out
}
