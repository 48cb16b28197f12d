package analytics

import (
	"errors"
	"sort"
	"time"

	"txoflow/logger"
	"txoflow/models"
)

// ErrNoConvergingRows is returned when no input row produced a usable
// solve, so "no signal" stays distinguishable from a flat-zero profile.
var ErrNoConvergingRows = errors.New("no rows produced a converging solve")

// DealerGex aggregates the dollar gamma exposure of dealers assumed net
// short gamma against the reported open interest. Per qualifying row
// (positive price and OI) the contribution is
//
//	gex = -gamma * OI * spot^2 * 0.01
//
// scaled to a 1% spot move, then summed per strike across calls and puts.
// The profile is sorted by strike ascending.
func (e *Engine) DealerGex(rows []models.OptionQuoteRow, spot float64, settlement, asOf time.Time) ([]models.GexPoint, error) {
	timeToExpiry := e.TimeToExpiry(settlement, asOf)
	solved := e.SolveChain(rows, spot, timeToExpiry)

	byStrike := make(map[float64]float64)
	contributions := 0
	for i, row := range rows {
		if row.Price <= 0 || row.OpenInterest <= 0 {
			continue
		}
		if solved[i].Gamma == nil {
			continue
		}
		gex := -*solved[i].Gamma * row.OpenInterest * spot * spot * 0.01
		byStrike[row.Strike] += gex
		contributions++
	}

	if contributions == 0 {
		return nil, ErrNoConvergingRows
	}

	points := make([]models.GexPoint, 0, len(byStrike))
	for strike, gex := range byStrike {
		points = append(points, models.GexPoint{Strike: strike, Gex: gex})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Strike < points[j].Strike })

	e.log.WithComponent("analytics").WithFields(logger.Fields{
		"operation":      "dealer_gex",
		"rows":           len(rows),
		"contributions":  contributions,
		"strikes":        len(points),
		"time_to_expiry": timeToExpiry,
	}).Debug("aggregated dealer gamma exposure")

	return points, nil
}

// MaxGex returns the profile point with the largest absolute exposure.
// The second return is false for an empty profile.
func MaxGex(points []models.GexPoint) (models.GexPoint, bool) {
	if len(points) == 0 {
		return models.GexPoint{}, false
	}
	max := points[0]
	for _, p := range points[1:] {
		if abs(p.Gex) > abs(max.Gex) {
			max = p
		}
	}
	return max, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
