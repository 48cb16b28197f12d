package analytics

import (
	"errors"

	"txoflow/models"
)

// ErrInsufficientData is returned by aggregate operations that received no
// usable input at all, so callers can distinguish "nothing to aggregate"
// from a legitimately empty result.
var ErrInsufficientData = errors.New("insufficient data")

// AlignSnapshots outer-joins the most recent snapshot against each older one
// on (contract, strike, type) and records the open-interest change per prior
// day. Snapshots must be ordered newest first. Rows present only in older
// snapshots are dropped; the output reflects the latest day's universe of
// listed strikes, with each row's notional recomputed from the contract
// multiplier. The result depends only on the join key, never on row order
// within a snapshot, and the inputs are left untouched.
func AlignSnapshots(snapshots []models.DailySnapshot, multiplier float64) (*models.AlignedTable, error) {
	if len(snapshots) == 0 {
		return nil, ErrInsufficientData
	}

	latest := snapshots[0]
	depth := len(snapshots) - 1

	priorOI := make([]map[models.QuoteKey]float64, depth)
	for i := 1; i < len(snapshots); i++ {
		oi := make(map[models.QuoteKey]float64, len(snapshots[i].Rows))
		for _, row := range snapshots[i].Rows {
			oi[row.Key()] = row.OpenInterest
		}
		priorOI[i-1] = oi
	}

	table := &models.AlignedTable{
		AsOfDate: latest.AsOfDate,
		Depth:    depth,
		Rows:     make([]models.AlignedRow, 0, len(latest.Rows)),
	}
	for _, row := range latest.Rows {
		aligned := models.AlignedRow{OptionQuoteRow: row.WithNotional(multiplier)}
		if depth > 0 {
			aligned.OIChanges = make([]float64, depth)
			key := row.Key()
			for k, oi := range priorOI {
				// Absent counterpart rows count as zero OI on the older side.
				aligned.OIChanges[k] = row.OpenInterest - oi[key]
			}
		}
		table.Rows = append(table.Rows, aligned)
	}
	return table, nil
}
