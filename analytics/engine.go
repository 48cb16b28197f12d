package analytics

import (
	"sync"
	"time"

	"txoflow/config"
	"txoflow/logger"
	"txoflow/models"
)

// Engine runs the per-row IV and Greeks solves behind the aggregate
// operations. Every method is a pure function of its arguments plus the
// immutable configuration, so one Engine may be shared across goroutines.
type Engine struct {
	cfg config.AnalyticsConfig
	log *logger.Log
}

func NewEngine(cfg config.AnalyticsConfig) *Engine {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	return &Engine{
		cfg: cfg,
		log: logger.GetLogger(),
	}
}

func (e *Engine) solverParams() SolverParams {
	p := DefaultSolverParams()
	if e.cfg.RiskFreeRate > 0 {
		p.RiskFreeRate = e.cfg.RiskFreeRate
	}
	if e.cfg.Solver.InitialSigma > 0 {
		p.InitialSigma = e.cfg.Solver.InitialSigma
	}
	if e.cfg.Solver.MaxIterations > 0 {
		p.MaxIterations = e.cfg.Solver.MaxIterations
	}
	if e.cfg.Solver.Tolerance > 0 {
		p.Tolerance = e.cfg.Solver.Tolerance
	}
	return p
}

// TimeToExpiry converts the span between the as-of date and the settlement
// date to year fractions. The floor keeps the Greeks finite on and after
// the settlement day itself.
func (e *Engine) TimeToExpiry(settlement, asOf time.Time) float64 {
	days := settlement.Sub(asOf).Hours() / 24
	t := days / 365.0
	floor := e.cfg.TimeFloor
	if floor <= 0 {
		floor = 0.001
	}
	if t < floor {
		return floor
	}
	return t
}

// SolveChain solves IV, delta and gamma for every row with a positive
// price. Rows are distributed over a bounded worker pool; results land in a
// slice indexed by input position, so iteration order downstream matches
// input order regardless of scheduling.
func (e *Engine) SolveChain(rows []models.OptionQuoteRow, spot, timeToExpiry float64) []models.GreeksResult {
	results := make([]models.GreeksResult, len(rows))
	if len(rows) == 0 {
		return results
	}

	params := e.solverParams()

	workers := e.cfg.MaxWorkers
	if workers > len(rows) {
		workers = len(rows)
	}

	start := time.Now()
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = e.solveRow(rows[i], spot, timeToExpiry, params)
			}
		}()
	}
	for i := range rows {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	solved := 0
	attempted := 0
	for i, row := range rows {
		if row.Price <= 0 {
			continue
		}
		attempted++
		if results[i].ImpliedVol != nil {
			solved++
		}
	}
	logger.IncrementRowsSolved(solved)
	logger.IncrementSolveFailures(attempted - solved)

	log := e.log.WithComponent("analytics")
	logger.LogPerformanceEntry(log, "analytics", "solve_chain", time.Since(start), logger.Fields{
		"rows":      len(rows),
		"attempted": attempted,
		"solved":    solved,
		"workers":   workers,
	})
	return results
}

func (e *Engine) solveRow(row models.OptionQuoteRow, spot, timeToExpiry float64, params SolverParams) models.GreeksResult {
	result := models.GreeksResult{Strike: row.Strike, Type: row.Type}
	if row.Price <= 0 {
		return result
	}

	iv, ok := ImpliedVolatility(row.Price, spot, row.Strike, timeToExpiry, row.Type, params)
	if !ok {
		return result
	}
	result.ImpliedVol = models.Float64Ptr(iv)

	delta, gamma, ok := Greeks(spot, row.Strike, timeToExpiry, iv, row.Type, params.RiskFreeRate)
	if !ok {
		return result
	}
	result.Delta = models.Float64Ptr(delta)
	result.Gamma = models.Float64Ptr(gamma)
	return result
}

// RowGreeks exposes the per-row solver output for the narrative consumer:
// one GreeksResult per input row, in input order.
func (e *Engine) RowGreeks(rows []models.OptionQuoteRow, spot float64, settlement, asOf time.Time) []models.GreeksResult {
	return e.SolveChain(rows, spot, e.TimeToExpiry(settlement, asOf))
}
