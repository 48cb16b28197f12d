package analytics

import (
	"errors"
	"testing"
	"time"

	"txoflow/config"
	"txoflow/models"
)

func testEngine() *Engine {
	return NewEngine(config.AnalyticsConfig{
		RiskFreeRate: 0.015,
		MaxWorkers:   2,
		TimeFloor:    0.001,
		Solver:       config.SolverConfig{InitialSigma: 0.30, MaxIterations: 50, Tolerance: 1e-4},
		DeltaBand:    config.DeltaBandConfig{Low: 0.2, High: 0.3},
	})
}

func testDates() (settlement, asOf time.Time) {
	asOf = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return asOf.AddDate(0, 0, 30), asOf
}

// quoteAt prices a row from a known volatility so the solver is guaranteed
// a recoverable input.
func quoteAt(spot, strike, timeToExpiry, sigma float64, typ models.OptionType, oi float64) models.OptionQuoteRow {
	return models.OptionQuoteRow{
		ContractCode: "202501",
		Strike:       strike,
		Type:         typ,
		OpenInterest: oi,
		Price:        bsPrice(spot, strike, timeToExpiry, sigma, 0.015, typ),
	}
}

func TestDealerGexProfile(t *testing.T) {
	const spot = 18000.0
	settlement, asOf := testDates()
	e := testEngine()
	texp := e.TimeToExpiry(settlement, asOf)

	rows := []models.OptionQuoteRow{
		quoteAt(spot, 18200, texp, 0.2, models.Call, 300),
		quoteAt(spot, 18000, texp, 0.2, models.Call, 500),
		quoteAt(spot, 18000, texp, 0.2, models.Put, 400),
		// Zero OI and zero price rows never contribute.
		quoteAt(spot, 17800, texp, 0.2, models.Put, 0),
		{ContractCode: "202501", Strike: 17600, Type: models.Put, OpenInterest: 100, Price: 0},
	}

	points, err := e.DealerGex(rows, spot, settlement, asOf)
	if err != nil {
		t.Fatalf("DealerGex: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("strikes = %d, want 2", len(points))
	}
	if points[0].Strike != 18000 || points[1].Strike != 18200 {
		t.Fatalf("profile not sorted by strike: %+v", points)
	}
	// Dealers are modeled net short gamma, so every contribution is negative.
	for _, p := range points {
		if p.Gex >= 0 {
			t.Fatalf("strike %v: gex = %v, want negative", p.Strike, p.Gex)
		}
	}
	// 18000 aggregates a call and a put with more combined OI than the
	// lone 18200 call, and ATM gamma dominates.
	if abs(points[0].Gex) <= abs(points[1].Gex) {
		t.Fatalf("expected ATM strike to carry the larger exposure: %+v", points)
	}
}

func TestDealerGexNoConvergingRows(t *testing.T) {
	settlement, asOf := testDates()
	e := testEngine()

	rows := []models.OptionQuoteRow{
		{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 100, Price: 0},
		// Price above the spot is unreachable for any volatility.
		{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 100, Price: 30000},
	}
	if _, err := e.DealerGex(rows, 18000, settlement, asOf); !errors.Is(err, ErrNoConvergingRows) {
		t.Fatalf("err = %v, want ErrNoConvergingRows", err)
	}
	if _, err := e.DealerGex(nil, 18000, settlement, asOf); !errors.Is(err, ErrNoConvergingRows) {
		t.Fatalf("empty input: err = %v, want ErrNoConvergingRows", err)
	}
}

func TestMaxGex(t *testing.T) {
	points := []models.GexPoint{
		{Strike: 17800, Gex: -100},
		{Strike: 18000, Gex: -900},
		{Strike: 18200, Gex: -250},
	}
	max, ok := MaxGex(points)
	if !ok || max.Strike != 18000 {
		t.Fatalf("MaxGex = %+v, %v", max, ok)
	}
	if _, ok := MaxGex(nil); ok {
		t.Fatalf("expected no max for empty profile")
	}
}
