package analytics

import (
	"testing"

	"txoflow/config"
	"txoflow/models"
)

func TestEngineEndToEnd(t *testing.T) {
	const spot = 18000.0
	settlement, asOf := testDates()
	e := testEngine()

	rows := []models.OptionQuoteRow{
		{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 500, Price: 150},
	}

	greeks := e.RowGreeks(rows, spot, settlement, asOf)
	if len(greeks) != 1 {
		t.Fatalf("greeks = %d rows, want 1", len(greeks))
	}
	g := greeks[0]
	if g.ImpliedVol == nil || g.Delta == nil || g.Gamma == nil {
		t.Fatalf("incomplete solve: %+v", g)
	}
	if *g.ImpliedVol <= 0.05 || *g.ImpliedVol >= 0.6 {
		t.Fatalf("IV = %v, want within (0.05, 0.6)", *g.ImpliedVol)
	}
	if *g.Delta <= 0.45 || *g.Delta >= 0.65 {
		t.Fatalf("delta = %v, want near 0.5 for ATM call", *g.Delta)
	}
	if *g.Gamma <= 0 {
		t.Fatalf("gamma = %v, want positive", *g.Gamma)
	}

	points, err := e.DealerGex(rows, spot, settlement, asOf)
	if err != nil {
		t.Fatalf("DealerGex: %v", err)
	}
	if len(points) != 1 || points[0].Gex >= 0 {
		t.Fatalf("gex profile = %+v, want one negative point", points)
	}
}

func TestSolveChainPreservesOrder(t *testing.T) {
	const spot = 18000.0
	e := NewEngine(config.AnalyticsConfig{
		RiskFreeRate: 0.015,
		MaxWorkers:   4,
		TimeFloor:    0.001,
	})
	texp := 30.0 / 365

	var rows []models.OptionQuoteRow
	for i := 0; i < 40; i++ {
		strike := 17200 + float64(i)*40
		rows = append(rows, quoteAt(spot, strike, texp, 0.2, models.Call, 10))
	}

	results := e.SolveChain(rows, spot, texp)
	if len(results) != len(rows) {
		t.Fatalf("results = %d, want %d", len(results), len(rows))
	}
	for i, g := range results {
		if g.Strike != rows[i].Strike {
			t.Fatalf("row %d: result strike %v does not match input strike %v", i, g.Strike, rows[i].Strike)
		}
		if g.ImpliedVol == nil {
			t.Fatalf("row %d (strike %v): solve did not converge", i, rows[i].Strike)
		}
	}
}

func TestSolveChainSkipsUnpricedRows(t *testing.T) {
	const spot = 18000.0
	e := testEngine()
	texp := 30.0 / 365

	rows := []models.OptionQuoteRow{
		quoteAt(spot, 18000, texp, 0.2, models.Call, 10),
		{ContractCode: "202501", Strike: 18200, Type: models.Call, OpenInterest: 10, Price: 0},
	}
	results := e.SolveChain(rows, spot, texp)
	if results[0].ImpliedVol == nil {
		t.Fatalf("priced row did not solve")
	}
	if results[1].ImpliedVol != nil {
		t.Fatalf("unpriced row produced an IV")
	}
	// Strike and type still carry through for the skipped row.
	if results[1].Strike != 18200 || results[1].Type != models.Call {
		t.Fatalf("skipped row lost identity: %+v", results[1])
	}
}

func TestTimeToExpiryFloor(t *testing.T) {
	e := testEngine()
	settlement, asOf := testDates()

	if got := e.TimeToExpiry(settlement, asOf); got != 30.0/365 {
		t.Fatalf("TimeToExpiry = %v, want %v", got, 30.0/365)
	}
	// On and after settlement day the floor keeps the solve finite.
	if got := e.TimeToExpiry(asOf, asOf); got != 0.001 {
		t.Fatalf("TimeToExpiry on settlement day = %v, want floor 0.001", got)
	}
	if got := e.TimeToExpiry(asOf, settlement); got != 0.001 {
		t.Fatalf("TimeToExpiry past settlement = %v, want floor 0.001", got)
	}
}
