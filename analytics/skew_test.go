package analytics

import (
	"errors"
	"math"
	"testing"

	"txoflow/models"
)

func TestRiskReversalFlatSmile(t *testing.T) {
	const spot = 18000.0
	settlement, asOf := testDates()
	e := testEngine()
	texp := e.TimeToExpiry(settlement, asOf)

	// All quotes priced at the same volatility. The 18763 call and the
	// 17367 put land near 25 delta at sigma 0.2 over 30 days, while the
	// ATM pair sits near 50 delta and stays out of the band.
	rows := []models.OptionQuoteRow{
		quoteAt(spot, 18000, texp, 0.2, models.Call, 100),
		quoteAt(spot, 18000, texp, 0.2, models.Put, 100),
		quoteAt(spot, 18763, texp, 0.2, models.Call, 100),
		quoteAt(spot, 17367, texp, 0.2, models.Put, 100),
	}

	result, err := e.RiskReversal(rows, spot, settlement, asOf)
	if err != nil {
		t.Fatalf("RiskReversal: %v", err)
	}
	if result.ATMStrike != 18000 {
		t.Fatalf("ATM strike = %v, want 18000", result.ATMStrike)
	}
	if result.ATMImpliedVol == nil {
		t.Fatalf("expected ATM implied vol")
	}
	if math.Abs(*result.ATMImpliedVol-0.2) > 0.01 {
		t.Fatalf("ATM IV = %v, want ~0.2", *result.ATMImpliedVol)
	}
	if result.RiskReversal == nil {
		t.Fatalf("expected a risk reversal from matched 25-delta wings")
	}
	// A flat smile carries no skew.
	if math.Abs(*result.RiskReversal) > 0.02 {
		t.Fatalf("risk reversal = %v, want ~0", *result.RiskReversal)
	}
}

func TestRiskReversalSkewedSmile(t *testing.T) {
	const spot = 18000.0
	settlement, asOf := testDates()
	e := testEngine()
	texp := e.TimeToExpiry(settlement, asOf)

	// Puts priced richer than calls, the usual index-option shape.
	rows := []models.OptionQuoteRow{
		quoteAt(spot, 18763, texp, 0.18, models.Call, 100),
		quoteAt(spot, 17367, texp, 0.26, models.Put, 100),
	}
	result, err := e.RiskReversal(rows, spot, settlement, asOf)
	if err != nil {
		t.Fatalf("RiskReversal: %v", err)
	}
	if result.RiskReversal == nil {
		t.Fatalf("expected a risk reversal")
	}
	if *result.RiskReversal >= 0 {
		t.Fatalf("risk reversal = %v, want negative for put-rich smile", *result.RiskReversal)
	}
}

func TestRiskReversalATMTieBreak(t *testing.T) {
	const spot = 18000.0
	settlement, asOf := testDates()
	e := testEngine()
	texp := e.TimeToExpiry(settlement, asOf)

	// 17900 and 18100 are equidistant from the spot; the earlier row wins.
	rows := []models.OptionQuoteRow{
		quoteAt(spot, 17900, texp, 0.2, models.Put, 100),
		quoteAt(spot, 18100, texp, 0.2, models.Call, 100),
	}
	result, err := e.RiskReversal(rows, spot, settlement, asOf)
	if err != nil {
		t.Fatalf("RiskReversal: %v", err)
	}
	if result.ATMStrike != 17900 {
		t.Fatalf("ATM strike = %v, want first equidistant strike 17900", result.ATMStrike)
	}
}

func TestRiskReversalNoSolves(t *testing.T) {
	settlement, asOf := testDates()
	e := testEngine()

	rows := []models.OptionQuoteRow{
		{ContractCode: "202501", Strike: 18000, Type: models.Call, OpenInterest: 100, Price: 0},
	}
	result, err := e.RiskReversal(rows, 18000, settlement, asOf)
	if err != nil {
		t.Fatalf("RiskReversal: %v", err)
	}
	if result.ATMStrike != 18000 {
		t.Fatalf("ATM strike = %v, want 18000", result.ATMStrike)
	}
	if result.ATMImpliedVol != nil || result.RiskReversal != nil {
		t.Fatalf("expected no analytics without a single solve: %+v", result)
	}
}

func TestRiskReversalEmpty(t *testing.T) {
	settlement, asOf := testDates()
	e := testEngine()
	if _, err := e.RiskReversal(nil, 18000, settlement, asOf); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}
