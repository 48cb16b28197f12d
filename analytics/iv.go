package analytics

import (
	"math"

	"txoflow/models"
)

// normCDF calculates the cumulative distribution function of the standard
// normal distribution.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF calculates the probability density function of the standard
// normal distribution.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// SolverParams holds the Newton-Raphson implied volatility solver settings.
type SolverParams struct {
	RiskFreeRate  float64
	InitialSigma  float64
	MaxIterations int
	Tolerance     float64
}

// DefaultSolverParams returns the solver settings used for the TXO market.
func DefaultSolverParams() SolverParams {
	return SolverParams{
		RiskFreeRate:  0.015,
		InitialSigma:  0.30,
		MaxIterations: 50,
		Tolerance:     1e-4,
	}
}

func d1d2(spot, strike, timeToExpiry, sigma, riskFreeRate float64) (float64, float64) {
	sqrtT := math.Sqrt(timeToExpiry)
	d1 := (math.Log(spot/strike) + (riskFreeRate+0.5*sigma*sigma)*timeToExpiry) / (sigma * sqrtT)
	return d1, d1 - sigma*sqrtT
}

// bsPrice is the Black-Scholes theoretical price with continuous-compounding
// discount at riskFreeRate.
func bsPrice(spot, strike, timeToExpiry, sigma, riskFreeRate float64, optType models.OptionType) float64 {
	d1, d2 := d1d2(spot, strike, timeToExpiry, sigma, riskFreeRate)
	discount := math.Exp(-riskFreeRate * timeToExpiry)
	if optType == models.Call {
		return spot*normCDF(d1) - strike*discount*normCDF(d2)
	}
	return strike*discount*normCDF(-d2) - spot*normCDF(-d1)
}

// bsVega is spot * pdf(d1) * sqrt(T).
func bsVega(spot, strike, timeToExpiry, sigma, riskFreeRate float64) float64 {
	d1, _ := d1d2(spot, strike, timeToExpiry, sigma, riskFreeRate)
	return spot * normPDF(d1) * math.Sqrt(timeToExpiry)
}

// ImpliedVolatility recovers the Black-Scholes implied volatility of an
// observed option price by Newton-Raphson iteration. The second return is
// false when the inputs are invalid, the iteration diverges to a
// non-positive sigma, vega degenerates to zero before convergence, or the
// iteration budget is exhausted.
func ImpliedVolatility(price, spot, strike, timeToExpiry float64, optType models.OptionType, p SolverParams) (float64, bool) {
	if price <= 0 || spot <= 0 || strike <= 0 || timeToExpiry <= 0 {
		return 0, false
	}

	sigma := p.InitialSigma
	for i := 0; i < p.MaxIterations; i++ {
		theoretical := bsPrice(spot, strike, timeToExpiry, sigma, p.RiskFreeRate, optType)
		if math.Abs(theoretical-price) < p.Tolerance {
			return sigma, true
		}
		vega := bsVega(spot, strike, timeToExpiry, sigma, p.RiskFreeRate)
		if vega == 0 {
			// No safe Newton update exists.
			return 0, false
		}
		sigma -= (theoretical - price) / vega
		if sigma <= 0 || math.IsNaN(sigma) {
			return 0, false
		}
	}
	return 0, false
}
