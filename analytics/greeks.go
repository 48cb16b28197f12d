package analytics

import (
	"math"

	"txoflow/models"
)

// Greeks computes delta and gamma from an already-solved implied volatility.
// The third return is false when the volatility or time to expiry is
// non-positive, or the arithmetic degenerates (zero spot or strike slipping
// through); invalid inputs never panic.
func Greeks(spot, strike, timeToExpiry, vol float64, optType models.OptionType, riskFreeRate float64) (float64, float64, bool) {
	if vol <= 0 || timeToExpiry <= 0 || spot <= 0 || strike <= 0 {
		return 0, 0, false
	}

	d1, _ := d1d2(spot, strike, timeToExpiry, vol, riskFreeRate)

	delta := normCDF(d1)
	if optType != models.Call {
		delta = normCDF(d1) - 1
	}
	gamma := normPDF(d1) / (spot * vol * math.Sqrt(timeToExpiry))

	if math.IsNaN(delta) || math.IsInf(delta, 0) || math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		return 0, 0, false
	}
	return delta, gamma, true
}
