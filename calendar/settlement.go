package calendar

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"txoflow/models"
)

// FarFuture is the sentinel settlement date returned for any contract code
// that cannot be resolved. It sorts after every real trading date, so
// downstream filters of the form settlement >= asOfDate exclude garbage
// codes without special handling.
var FarFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// DefaultOverrides carries exchange-announced settlement fixes that the
// calendar rules get wrong, keyed by contract code fragment.
var DefaultOverrides = map[string]time.Time{
	"202501W1": time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
}

var weeklyMarker = regexp.MustCompile(`W(\d)`)
var fridayMarker = regexp.MustCompile(`F(\d)`)

// Resolver maps contract codes to settlement dates. A nil or empty override
// table falls back to DefaultOverrides.
type Resolver struct {
	overrides map[string]time.Time
}

func NewResolver(overrides map[string]time.Time) *Resolver {
	if len(overrides) == 0 {
		overrides = DefaultOverrides
	}
	return &Resolver{overrides: overrides}
}

// SettlementDate resolves the settlement date of a contract code.
//
// Rules, in priority order: a manual override wins on a contains match,
// with the longest matching key taking precedence; the first six characters
// must parse as YYYYMM; a W<n> marker selects the n-th Wednesday of that
// month, an F<n> marker the n-th Friday; otherwise the contract is a
// standard monthly settling on the 3rd Wednesday. Every failure path
// returns FarFuture; the function is total and never panics.
func (r *Resolver) SettlementDate(contractCode string) time.Time {
	code := strings.ToUpper(strings.TrimSpace(contractCode))

	if fixed, ok := r.overrideFor(code); ok {
		return fixed
	}

	if len(code) < 6 {
		return FarFuture
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil {
		return FarFuture
	}
	month, err := strconv.Atoi(code[4:6])
	if err != nil || month < 1 || month > 12 {
		return FarFuture
	}

	wednesdays := weekdaysOfMonth(year, time.Month(month), time.Wednesday)
	fridays := weekdaysOfMonth(year, time.Month(month), time.Friday)

	switch {
	case strings.Contains(code, "W"):
		m := weeklyMarker.FindStringSubmatch(code)
		if m == nil {
			return FarFuture
		}
		n, _ := strconv.Atoi(m[1])
		return nthOrFarFuture(wednesdays, n)
	case strings.Contains(code, "F"):
		m := fridayMarker.FindStringSubmatch(code)
		if m == nil {
			return FarFuture
		}
		n, _ := strconv.Atoi(m[1])
		return nthOrFarFuture(fridays, n)
	default:
		return nthOrFarFuture(wednesdays, 3)
	}
}

// overrideFor finds the override entry whose key is contained in code. The
// longest matching key wins, ties break lexicographically, so resolution
// never depends on map iteration order even when keys overlap.
func (r *Resolver) overrideFor(code string) (time.Time, bool) {
	var bestKey string
	var bestDate time.Time
	found := false
	for key, fixed := range r.overrides {
		if !strings.Contains(code, key) {
			continue
		}
		if !found || len(key) > len(bestKey) || (len(key) == len(bestKey) && key < bestKey) {
			bestKey, bestDate, found = key, fixed, true
		}
	}
	return bestDate, found
}

// AliveContracts returns the distinct contract codes of the snapshot whose
// settlement date is on or after asOf, with their resolved dates, ordered
// nearest settlement first. Codes break settlement-date ties.
func (r *Resolver) AliveContracts(snapshot models.DailySnapshot, asOf time.Time) []models.ContractInfo {
	seen := make(map[string]struct{})
	var alive []models.ContractInfo
	for _, row := range snapshot.Rows {
		if _, ok := seen[row.ContractCode]; ok {
			continue
		}
		seen[row.ContractCode] = struct{}{}
		settlement := r.SettlementDate(row.ContractCode)
		if !settlement.Before(asOf) {
			alive = append(alive, models.ContractInfo{Code: row.ContractCode, Settlement: settlement})
		}
	}
	sort.Slice(alive, func(i, j int) bool {
		if !alive[i].Settlement.Equal(alive[j].Settlement) {
			return alive[i].Settlement.Before(alive[j].Settlement)
		}
		return alive[i].Code < alive[j].Code
	})
	return alive
}

func weekdaysOfMonth(year int, month time.Month, weekday time.Weekday) []time.Time {
	var days []time.Time
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d.Month() == month {
		if d.Weekday() == weekday {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return days
}

func nthOrFarFuture(days []time.Time, n int) time.Time {
	if n < 1 || n > len(days) {
		return FarFuture
	}
	return days[n-1]
}
