/*
prorate.go - Temporal proration of recurring amounts into a calendar year

PURPOSE:
  Converts a recurring amount (frequency + start/optional end date) into the
  portion attributable to a target calendar year. This is the leaf of the
  aggregation pass: every revenue and expense line goes through here.

OCCURRENCE RULES (per frequency, after clipping to the target year):
  OneTime:   1 iff the start date falls inside the target year; a missing
             start defaults to the year boundary and counts once
  Annual:    1 if the clipped interval is non-empty
  Weekly:    floor(days in clipped interval / 7) + 1
  Monthly:   count of calendar months spanned, inclusive
             (June 15 - Dec 31 = 7 months)
  Quarterly: max(1, round(monthly count / 3))

CLIPPING:
  [start, end] is intersected with [Jan 1, Dec 31] of the target year. A
  missing start or end defaults to the corresponding year boundary. An empty
  intersection yields zero occurrences.

PURITY:
  No side effects; pure function of its four inputs.

SEE ALSO:
  - aggregate.go: The only caller inside the engine
*/
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OCCURRENCE COUNTING
// =============================================================================

// Occurrences returns how many times a recurring amount with the given
// frequency and date range occurs within the target calendar year.
func Occurrences(freq Frequency, start Date, end *Date, targetYear int) int {
	yearStart := StartOfYear(targetYear)
	yearEnd := EndOfYear(targetYear)

	// One-time amounts ignore clipping entirely: they count iff the start
	// date's year matches. A missing start defaults to the target year's
	// boundary, so it counts once.
	if freq == FreqOneTime {
		if start.IsZero() || start.Year() == targetYear {
			return 1
		}
		return 0
	}

	// Missing boundaries default to the target year's boundaries.
	from := start
	if from.IsZero() {
		from = yearStart
	}
	to := yearEnd
	if end != nil && !end.IsZero() {
		to = *end
	}

	// Clip to the target year.
	if from.Before(yearStart) {
		from = yearStart
	}
	if to.After(yearEnd) {
		to = yearEnd
	}
	if to.Before(from) {
		return 0
	}

	switch freq {
	case FreqAnnual:
		return 1
	case FreqWeekly:
		return DaysBetween(from, to)/7 + 1
	case FreqMonthly:
		return MonthsSpanned(from, to)
	case FreqQuarterly:
		months := MonthsSpanned(from, to)
		n := int(math.Round(float64(months) / 3.0))
		if n < 1 {
			n = 1
		}
		return n
	default:
		return 0
	}
}

// =============================================================================
// PRORATION
// =============================================================================

// ProratedAmount returns the portion of a recurring amount attributable to
// the target calendar year: the per-occurrence amount times the occurrence
// count. The result keeps full precision; rounding is the caller's concern.
func ProratedAmount(amount Money, freq Frequency, start Date, end *Date, targetYear int) Money {
	n := Occurrences(freq, start, end, targetYear)
	if n == 0 {
		return ZeroMoney()
	}
	return amount.Mul(decimal.NewFromInt(int64(n)))
}

// Prorated is the RecurringAmount-level convenience wrapper.
func (ra RecurringAmount) Prorated(targetYear int) Money {
	return ProratedAmount(ra.Amount, ra.Frequency, ra.StartDate, ra.EndDate, targetYear)
}
