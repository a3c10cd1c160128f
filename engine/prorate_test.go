package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/taxform-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) engine.Date {
	return engine.NewDate(y, m, d)
}

func datePtr(y int, m time.Month, d int) *engine.Date {
	dd := engine.NewDate(y, m, d)
	return &dd
}

func money(v float64) engine.Money {
	return engine.NewMoney(v)
}

func assertMoneyEqual(t *testing.T, expected float64, actual engine.Money, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, engine.NewMoney(expected).Value.Equal(actual.Value),
		append([]any{"expected %v, got %v", expected, actual.String()}, msgAndArgs...)...)
}

// =============================================================================
// OCCURRENCE COUNTING TESTS
// =============================================================================

func TestOccurrences_OneTime(t *testing.T) {
	// GIVEN: A one-time amount dated inside / outside the target year
	// THEN: It counts once iff the start year matches

	assert.Equal(t, 1, engine.Occurrences(engine.FreqOneTime, date(2024, time.March, 5), nil, 2024))
	assert.Equal(t, 0, engine.Occurrences(engine.FreqOneTime, date(2023, time.March, 5), nil, 2024))
	assert.Equal(t, 0, engine.Occurrences(engine.FreqOneTime, date(2025, time.January, 1), nil, 2024))
}

func TestOccurrences_OneTimeMissingStart(t *testing.T) {
	// GIVEN: A one-time amount with no start date
	// THEN: The start defaults to the target year's boundary, so it counts once

	assert.Equal(t, 1, engine.Occurrences(engine.FreqOneTime, engine.Date{}, nil, 2024))
}

func TestOccurrences_Annual(t *testing.T) {
	// GIVEN: An annual amount active at any point of the year
	// THEN: It counts exactly once

	assert.Equal(t, 1, engine.Occurrences(engine.FreqAnnual, date(2020, time.January, 1), nil, 2024))
	assert.Equal(t, 1, engine.Occurrences(engine.FreqAnnual, date(2024, time.November, 30), nil, 2024))

	// Range entirely before the target year: zero
	assert.Equal(t, 0, engine.Occurrences(engine.FreqAnnual, date(2020, time.January, 1), datePtr(2022, time.June, 30), 2024))

	// Range starting after the target year: zero
	assert.Equal(t, 0, engine.Occurrences(engine.FreqAnnual, date(2025, time.February, 1), nil, 2024))
}

func TestOccurrences_Monthly_FullYear(t *testing.T) {
	// GIVEN: A monthly amount active across the whole target year
	// THEN: 12 occurrences

	assert.Equal(t, 12, engine.Occurrences(engine.FreqMonthly, date(2023, time.January, 1), nil, 2024))
	assert.Equal(t, 12, engine.Occurrences(engine.FreqMonthly, date(2024, time.January, 1), nil, 2024))
}

func TestOccurrences_Monthly_MidYearStart(t *testing.T) {
	// GIVEN: A lease starting June 15 of the target year
	// WHEN: Counting monthly occurrences for that year
	// THEN: June through December inclusive is 7 months

	n := engine.Occurrences(engine.FreqMonthly, date(2024, time.June, 15), nil, 2024)
	assert.Equal(t, 7, n)
}

func TestOccurrences_Monthly_MidYearEnd(t *testing.T) {
	// GIVEN: A lease ending March 10 of the target year
	// THEN: January through March inclusive is 3 months

	n := engine.Occurrences(engine.FreqMonthly, date(2022, time.May, 1), datePtr(2024, time.March, 10), 2024)
	assert.Equal(t, 3, n)
}

func TestOccurrences_Weekly(t *testing.T) {
	// GIVEN: A weekly amount covering the whole of 2024 (366 days, leap year)
	// THEN: floor(365/7)+1 = 53 occurrences

	assert.Equal(t, 53, engine.Occurrences(engine.FreqWeekly, date(2024, time.January, 1), nil, 2024))

	// Two-week window: floor(13/7)+1 = 2
	n := engine.Occurrences(engine.FreqWeekly, date(2024, time.July, 1), datePtr(2024, time.July, 14), 2024)
	assert.Equal(t, 2, n)

	// Single day: floor(0/7)+1 = 1
	n = engine.Occurrences(engine.FreqWeekly, date(2024, time.July, 1), datePtr(2024, time.July, 1), 2024)
	assert.Equal(t, 1, n)
}

func TestOccurrences_Quarterly(t *testing.T) {
	// GIVEN: Quarterly amounts over varying spans
	// THEN: max(1, round(months/3))

	// Full year: round(12/3) = 4
	assert.Equal(t, 4, engine.Occurrences(engine.FreqQuarterly, date(2023, time.January, 1), nil, 2024))

	// Seven months: round(7/3) = 2
	assert.Equal(t, 2, engine.Occurrences(engine.FreqQuarterly, date(2024, time.June, 15), nil, 2024))

	// One month: round(1/3) = 0 but clamped to 1
	assert.Equal(t, 1, engine.Occurrences(engine.FreqQuarterly, date(2024, time.December, 1), nil, 2024))
}

func TestOccurrences_EmptyIntersection(t *testing.T) {
	// GIVEN: A range that never touches the target year
	// THEN: Zero occurrences for every recurring frequency

	for _, freq := range []engine.Frequency{engine.FreqWeekly, engine.FreqMonthly, engine.FreqQuarterly, engine.FreqAnnual} {
		assert.Equal(t, 0, engine.Occurrences(freq, date(2026, time.January, 1), nil, 2024), string(freq))
		assert.Equal(t, 0, engine.Occurrences(freq, date(2020, time.January, 1), datePtr(2023, time.December, 31), 2024), string(freq))
	}
}

// =============================================================================
// PRORATION TESTS
// =============================================================================

func TestProrated_MidYearMonthlyRent(t *testing.T) {
	// GIVEN: $1000/month rent starting June 15, 2024
	// WHEN: Prorating into 2024
	// THEN: 7 occurrences for $7000 total

	ra := engine.RecurringAmount{
		Label:     "Rent",
		Amount:    money(1000),
		Frequency: engine.FreqMonthly,
		StartDate: date(2024, time.June, 15),
	}
	assertMoneyEqual(t, 7000, ra.Prorated(2024))
}

func TestProrated_AnnualCarriesFullAmount(t *testing.T) {
	// GIVEN: $24000/year rent starting 2023-01-01 with no end date
	// WHEN: Prorating into 2024
	// THEN: The full annual amount is attributed once

	ra := engine.RecurringAmount{
		Label:     "Loyer annuel",
		Amount:    money(24000),
		Frequency: engine.FreqAnnual,
		StartDate: date(2023, time.January, 1),
	}
	assertMoneyEqual(t, 24000, ra.Prorated(2024))
}

func TestProrated_OutOfRangeYieldsZero(t *testing.T) {
	ra := engine.RecurringAmount{
		Amount:    money(500),
		Frequency: engine.FreqMonthly,
		StartDate: date(2026, time.March, 1),
	}
	assert.True(t, ra.Prorated(2024).IsZero())
}

func TestProrated_FullPrecisionKept(t *testing.T) {
	// GIVEN: An amount with sub-cent precision after multiplication
	// THEN: Proration does not round; callers round at exposure

	ra := engine.RecurringAmount{
		Amount:    engine.MustParseMoney("33.335"),
		Frequency: engine.FreqMonthly,
		StartDate: date(2024, time.January, 1),
	}
	got := ra.Prorated(2024)
	assert.Equal(t, "400.02", got.String())
	assert.True(t, engine.MustParseMoney("400.02").Value.Equal(got.Value))
}
