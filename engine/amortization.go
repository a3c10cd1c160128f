/*
amortization.go - Fixed-payment amortization schedule builder

PURPOSE:
  Derives the periodic payment for a mortgage via the standard annuity
  formula and builds a period-by-period principal/interest breakdown,
  aggregated per calendar year. The aggregation pass consumes the annual
  interest figure as a deductible expense line.

FORMULA:
  monthlyRate = annualRate / 12
  payment     = P * r / (1 - (1+r)^-n)      (zero rate: payment = P / n)

SCHEDULE:
  Iterates month by month from the start date for
  min(termMonths, amortizationMonths) periods. Each period:
    interest  = outstandingBalance * monthlyRate
    principal = payment - interest, clamped to [0, outstandingBalance]
  The balance never goes below zero. The final period of the full
  amortization horizon absorbs the rounding residue so principal sums
  exactly to the original loan amount.

DETERMINISM:
  No I/O, no clock reads; pure function of the mortgage terms.
*/
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// SchedulePeriod is one payment period in an amortization schedule.
type SchedulePeriod struct {
	Period           int
	DueDate          Date
	Payment          Money
	Interest         Money
	Principal        Money
	RemainingBalance Money
}

// AnnualTotals groups periods by the calendar year of their due date.
type AnnualTotals struct {
	Year           int
	TotalInterest  Money
	TotalPrincipal Money
}

// AmortizationSchedule is the full breakdown for one mortgage.
type AmortizationSchedule struct {
	Payment         Money
	Periods         []SchedulePeriod
	AnnualBreakdown []AnnualTotals
}

// InterestForYear returns the total interest due in the given calendar year,
// zero if the schedule does not touch that year.
func (s *AmortizationSchedule) InterestForYear(year int) Money {
	for _, a := range s.AnnualBreakdown {
		if a.Year == year {
			return a.TotalInterest
		}
	}
	return ZeroMoney()
}

// =============================================================================
// PAYMENT FORMULA
// =============================================================================

// Payment computes the fixed monthly payment for a loan using the standard
// annuity formula. A zero rate degenerates to an even principal split.
func Payment(principal Money, annualRate decimal.Decimal, amortizationMonths int) (Money, error) {
	if !principal.IsPositive() {
		return ZeroMoney(), &InputError{Field: "principal", Reason: "must be positive"}
	}
	if amortizationMonths <= 0 {
		return ZeroMoney(), &InputError{Field: "amortizationMonths", Reason: "must be positive"}
	}
	if annualRate.IsNegative() {
		return ZeroMoney(), &InputError{Field: "annualRate", Reason: "must not be negative"}
	}

	if annualRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(amortizationMonths))), nil
	}

	// The power term is computed in float64, then monetary arithmetic goes
	// back to decimal (same approach as the schedule consumers expect).
	monthlyRate, _ := annualRate.Div(decimal.NewFromInt(12)).Float64()
	factor := math.Pow(1+monthlyRate, float64(amortizationMonths))
	paymentFloat := principal.Float64() * monthlyRate * factor / (factor - 1)
	return NewMoney(paymentFloat), nil
}

// =============================================================================
// SCHEDULE BUILDER
// =============================================================================

// Schedule builds the full amortization schedule for a mortgage. When the
// mortgage carries a precomputed payment amount it is used as-is; otherwise
// the payment is derived from the annuity formula.
func Schedule(m Mortgage) (*AmortizationSchedule, error) {
	if m.TermMonths <= 0 {
		return nil, &InputError{Field: "termMonths", Reason: "must be positive"}
	}

	payment, err := Payment(m.Principal, m.AnnualRate, m.AmortizationMonths)
	if err != nil {
		return nil, err
	}
	if m.PaymentAmount != nil && m.PaymentAmount.IsPositive() {
		payment = *m.PaymentAmount
	}

	monthlyRate := m.AnnualRate.Div(decimal.NewFromInt(12))

	periods := m.TermMonths
	if m.AmortizationMonths < periods {
		periods = m.AmortizationMonths
	}

	schedule := &AmortizationSchedule{Payment: payment.Rounded()}
	balance := m.Principal

	for p := 1; p <= periods; p++ {
		dueDate := m.StartDate.AddMonths(p)

		interest := balance.Mul(monthlyRate)
		principalPart := payment.Sub(interest)

		// Principal repayment is never negative and never exceeds what is
		// still owed.
		principalPart = principalPart.ClampNonNegative().Min(balance)

		// Final period of the full horizon absorbs the rounding residue so
		// the principal column sums exactly to the original loan amount.
		if p == m.AmortizationMonths {
			principalPart = balance
		}

		balance = balance.Sub(principalPart).ClampNonNegative()

		// Full precision here; rounding happens at the exposure boundary so
		// the principal column still sums exactly to the loan amount.
		schedule.Periods = append(schedule.Periods, SchedulePeriod{
			Period:           p,
			DueDate:          dueDate,
			Payment:          principalPart.Add(interest),
			Interest:         interest,
			Principal:        principalPart,
			RemainingBalance: balance,
		})

		appendAnnual(schedule, dueDate.Year(), interest, principalPart)
	}

	return schedule, nil
}

func appendAnnual(s *AmortizationSchedule, year int, interest, principal Money) {
	for i := range s.AnnualBreakdown {
		if s.AnnualBreakdown[i].Year == year {
			s.AnnualBreakdown[i].TotalInterest = s.AnnualBreakdown[i].TotalInterest.Add(interest)
			s.AnnualBreakdown[i].TotalPrincipal = s.AnnualBreakdown[i].TotalPrincipal.Add(principal)
			return
		}
	}
	s.AnnualBreakdown = append(s.AnnualBreakdown, AnnualTotals{
		Year:           year,
		TotalInterest:  interest,
		TotalPrincipal: principal,
	})
}
