/*
Package engine provides the core rental-property tax computation engine.

PURPOSE:
  This package contains the pure computation core: temporal proration of
  recurring amounts into a calendar tax year, fixed-payment amortization
  schedules, capital cost allowance (CCA), and the aggregation pass that
  folds everything into a per-property, per-year computed snapshot.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary quantity backed by decimal.Decimal
  - RecurringAmount: A revenue or expense with a frequency and date range
  - InvoiceExpense: A one-off expense with sales tax components
  - Mortgage: Loan terms feeding the amortization schedule
  - DepreciationSetting: Per-property CCA inputs (class, rate, UCC)
  - ComputedData: The derived snapshot for one property scope and tax year

DESIGN PRINCIPLES:
  1. Purity: Every computation is a deterministic function of its inputs
  2. Precision: decimal.Decimal end to end; rounding happens ONCE, at the
     point of exposure (Money.Rounded), never during accumulation
  3. Immutability: Input records are never mutated; ComputedData is always
     rebuilt from scratch, never patched in place

USAGE:
  computed, err := engine.Aggregate([]engine.Property{prop}, 2024)
  if err != nil { ... }
  fmt.Println(computed.NetIncome) // rounded to 2 places

SEE ALSO:
  - prorate.go: Occurrence counting and proration
  - amortization.go: Payment formula and schedule builder
  - cca.go: Capital cost allowance
  - aggregate.go: The aggregation pass tying it all together
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary quantity (always dollars for this system)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money        { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int) Money     { return Money{Value: decimal.NewFromInt(int64(value))} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }
func (m Money) Min(o Money) Money {
	if m.LessThan(o) {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.GreaterThan(o) {
		return m
	}
	return o
}

// ClampNonNegative returns the amount floored at zero.
func (m Money) ClampNonNegative() Money {
	if m.IsNegative() {
		return ZeroMoney()
	}
	return m
}

// Rounded returns the amount rounded to 2 decimal places, half away from zero.
// This is the ONLY rounding point in the engine: intermediate accumulation
// keeps full precision.
func (m Money) Rounded() Money { return Money{Value: m.Value.Round(2)} }

func (m Money) Float64() float64 { v, _ := m.Value.Float64(); return v }
func (m Money) String() string   { return m.Value.StringFixed(2) }

// Monetary values serialize as plain JSON numbers (exported scalar
// convention), not as quoted strings or nested objects.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Value.String()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Value.UnmarshalJSON(b)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type PropertyID string
type RecordID string

// =============================================================================
// RECURRING AMOUNT - Revenue or expense line attached to a property
// =============================================================================

type Frequency string

const (
	FreqOneTime   Frequency = "one_time"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnual    Frequency = "annual"
)

// RecurringAmount is immutable once read by the engine; it is owned by the
// persistence layer. Invariant: Amount >= 0; EndDate, if set, >= StartDate.
type RecurringAmount struct {
	ID        RecordID
	Label     string
	Amount    Money
	Frequency Frequency
	StartDate Date
	EndDate   *Date
}

// =============================================================================
// INVOICE EXPENSE - One-off dated expense with sales tax components
// =============================================================================

// InvoiceExpense is included in a tax year only when Date falls in that year.
// Tax1/Tax2 are the two sales tax components (e.g. GST and QST).
type InvoiceExpense struct {
	ID          RecordID
	Date        Date
	BaseAmount  Money
	Tax1        Money
	Tax2        Money
	Category    string
	Description string
}

// Total returns base plus both tax components.
func (ie InvoiceExpense) Total() Money {
	return ie.BaseAmount.Add(ie.Tax1).Add(ie.Tax2)
}

// =============================================================================
// MORTGAGE - Loan terms for the amortization schedule
// =============================================================================

type Mortgage struct {
	ID                 RecordID
	Lender             string
	Principal          Money // > 0
	AnnualRate         decimal.Decimal // in [0, 1]
	AmortizationMonths int // > 0
	TermMonths         int // > 0
	PaymentFrequency   int // payment periods per year, > 0
	StartDate          Date

	// PaymentAmount, when set, is the precomputed periodic payment. When nil
	// the schedule builder derives it from the annuity formula.
	PaymentAmount *Money
}

// =============================================================================
// DEPRECIATION SETTING - CCA inputs, at most one per property
// =============================================================================

type DepreciationSetting struct {
	ClassCode    string
	RatePercent  decimal.Decimal // >= 0, expressed in [0, 100]
	OpeningUCC   Money           // >= 0
	Additions    Money           // >= 0
	Dispositions Money           // >= 0
}

// =============================================================================
// PROPERTY - The aggregation scope unit
// =============================================================================

type Property struct {
	ID           PropertyID
	OwnerID      UserID
	Address      string
	OwnershipPct decimal.Decimal // [0, 100]; persisted convention, never renormalized

	Revenues     []RecurringAmount
	Expenses     []RecurringAmount
	Invoices     []InvoiceExpense
	Mortgages    []Mortgage
	Depreciation *DepreciationSetting
}

// =============================================================================
// COMPUTED DATA - Derived snapshot, rebuilt on every invocation
// =============================================================================

// ExpenseLine is one itemized expense in the computed snapshot. The Key is
// stable across runs ("revenue-{id}", "expense-{id}", "invoice-{id}",
// "mortgage-interest", "cca") so repeated aggregation is idempotent.
type ExpenseLine struct {
	Key      string
	Label    string
	Category string
	Amount   Money
}

type IncomeLine struct {
	Key    string
	Label  string
	Amount Money
	IsRent bool
}

type CCALine struct {
	Key            string
	ClassCode      string
	RatePercent    decimal.Decimal
	OpeningUCC     Money
	Additions      Money
	Dispositions   Money
	BaseForCCA     Money
	Amount         Money
	ClosingUCC     Money
}

type ComputedData struct {
	TaxYear int

	GrossRents  Money
	OtherIncome Money
	TotalIncome Money

	Expenses      []ExpenseLine
	TotalExpenses Money
	NetIncome     Money

	MortgageInterest     Money
	CapitalCostAllowance Money

	IncomeDetails []IncomeLine
	CCADetails    []CCALine
}
