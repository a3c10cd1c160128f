/*
aggregate.go - The aggregation pass: raw records to a computed snapshot

PURPOSE:
  For one or more properties, accumulates prorated revenues and expenses for
  the target year, folds in invoice expenses dated within the year, pulls
  annual mortgage interest from the schedule builder, and caps CCA by the
  net income before CCA. The output is the ComputedData snapshot that the
  form composer maps onto a jurisdiction schema.

LINE KEYS:
  Every line carries a stable key ("revenue-{id}", "expense-{id}",
  "invoice-{id}", "mortgage-interest", "cca") so re-running aggregation on
  the same inputs is idempotent and never double-counts. The accumulation
  map is owned by a single Aggregate call, never shared.

CLASSIFICATION:
  A revenue line counts as gross rents when its label contains "loyer" or
  "rent" (case-insensitive). This substring heuristic is load-bearing:
  changing it would silently reclassify historical data.

ROUNDING:
  Accumulation keeps full decimal precision; every exposed figure is rounded
  once, half away from zero, to 2 places.
*/
package engine

import (
	"fmt"
	"strings"
)

// Labels for the synthetic expense lines the pass appends itself, distinct
// from anything a user can enter.
const (
	keyMortgageInterest = "mortgage-interest"
	keyCCA              = "cca"

	labelMortgageInterest = "Mortgage interest"
	labelCCA              = "Capital cost allowance"
)

// rentKeywords drive the gross-rents vs other-income split.
var rentKeywords = []string{"loyer", "rent"}

// Aggregate computes the snapshot for the given property scope and tax year.
// The caller resolves the scope; an empty scope is a NotFound failure.
func Aggregate(properties []Property, taxYear int) (*ComputedData, error) {
	if taxYear < 1900 || taxYear > 9999 {
		return nil, &InputError{Field: "taxYear", Reason: fmt.Sprintf("%d is not a calendar year", taxYear)}
	}
	if len(properties) == 0 {
		return nil, fmt.Errorf("aggregate: empty property scope: %w", ErrNotFound)
	}

	acc := newAccumulator()

	for _, prop := range properties {
		if err := acc.addProperty(prop, taxYear); err != nil {
			return nil, err
		}
	}

	return acc.finish(taxYear), nil
}

// =============================================================================
// ACCUMULATOR - Arena-scoped state for a single Aggregate call
// =============================================================================

type accumulator struct {
	grossRents  Money
	otherIncome Money

	// De-duplication map plus insertion order for stable output.
	expenseByKey map[string]*ExpenseLine
	expenseOrder []string

	operatingTotal   Money
	mortgageInterest Money
	ccaTotal         Money

	incomeDetails []IncomeLine
	ccaDetails    []CCALine

	// CCA requests from multiple properties share one income ceiling; this
	// tracks what remains of it. The property ID rides along so each detail
	// line gets its own key.
	depreciation []ccaRequest
}

type ccaRequest struct {
	propertyID PropertyID
	setting    *DepreciationSetting
}

func newAccumulator() *accumulator {
	return &accumulator{
		grossRents:       ZeroMoney(),
		otherIncome:      ZeroMoney(),
		expenseByKey:     make(map[string]*ExpenseLine),
		operatingTotal:   ZeroMoney(),
		mortgageInterest: ZeroMoney(),
		ccaTotal:         ZeroMoney(),
	}
}

func (acc *accumulator) addProperty(prop Property, taxYear int) error {
	for _, rev := range prop.Revenues {
		amount := rev.Prorated(taxYear)
		if amount.IsZero() {
			continue
		}
		line := IncomeLine{
			Key:    fmt.Sprintf("revenue-%s", rev.ID),
			Label:  rev.Label,
			Amount: amount.Rounded(),
			IsRent: isRentLabel(rev.Label),
		}
		acc.incomeDetails = append(acc.incomeDetails, line)
		if line.IsRent {
			acc.grossRents = acc.grossRents.Add(amount)
		} else {
			acc.otherIncome = acc.otherIncome.Add(amount)
		}
	}

	for _, exp := range prop.Expenses {
		amount := exp.Prorated(taxYear)
		if amount.IsZero() {
			continue
		}
		acc.addExpense(fmt.Sprintf("expense-%s", exp.ID), exp.Label, exp.Label, amount)
		acc.operatingTotal = acc.operatingTotal.Add(amount)
	}

	for _, inv := range prop.Invoices {
		if inv.Date.Year() != taxYear {
			continue
		}
		label := inv.Description
		if label == "" {
			label = inv.Category
		}
		total := inv.Total()
		acc.addExpense(fmt.Sprintf("invoice-%s", inv.ID), label, inv.Category, total)
		acc.operatingTotal = acc.operatingTotal.Add(total)
	}

	for _, mort := range prop.Mortgages {
		schedule, err := Schedule(mort)
		if err != nil {
			return err
		}
		acc.mortgageInterest = acc.mortgageInterest.Add(schedule.InterestForYear(taxYear))
	}

	if prop.Depreciation != nil {
		acc.depreciation = append(acc.depreciation, ccaRequest{propertyID: prop.ID, setting: prop.Depreciation})
	}

	return nil
}

// addExpense merges repeated keys instead of appending duplicates, keeping
// the pass idempotent across runs and inputs that repeat records.
func (acc *accumulator) addExpense(key, label, category string, amount Money) {
	if existing, ok := acc.expenseByKey[key]; ok {
		existing.Amount = existing.Amount.Add(amount)
		return
	}
	acc.expenseByKey[key] = &ExpenseLine{Key: key, Label: label, Category: category, Amount: amount}
	acc.expenseOrder = append(acc.expenseOrder, key)
}

func (acc *accumulator) finish(taxYear int) *ComputedData {
	totalIncome := acc.grossRents.Add(acc.otherIncome)

	// CCA is capped by net income before CCA; with several properties the
	// ceiling is consumed sequentially.
	remaining := totalIncome.Sub(acc.operatingTotal).Sub(acc.mortgageInterest)
	for _, req := range acc.depreciation {
		result := ComputeCCA(req.propertyID, req.setting, remaining)
		if result.Detail != nil {
			acc.ccaDetails = append(acc.ccaDetails, *result.Detail)
		}
		acc.ccaTotal = acc.ccaTotal.Add(result.Amount)
		remaining = remaining.Sub(result.Amount)
	}

	if acc.mortgageInterest.IsPositive() {
		acc.addExpense(keyMortgageInterest, labelMortgageInterest, labelMortgageInterest, acc.mortgageInterest)
	}
	if acc.ccaTotal.IsPositive() {
		acc.addExpense(keyCCA, labelCCA, labelCCA, acc.ccaTotal)
	}

	totalExpenses := acc.operatingTotal.Add(acc.mortgageInterest).Add(acc.ccaTotal)

	expenses := make([]ExpenseLine, 0, len(acc.expenseOrder))
	for _, key := range acc.expenseOrder {
		line := *acc.expenseByKey[key]
		line.Amount = line.Amount.Rounded()
		expenses = append(expenses, line)
	}

	return &ComputedData{
		TaxYear:              taxYear,
		GrossRents:           acc.grossRents.Rounded(),
		OtherIncome:          acc.otherIncome.Rounded(),
		TotalIncome:          totalIncome.Rounded(),
		Expenses:             expenses,
		TotalExpenses:        totalExpenses.Rounded(),
		NetIncome:            totalIncome.Sub(totalExpenses).Rounded(),
		MortgageInterest:     acc.mortgageInterest.Rounded(),
		CapitalCostAllowance: acc.ccaTotal.Rounded(),
		IncomeDetails:        acc.incomeDetails,
		CCADetails:           acc.ccaDetails,
	}
}

func isRentLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range rentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
