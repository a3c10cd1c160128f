/*
reconcile.go - Merge/carry-forward reconciler

PURPOSE:
  Merges a freshly composed payload with the previously persisted payload
  for the same scope. The policy, applied independently per field:

    if the field existed in previous, keep previous's value;
    otherwise take proposed's computed default.

  A user's manual edit therefore survives every regeneration for the same
  scope, for as long as the bucket exists in the form definition.

TOTALS:
  After merging, ALL totals are recomputed from the merged line items.
  Totals are never carried forward verbatim; the payload stays internally
  consistent regardless of what was stored.

WARNINGS:
  Two non-fatal conditions are surfaced on the result, never as errors:
  - A previous value referencing a key absent from the proposed payload
    (expense bucket, CCA line or metadata field; the form definition or
    the property scope changed): the orphaned value is dropped.
  - A negative metadata-free amount clamped to zero.
*/
package forms

import (
	"fmt"

	"github.com/warp/taxform-engine/engine"
)

// ReconcileResult carries the merged payload plus the non-fatal diagnostics
// channel the caller can surface to the end user.
type ReconcileResult struct {
	Payload  *FormPayload
	Warnings []string
}

// Reconcile merges proposed with previous. previous may be nil (first
// generation for this scope).
func Reconcile(proposed *FormPayload, previous *FormPayload) ReconcileResult {
	var warnings []string
	merged := &FormPayload{
		FormType:     proposed.FormType,
		TaxYear:      proposed.TaxYear,
		IncomeLabels: proposed.IncomeLabels,
	}

	// Metadata: previous value wins when the key existed before.
	for _, field := range proposed.Metadata {
		if previous != nil {
			if prev, ok := previous.metadataValue(field.Key); ok {
				field.Value = prev
			}
		}
		merged.Metadata = append(merged.Metadata, field)
	}

	// Income: a previous payload's income block was user-visible, so its
	// values are preserved wholesale when present.
	merged.Income = proposed.Income
	if previous != nil {
		merged.Income.GrossRents = previous.Income.GrossRents
		merged.Income.OtherIncome = previous.Income.OtherIncome
	}

	// Expense buckets, matched by stable key.
	for _, line := range proposed.Expenses {
		if previous != nil {
			if prev, ok := previous.expenseAmount(line.Key); ok {
				line.Amount = prev
			}
		}
		merged.Expenses = append(merged.Expenses, line)
	}

	// CCA detail lines, matched by stable key.
	for _, line := range proposed.CCA {
		if previous != nil {
			if prev, ok := previous.ccaLine(line.Key); ok {
				line = prev
			}
		}
		merged.CCA = append(merged.CCA, line)
	}

	// Previous keys that no longer exist in the proposed payload are
	// dropped, with a trace; this is the tolerated-inconsistency case.
	// Expense buckets, CCA lines and metadata fields all get the same
	// treatment.
	if previous != nil {
		expenseKeys := make(map[string]bool, len(proposed.Expenses))
		for _, line := range proposed.Expenses {
			expenseKeys[line.Key] = true
		}
		for _, line := range previous.Expenses {
			if !expenseKeys[line.Key] {
				warnings = append(warnings, fmt.Sprintf(
					"%s: %q (value %s dropped)", engine.ErrInconsistentPrevious, line.Key, line.Amount))
			}
		}

		ccaKeys := make(map[string]bool, len(proposed.CCA))
		for _, line := range proposed.CCA {
			ccaKeys[line.Key] = true
		}
		for _, line := range previous.CCA {
			if !ccaKeys[line.Key] {
				warnings = append(warnings, fmt.Sprintf(
					"%s: %q (value %s dropped)", engine.ErrInconsistentPrevious, line.Key, line.Amount))
			}
		}

		metadataKeys := make(map[string]bool, len(proposed.Metadata))
		for _, field := range proposed.Metadata {
			metadataKeys[field.Key] = true
		}
		for _, field := range previous.Metadata {
			if !metadataKeys[field.Key] {
				warnings = append(warnings, fmt.Sprintf(
					"%s: %q (value %q dropped)", engine.ErrInconsistentPrevious, field.Key, field.Value))
			}
		}
	}

	warnings = append(warnings, clampNegatives(merged)...)
	recomputeTotals(merged)

	return ReconcileResult{Payload: merged, Warnings: warnings}
}

// clampNegatives floors negative income and expense amounts at zero. Every
// clamp is reported as a warning.
func clampNegatives(p *FormPayload) []string {
	var warnings []string

	if p.Income.GrossRents.IsNegative() {
		warnings = append(warnings, fmt.Sprintf("gross rents %s clamped to 0", p.Income.GrossRents))
		p.Income.GrossRents = engine.ZeroMoney()
	}
	if p.Income.OtherIncome.IsNegative() {
		warnings = append(warnings, fmt.Sprintf("other income %s clamped to 0", p.Income.OtherIncome))
		p.Income.OtherIncome = engine.ZeroMoney()
	}
	for i := range p.Expenses {
		if p.Expenses[i].Amount.IsNegative() {
			warnings = append(warnings, fmt.Sprintf(
				"expense %q %s clamped to 0", p.Expenses[i].Key, p.Expenses[i].Amount))
			p.Expenses[i].Amount = engine.ZeroMoney()
		}
	}
	return warnings
}

// recomputeTotals rebuilds every dependent total from the merged line items.
func recomputeTotals(p *FormPayload) {
	p.Income.TotalIncome = p.Income.GrossRents.Add(p.Income.OtherIncome).Rounded()

	total := engine.ZeroMoney()
	for _, line := range p.Expenses {
		total = total.Add(line.Amount)
	}
	p.Totals.TotalExpenses = total.Rounded()
	p.Totals.NetIncome = p.Income.TotalIncome.Sub(p.Totals.TotalExpenses).Rounded()
}
