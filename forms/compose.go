/*
compose.go - Form template composer

PURPOSE:
  Maps a ComputedData snapshot onto a form definition, producing the
  "proposed" FormPayload. Every bucket of the definition appears in the
  output, in definition order, even when no computed line landed in it:
  a stable key set is what the carry-forward merge in reconcile.go keys on.

MATCHING:
  Each computed expense line goes to the FIRST bucket whose matchers hit
  its category or label (case-insensitive substring). No hit: the fallback
  bucket. Multiple lines in the same bucket are summed.

PREVIOUS VALUES:
  Composition always produces computed defaults. Preserving values from a
  previous payload is exclusively the reconciler's job; compose never
  consults previous amounts.
*/
package forms

import (
	"strings"

	"github.com/warp/taxform-engine/engine"
)

// Compose produces the proposed payload for one property, year and form
// definition. The result feeds Reconcile; it is never persisted directly.
func Compose(def *Definition, computed *engine.ComputedData, prop engine.Property, taxYear int) *FormPayload {
	payload := &FormPayload{
		FormType: def.Type,
		TaxYear:  taxYear,
		Income: PayloadIncome{
			GrossRents:  computed.GrossRents,
			OtherIncome: computed.OtherIncome,
			TotalIncome: computed.TotalIncome,
		},
		IncomeLabels: incomeLabelsFor(def),
		Totals: PayloadTotals{
			TotalExpenses: computed.TotalExpenses,
			NetIncome:     computed.NetIncome,
		},
	}

	for _, seed := range def.Metadata {
		payload.Metadata = append(payload.Metadata, MetadataField{
			Key:   seed.Key,
			Label: seed.Label,
			Value: seed.Seed(prop, taxYear),
		})
	}

	// Bucket sums, keyed by bucket key; every definition bucket emits a line.
	sums := make(map[string]engine.Money, len(def.Buckets))
	for _, line := range computed.Expenses {
		bucket := def.assign(line)
		sums[bucket.Key] = sums[bucket.Key].Add(line.Amount)
	}

	for _, b := range def.Buckets {
		amount, ok := sums[b.Key]
		if !ok {
			amount = engine.ZeroMoney()
		}
		payload.Expenses = append(payload.Expenses, PayloadExpense{
			Key:        b.Key,
			Label:      b.Label,
			LineNumber: b.LineNumber,
			Amount:     amount.Rounded(),
		})
	}

	payload.CCA = append(payload.CCA, computed.CCADetails...)

	return payload
}

// assign returns the first bucket whose matchers hit the line's category or
// label, falling back to the definition's fallback bucket.
func (d *Definition) assign(line engine.ExpenseLine) Bucket {
	category := strings.ToLower(line.Category)
	label := strings.ToLower(line.Label)

	var fallback Bucket
	for _, b := range d.Buckets {
		if b.Fallback {
			fallback = b
		}
		for _, m := range b.Matchers {
			if strings.Contains(category, m) || strings.Contains(label, m) {
				return b
			}
		}
	}
	return fallback
}

func incomeLabelsFor(def *Definition) IncomeLabels {
	if def.Jurisdiction == "provincial" {
		return IncomeLabels{
			GrossRents:  "Loyers bruts",
			OtherIncome: "Autres revenus",
			TotalIncome: "Revenus totaux",
		}
	}
	return IncomeLabels{
		GrossRents:  "Gross rents",
		OtherIncome: "Other income",
		TotalIncome: "Total income",
	}
}
