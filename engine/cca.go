/*
cca.go - Capital cost allowance (depreciation) calculator

PURPOSE:
  Computes the allowed CCA deduction and the closing undepreciated capital
  cost (UCC) for one property's depreciation setting.

RULES:
  base       = max(0, opening + additions/2 - dispositions)   (half-year rule
               applies to additions only)
  maxAllowed = base * rate
  amount     = min(maxAllowed, max(0, netIncomeBeforeCCA))
               CCA can never create or increase a loss.
  closing    = max(0, opening + additions - dispositions - amount)

  An absent setting, or a zero rate, yields a zero amount and no detail line.

KEYS:
  The detail line key is "cca-{propertyID}-{classCode}". Two properties in
  the same scope may track the same class, so the class code alone does not
  identify a line.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// CCAResult is the outcome of one CCA computation.
type CCAResult struct {
	Amount     Money
	ClosingUCC Money
	Detail     *CCALine
}

// ComputeCCA applies the half-year rule and the income ceiling for one
// property's setting. The setting may be nil (no depreciation tracked for
// the property).
func ComputeCCA(propertyID PropertyID, setting *DepreciationSetting, netIncomeBeforeCCA Money) CCAResult {
	if setting == nil || setting.RatePercent.IsZero() {
		return CCAResult{Amount: ZeroMoney(), ClosingUCC: ZeroMoney()}
	}

	rate := setting.RatePercent.Div(hundred)

	base := setting.OpeningUCC.
		Add(setting.Additions.Div(two)).
		Sub(setting.Dispositions).
		ClampNonNegative()

	maxAllowed := base.Mul(rate)
	amount := maxAllowed.Min(netIncomeBeforeCCA.ClampNonNegative())

	closing := setting.OpeningUCC.
		Add(setting.Additions).
		Sub(setting.Dispositions).
		Sub(amount).
		ClampNonNegative()

	return CCAResult{
		Amount:     amount,
		ClosingUCC: closing,
		Detail: &CCALine{
			Key:          fmt.Sprintf("cca-%s-%s", propertyID, setting.ClassCode),
			ClassCode:    setting.ClassCode,
			RatePercent:  setting.RatePercent,
			OpeningUCC:   setting.OpeningUCC.Rounded(),
			Additions:    setting.Additions.Rounded(),
			Dispositions: setting.Dispositions.Rounded(),
			BaseForCCA:   base.Rounded(),
			Amount:       amount.Rounded(),
			ClosingUCC:   closing.Rounded(),
		},
	}
}
