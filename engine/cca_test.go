package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/taxform-engine/engine"
)

// =============================================================================
// CCA TESTS
// =============================================================================

func TestComputeCCA_HalfYearRule(t *testing.T) {
	// GIVEN: $100,000 opening UCC plus $50,000 of additions at 4%
	// WHEN: Computing CCA against ample income
	// THEN: Only half the additions enter the base:
	//       base = 100000 + 25000 = 125000, amount = 5000

	setting := &engine.DepreciationSetting{
		ClassCode:   "1",
		RatePercent: decimal.NewFromInt(4),
		OpeningUCC:  money(100000),
		Additions:   money(50000),
	}
	result := engine.ComputeCCA("prop-1", setting, money(40000))

	assertMoneyEqual(t, 5000, result.Amount)
	// Closing draws the full additions back in: 100000 + 50000 - 5000
	assertMoneyEqual(t, 145000, result.ClosingUCC)

	require.NotNil(t, result.Detail)
	assert.Equal(t, "cca-prop-1-1", result.Detail.Key)
	assertMoneyEqual(t, 125000, result.Detail.BaseForCCA)
}

func TestComputeCCA_IncomeCeiling(t *testing.T) {
	// GIVEN: Maximum allowed CCA of $5000 but only $1200 of net income
	// THEN: The deduction is capped at the income; CCA never creates a loss

	setting := &engine.DepreciationSetting{
		ClassCode:   "1",
		RatePercent: decimal.NewFromInt(4),
		OpeningUCC:  money(125000),
	}
	result := engine.ComputeCCA("prop-1", setting, money(1200))

	assertMoneyEqual(t, 1200, result.Amount)
	assertMoneyEqual(t, 123800, result.ClosingUCC)
}

func TestComputeCCA_NegativeIncomeYieldsZero(t *testing.T) {
	// GIVEN: A property already operating at a loss
	// THEN: No CCA is deducted and the UCC pool is untouched

	setting := &engine.DepreciationSetting{
		ClassCode:   "1",
		RatePercent: decimal.NewFromInt(4),
		OpeningUCC:  money(80000),
	}
	result := engine.ComputeCCA("prop-1", setting, money(-3500))

	assert.True(t, result.Amount.IsZero())
	assertMoneyEqual(t, 80000, result.ClosingUCC)
}

func TestComputeCCA_NilSetting(t *testing.T) {
	result := engine.ComputeCCA("prop-1", nil, money(50000))
	assert.True(t, result.Amount.IsZero())
	assert.Nil(t, result.Detail)
}

func TestComputeCCA_ZeroRate(t *testing.T) {
	setting := &engine.DepreciationSetting{
		ClassCode:  "1",
		OpeningUCC: money(80000),
	}
	result := engine.ComputeCCA("prop-1", setting, money(50000))
	assert.True(t, result.Amount.IsZero())
	assert.Nil(t, result.Detail)
}

func TestComputeCCA_DispositionsReduceBase(t *testing.T) {
	// GIVEN: Dispositions exceeding opening plus half-additions
	// THEN: The base clamps at zero instead of going negative

	setting := &engine.DepreciationSetting{
		ClassCode:    "1",
		RatePercent:  decimal.NewFromInt(4),
		OpeningUCC:   money(10000),
		Additions:    money(4000),
		Dispositions: money(20000),
	}
	result := engine.ComputeCCA("prop-1", setting, money(50000))

	assert.True(t, result.Amount.IsZero())
	assert.True(t, result.ClosingUCC.IsZero())
	require.NotNil(t, result.Detail)
	assert.True(t, result.Detail.BaseForCCA.IsZero())
}
