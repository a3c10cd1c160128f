package statement_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/statement"
	"github.com/warp/taxform-engine/statement/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestService() (*statement.Service, *store.Memory) {
	mem := store.NewMemory()
	svc := statement.NewService(mem, mem, forms.NewRegistry())
	return svc, mem
}

func seedProperty(mem *store.Memory) engine.Property {
	prop := engine.Property{
		ID:           "prop-1",
		OwnerID:      "user-1",
		Address:      "123 Rue Principale",
		OwnershipPct: decimal.NewFromInt(100),
		Revenues: []engine.RecurringAmount{
			{
				ID:        "r1",
				Label:     "Loyer",
				Amount:    engine.NewMoney(2000),
				Frequency: engine.FreqMonthly,
				StartDate: engine.NewDate(2023, time.January, 1),
			},
		},
		Expenses: []engine.RecurringAmount{
			{
				ID:        "e1",
				Label:     "Insurance",
				Amount:    engine.NewMoney(1450),
				Frequency: engine.FreqAnnual,
				StartDate: engine.NewDate(2023, time.January, 1),
			},
		},
	}
	mem.PutProperty(prop)
	return prop
}

func expenseAmount(t *testing.T, p *forms.FormPayload, key string) engine.Money {
	t.Helper()
	for _, e := range p.Expenses {
		if e.Key == key {
			return e.Amount
		}
	}
	t.Fatalf("bucket %q not found", key)
	return engine.ZeroMoney()
}

// =============================================================================
// PREPARE TESTS
// =============================================================================

func TestPrepare_FirstGeneration(t *testing.T) {
	// GIVEN: One property with records and no prior statement
	// WHEN: Preparing a T776 for 2024
	// THEN: The preview carries computed defaults and no previous reference

	svc, mem := newTestService()
	seedProperty(mem)

	result, err := svc.Prepare(context.Background(), "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)

	assert.Nil(t, result.Previous)
	assert.Empty(t, result.Warnings)
	assert.True(t, result.Computed.GrossRents.Value.Equal(engine.NewMoney(24000).Value))
	assert.True(t, expenseAmount(t, result.Payload, "insurance").Value.Equal(engine.NewMoney(1450).Value))
}

func TestPrepare_NeverPersists(t *testing.T) {
	svc, mem := newTestService()
	seedProperty(mem)

	_, err := svc.Prepare(context.Background(), "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)

	statements, err := mem.ListStatements(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, statements, "prepare must not write")
}

func TestPrepare_UnknownFormType(t *testing.T) {
	svc, mem := newTestService()
	seedProperty(mem)

	_, err := svc.Prepare(context.Background(), "user-1", "X999", 2024, "prop-1")
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestPrepare_UnknownProperty(t *testing.T) {
	svc, mem := newTestService()
	seedProperty(mem)

	_, err := svc.Prepare(context.Background(), "user-1", forms.FormT776, 2024, "prop-999")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestPrepare_EmptyScope(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Prepare(context.Background(), "user-empty", forms.FormT776, 2024, "")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestPrepare_AllPropertiesScope(t *testing.T) {
	// GIVEN: Two properties and no property filter
	// THEN: Both contribute to the computed snapshot

	svc, mem := newTestService()
	seedProperty(mem)
	mem.PutProperty(engine.Property{
		ID:      "prop-2",
		OwnerID: "user-1",
		Address: "45 Avenue du Parc",
		Revenues: []engine.RecurringAmount{
			{ID: "r2", Label: "Rent", Amount: engine.NewMoney(1000), Frequency: engine.FreqMonthly, StartDate: engine.NewDate(2023, time.January, 1)},
		},
	})

	result, err := svc.Prepare(context.Background(), "user-1", forms.FormT776, 2024, "")
	require.NoError(t, err)
	assert.True(t, result.Computed.GrossRents.Value.Equal(engine.NewMoney(36000).Value))
}

// =============================================================================
// CREATE + CARRY-FORWARD TESTS
// =============================================================================

func TestCreate_PersistsCallerPayload(t *testing.T) {
	// GIVEN: A prepared payload the user then edited
	// WHEN: Creating the statement
	// THEN: The edited payload is stored verbatim while the computed snapshot
	//       is rebuilt from source records

	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)

	payload := *prepared.Payload
	for i := range payload.Expenses {
		if payload.Expenses[i].Key == "insurance" {
			payload.Expenses[i].Amount = engine.NewMoney(1600)
		}
	}

	st, err := svc.Create(ctx, statement.CreateInput{
		UserID:     "user-1",
		FormType:   forms.FormT776,
		TaxYear:    2024,
		PropertyID: "prop-1",
		Payload:    payload,
		Notes:      "adjusted insurance after renewal",
	})
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)

	stored, err := mem.GetStatement(ctx, "user-1", st.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, expenseAmount(t, &stored.Payload, "insurance").Value.Equal(engine.NewMoney(1600).Value))
	assert.True(t, stored.Computed.GrossRents.Value.Equal(engine.NewMoney(24000).Value))
}

func TestCreate_DuplicateScopeRejected(t *testing.T) {
	// GIVEN: A statement already exists for (user, form, property, year)
	// THEN: A second create for the same scope fails with the duplicate error

	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)

	in := statement.CreateInput{
		UserID:     "user-1",
		FormType:   forms.FormT776,
		TaxYear:    2024,
		PropertyID: "prop-1",
		Payload:    *prepared.Payload,
	}
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, engine.ErrDuplicateStatement)
}

func TestCreate_DifferentYearsCoexist(t *testing.T) {
	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	for _, year := range []int{2023, 2024} {
		prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, year, "prop-1")
		require.NoError(t, err)
		_, err = svc.Create(ctx, statement.CreateInput{
			UserID: "user-1", FormType: forms.FormT776, TaxYear: year,
			PropertyID: "prop-1", Payload: *prepared.Payload,
		})
		require.NoError(t, err)
	}

	statements, err := mem.ListStatements(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, statements, 2)
}

func TestPrepare_SeedsFromPriorYearStatement(t *testing.T) {
	// GIVEN: A 2023 statement with a user-edited insurance amount
	// WHEN: Preparing 2024 for the same scope
	// THEN: The 2023 edits seed the 2024 preview

	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2023, "prop-1")
	require.NoError(t, err)

	payload := *prepared.Payload
	for i := range payload.Expenses {
		if payload.Expenses[i].Key == "insurance" {
			payload.Expenses[i].Amount = engine.NewMoney(1600)
		}
	}
	_, err = svc.Create(ctx, statement.CreateInput{
		UserID: "user-1", FormType: forms.FormT776, TaxYear: 2023,
		PropertyID: "prop-1", Payload: payload,
	})
	require.NoError(t, err)

	next, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)

	require.NotNil(t, next.Previous)
	assert.Equal(t, 2023, next.Previous.TaxYear)
	assert.True(t, expenseAmount(t, next.Payload, "insurance").Value.Equal(engine.NewMoney(1600).Value),
		"prior-year edit should carry forward into the new preview")
}

func TestPrepare_SameYearStatementWinsOverPriorYear(t *testing.T) {
	// GIVEN: Statements for both 2023 and 2024
	// WHEN: Preparing 2024 again
	// THEN: The 2024 statement is the seeding source, not 2023

	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	for _, year := range []int{2023, 2024} {
		prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, year, "prop-1")
		require.NoError(t, err)
		_, err = svc.Create(ctx, statement.CreateInput{
			UserID: "user-1", FormType: forms.FormT776, TaxYear: year,
			PropertyID: "prop-1", Payload: *prepared.Payload,
		})
		require.NoError(t, err)
	}

	result, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)
	require.NotNil(t, result.Previous)
	assert.Equal(t, 2024, result.Previous.TaxYear)
}

func TestPrepare_FormTypesAreIndependentScopes(t *testing.T) {
	// GIVEN: A T776 statement for 2024
	// WHEN: Preparing a TP128 for the same property and year
	// THEN: The T776 statement does not seed the TP128 preview

	svc, mem := newTestService()
	seedProperty(mem)
	ctx := context.Background()

	prepared, err := svc.Prepare(ctx, "user-1", forms.FormT776, 2024, "prop-1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, statement.CreateInput{
		UserID: "user-1", FormType: forms.FormT776, TaxYear: 2024,
		PropertyID: "prop-1", Payload: *prepared.Payload,
	})
	require.NoError(t, err)

	result, err := svc.Prepare(ctx, "user-1", forms.FormTP128, 2024, "prop-1")
	require.NoError(t, err)
	assert.Nil(t, result.Previous)
	assert.Equal(t, forms.FormTP128, result.Payload.FormType)
}
