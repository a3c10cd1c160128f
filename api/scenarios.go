/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates properties, recurring
	amounts, invoices, mortgages, and depreciation settings that demonstrate
	specific engine features.

AVAILABLE SCENARIOS:

	single-duplex:     One property, monthly rent, recurring expenses
	mid-year-tenant:   Lease starting mid-year (prorated occurrences)
	financed-triplex:  Mortgage interest plus invoice expenses
	depreciation:      CCA with half-year rule and ceiling

HOW SCENARIOS WORK:
 1. Create properties for the demo user
 2. Attach revenue/expense rows per the scenario
 3. Optionally attach mortgages and CCA inputs
 4. The caller then prepares statements via /api/statements/prepare

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "financed-triplex"}

NOTE:

	Scenarios write demo data under user "demo". Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers
  - store/sqlite/sqlite.go: Record persistence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/taxform-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

const demoUser = engine.UserID("demo")

var scenarios = []ScenarioDTO{
	{
		ID:          "single-duplex",
		Name:        "Single Duplex",
		Description: "One property with monthly rent and recurring expenses",
		Category:    "basic",
	},
	{
		ID:          "mid-year-tenant",
		Name:        "Mid-Year Tenant",
		Description: "Lease starting mid-year, prorated monthly occurrences",
		Category:    "proration",
	},
	{
		ID:          "financed-triplex",
		Name:        "Financed Triplex",
		Description: "Mortgage interest from the amortization schedule plus invoices",
		Category:    "mortgage",
	},
	{
		ID:          "depreciation",
		Name:        "Depreciation",
		Description: "CCA with half-year rule, capped so it cannot create a loss",
		Category:    "cca",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "single-duplex":
		err = loadSingleDuplexScenario(ctx, h)
	case "mid-year-tenant":
		err = loadMidYearTenantScenario(ctx, h)
	case "financed-triplex":
		err = loadFinancedTriplexScenario(ctx, h)
	case "depreciation":
		err = loadDepreciationScenario(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadSingleDuplexScenario(ctx context.Context, h *Handler) error {
	prop := engine.Property{
		ID:           "duplex-1",
		OwnerID:      demoUser,
		Address:      "123 Rue Principale, Montreal",
		OwnershipPct: decimal.NewFromInt(100),
	}
	if err := h.Store.SaveProperty(ctx, prop); err != nil {
		return err
	}

	rent := engine.RecurringAmount{
		ID:        "duplex-1-rent",
		Label:     "Loyer unite A",
		Amount:    engine.NewMoney(1800),
		Frequency: engine.FreqMonthly,
		StartDate: engine.NewDate(2023, 1, 1),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "revenue", rent); err != nil {
		return err
	}

	insurance := engine.RecurringAmount{
		ID:        "duplex-1-insurance",
		Label:     "Insurance",
		Amount:    engine.NewMoney(1450),
		Frequency: engine.FreqAnnual,
		StartDate: engine.NewDate(2023, 1, 1),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "expense", insurance); err != nil {
		return err
	}

	taxes := engine.RecurringAmount{
		ID:        "duplex-1-taxes",
		Label:     "Property taxes",
		Amount:    engine.NewMoney(3600),
		Frequency: engine.FreqAnnual,
		StartDate: engine.NewDate(2023, 1, 1),
	}
	return h.Store.SaveRecurringAmount(ctx, prop.ID, "expense", taxes)
}

func loadMidYearTenantScenario(ctx context.Context, h *Handler) error {
	prop := engine.Property{
		ID:           "condo-1",
		OwnerID:      demoUser,
		Address:      "45 Avenue du Parc, Montreal",
		OwnershipPct: decimal.NewFromInt(100),
	}
	if err := h.Store.SaveProperty(ctx, prop); err != nil {
		return err
	}

	// Lease starts June 15: seven monthly occurrences in the start year.
	rent := engine.RecurringAmount{
		ID:        "condo-1-rent",
		Label:     "Rent",
		Amount:    engine.NewMoney(1000),
		Frequency: engine.FreqMonthly,
		StartDate: engine.NewDate(2024, 6, 15),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "revenue", rent); err != nil {
		return err
	}

	condoFees := engine.RecurringAmount{
		ID:        "condo-1-fees",
		Label:     "Condo fees",
		Amount:    engine.NewMoney(310),
		Frequency: engine.FreqMonthly,
		StartDate: engine.NewDate(2024, 6, 15),
	}
	return h.Store.SaveRecurringAmount(ctx, prop.ID, "expense", condoFees)
}

func loadFinancedTriplexScenario(ctx context.Context, h *Handler) error {
	prop := engine.Property{
		ID:           "triplex-1",
		OwnerID:      demoUser,
		Address:      "78 Boulevard Saint-Laurent, Montreal",
		OwnershipPct: decimal.NewFromInt(100),
	}
	if err := h.Store.SaveProperty(ctx, prop); err != nil {
		return err
	}

	rent := engine.RecurringAmount{
		ID:        "triplex-1-rent",
		Label:     "Loyer (trois unites)",
		Amount:    engine.NewMoney(4500),
		Frequency: engine.FreqMonthly,
		StartDate: engine.NewDate(2022, 7, 1),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "revenue", rent); err != nil {
		return err
	}

	mortgage := engine.Mortgage{
		ID:                 "triplex-1-mortgage",
		Lender:             "Banque Demo",
		Principal:          engine.NewMoney(520000),
		AnnualRate:         decimal.NewFromFloat(0.0475),
		AmortizationMonths: 300,
		TermMonths:         60,
		PaymentFrequency:   12,
		StartDate:          engine.NewDate(2022, 7, 1),
	}
	if err := h.Store.SaveMortgage(ctx, prop.ID, mortgage); err != nil {
		return err
	}

	repair := engine.InvoiceExpense{
		ID:          "triplex-1-roof",
		Date:        engine.NewDate(2024, 9, 12),
		BaseAmount:  engine.NewMoney(4200),
		Tax1:        engine.NewMoney(210),
		Tax2:        engine.NewMoney(418.95),
		Category:    "repairs",
		Description: "Roof membrane repair",
	}
	return h.Store.SaveInvoice(ctx, prop.ID, repair)
}

func loadDepreciationScenario(ctx context.Context, h *Handler) error {
	prop := engine.Property{
		ID:           "fourplex-1",
		OwnerID:      demoUser,
		Address:      "9 Rue des Erables, Quebec",
		OwnershipPct: decimal.NewFromInt(100),
	}
	if err := h.Store.SaveProperty(ctx, prop); err != nil {
		return err
	}

	rent := engine.RecurringAmount{
		ID:        "fourplex-1-rent",
		Label:     "Rent",
		Amount:    engine.NewMoney(5200),
		Frequency: engine.FreqMonthly,
		StartDate: engine.NewDate(2021, 1, 1),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "revenue", rent); err != nil {
		return err
	}

	maintenance := engine.RecurringAmount{
		ID:        "fourplex-1-maintenance",
		Label:     "Maintenance contract",
		Amount:    engine.NewMoney(950),
		Frequency: engine.FreqQuarterly,
		StartDate: engine.NewDate(2021, 1, 1),
	}
	if err := h.Store.SaveRecurringAmount(ctx, prop.ID, "expense", maintenance); err != nil {
		return err
	}

	cca := engine.DepreciationSetting{
		ClassCode:    "1",
		RatePercent:  decimal.NewFromInt(4),
		OpeningUCC:   engine.NewMoney(480000),
		Additions:    engine.NewMoney(25000),
		Dispositions: engine.NewMoney(0),
	}
	return h.Store.SaveDepreciationSetting(ctx, prop.ID, cca)
}
