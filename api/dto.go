/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SCALAR CONVENTIONS:
  - Monetary values: plain decimal numbers, rounded to 2 places
  - Dates: ISO-8601 calendar dates (YYYY-MM-DD)
  - Percentages: values in [0,100], never renormalized

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - forms/types.go: FormPayload, which responses embed directly
*/
package api

import (
	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/statement"
)

// =============================================================================
// PROPERTY & RECORD TYPES
// =============================================================================

type PropertyDTO struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_id"`
	Address      string  `json:"address"`
	OwnershipPct float64 `json:"ownership_pct"`
}

type CreatePropertyRequest struct {
	ID           string  `json:"id,omitempty"`
	UserID       string  `json:"user_id"`
	Address      string  `json:"address"`
	OwnershipPct float64 `json:"ownership_pct,omitempty"`
}

// CreateRecurringRequest covers both revenue and expense rows; the route
// determines the kind.
type CreateRecurringRequest struct {
	ID        string  `json:"id,omitempty"`
	UserID    string  `json:"user_id"`
	Label     string  `json:"label"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date,omitempty"`
}

type CreateInvoiceRequest struct {
	ID          string  `json:"id,omitempty"`
	UserID      string  `json:"user_id"`
	Date        string  `json:"date"`
	BaseAmount  float64 `json:"base_amount"`
	Tax1        float64 `json:"tax1,omitempty"`
	Tax2        float64 `json:"tax2,omitempty"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
}

type CreateMortgageRequest struct {
	ID                 string  `json:"id,omitempty"`
	UserID             string  `json:"user_id"`
	Lender             string  `json:"lender,omitempty"`
	Principal          float64 `json:"principal"`
	AnnualRate         float64 `json:"annual_rate"`
	AmortizationMonths int     `json:"amortization_months"`
	TermMonths         int     `json:"term_months"`
	PaymentFrequency   int     `json:"payment_frequency,omitempty"`
	StartDate          string  `json:"start_date"`
	PaymentAmount      float64 `json:"payment_amount,omitempty"`
}

type SetDepreciationRequest struct {
	UserID       string  `json:"user_id"`
	ClassCode    string  `json:"class_code"`
	RatePercent  float64 `json:"rate_percent"`
	OpeningUCC   float64 `json:"opening_ucc,omitempty"`
	Additions    float64 `json:"additions,omitempty"`
	Dispositions float64 `json:"dispositions,omitempty"`
}

// =============================================================================
// STATEMENT TYPES
// =============================================================================

type PrepareStatementRequest struct {
	UserID     string `json:"user_id"`
	FormType   string `json:"form_type"`
	TaxYear    int    `json:"tax_year"`
	PropertyID string `json:"property_id,omitempty"`
}

// PrepareStatementResponse is the read-only preview: nothing here has been
// persisted.
type PrepareStatementResponse struct {
	Computed   ComputedDTO        `json:"computed"`
	Payload    *forms.FormPayload `json:"payload"`
	PreviousID string             `json:"previous_id,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

type CreateStatementRequest struct {
	UserID     string            `json:"user_id"`
	FormType   string            `json:"form_type"`
	TaxYear    int               `json:"tax_year"`
	PropertyID string            `json:"property_id,omitempty"`
	Payload    forms.FormPayload `json:"payload"`
	Notes      string            `json:"notes,omitempty"`
}

type StatementDTO struct {
	ID         string            `json:"id"`
	FormType   string            `json:"form_type"`
	TaxYear    int               `json:"tax_year"`
	PropertyID string            `json:"property_id,omitempty"`
	Payload    forms.FormPayload `json:"payload"`
	Computed   ComputedDTO       `json:"computed"`
	Notes      string            `json:"notes,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

// ComputedDTO is the flattened computed snapshot for API responses.
type ComputedDTO struct {
	TaxYear              int              `json:"tax_year"`
	GrossRents           float64          `json:"gross_rents"`
	OtherIncome          float64          `json:"other_income"`
	TotalIncome          float64          `json:"total_income"`
	TotalExpenses        float64          `json:"total_expenses"`
	NetIncome            float64          `json:"net_income"`
	MortgageInterest     float64          `json:"mortgage_interest"`
	CapitalCostAllowance float64          `json:"capital_cost_allowance"`
	Expenses             []ExpenseLineDTO `json:"expenses"`
}

type ExpenseLineDTO struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Category string  `json:"category,omitempty"`
	Amount   float64 `json:"amount"`
}

// =============================================================================
// FORM & SCENARIO TYPES
// =============================================================================

type FormTypeDTO struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
	Buckets      int    `json:"buckets"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toComputedDTO(c *engine.ComputedData) ComputedDTO {
	dto := ComputedDTO{
		TaxYear:              c.TaxYear,
		GrossRents:           c.GrossRents.Float64(),
		OtherIncome:          c.OtherIncome.Float64(),
		TotalIncome:          c.TotalIncome.Float64(),
		TotalExpenses:        c.TotalExpenses.Float64(),
		NetIncome:            c.NetIncome.Float64(),
		MortgageInterest:     c.MortgageInterest.Float64(),
		CapitalCostAllowance: c.CapitalCostAllowance.Float64(),
		Expenses:             make([]ExpenseLineDTO, 0, len(c.Expenses)),
	}
	for _, line := range c.Expenses {
		dto.Expenses = append(dto.Expenses, ExpenseLineDTO{
			Key:      line.Key,
			Label:    line.Label,
			Category: line.Category,
			Amount:   line.Amount.Float64(),
		})
	}
	return dto
}

func toStatementDTO(st *statement.Statement) StatementDTO {
	return StatementDTO{
		ID:         st.ID,
		FormType:   string(st.FormType),
		TaxYear:    st.TaxYear,
		PropertyID: string(st.PropertyID),
		Payload:    st.Payload,
		Computed:   toComputedDTO(&st.Computed),
		Notes:      st.Notes,
		CreatedAt:  st.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
