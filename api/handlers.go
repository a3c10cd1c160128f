/*
handlers.go - HTTP API handlers for the rental tax engine

PURPOSE:
  Exposes the tax computation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the statement
  service and stores.

ENDPOINTS:
  Properties:
    GET    /api/properties                       List properties for a user
    POST   /api/properties                       Create property
    POST   /api/properties/{id}/revenues         Add recurring revenue
    POST   /api/properties/{id}/expenses         Add recurring expense
    POST   /api/properties/{id}/invoices         Add invoice expense
    POST   /api/properties/{id}/mortgages        Add mortgage
    PUT    /api/properties/{id}/depreciation     Set depreciation (CCA) inputs

  Statements:
    POST   /api/statements/prepare               Read-only preview (never persists)
    POST   /api/statements                       Create statement
    GET    /api/statements                       List statements for a user
    GET    /api/statements/{id}                  Get one statement

  Forms:
    GET    /api/forms                            List registered form types
    POST   /api/forms                            Register a JSON-defined form

  Scenarios:
    GET    /api/scenarios                        List demo scenarios
    POST   /api/scenarios/load                   Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad tax year, unknown form type, bad dates)
  - 404: Property or statement not found
  - 409: Statement already exists for the scope
  - 500: Internal errors

SECURITY NOTE:
  Identity is taken from the user_id field/query parameter; there is no
  authentication middleware. Authentication is outside this engine's scope.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - statement/service.go: Prepare/Create orchestration
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/factory"
	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/statement"
	"github.com/warp/taxform-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Service     *statement.Service
	Registry    *forms.Registry
	FormFactory *factory.FormFactory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	registry := forms.NewRegistry()
	return &Handler{
		Store:       store,
		Service:     statement.NewService(store, store, registry),
		Registry:    registry,
		FormFactory: factory.NewFormFactory(),
	}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns all properties for a user.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	properties, err := h.Store.Properties(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list properties", err)
		return
	}

	dtos := make([]PropertyDTO, 0, len(properties))
	for _, p := range properties {
		pct, _ := p.OwnershipPct.Float64()
		dtos = append(dtos, PropertyDTO{
			ID:           string(p.ID),
			OwnerID:      string(p.OwnerID),
			Address:      p.Address,
			OwnershipPct: pct,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProperty creates a new property.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.Address == "" {
		writeError(w, http.StatusBadRequest, "user_id and address are required", nil)
		return
	}

	pct := decimal.NewFromFloat(req.OwnershipPct)
	if req.OwnershipPct == 0 {
		pct = decimal.NewFromInt(100)
	}

	prop := engine.Property{
		ID:           engine.PropertyID(orNewID(req.ID)),
		OwnerID:      engine.UserID(req.UserID),
		Address:      req.Address,
		OwnershipPct: pct,
	}
	if err := h.Store.SaveProperty(r.Context(), prop); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create property", err)
		return
	}

	writeJSON(w, http.StatusCreated, PropertyDTO{
		ID:           string(prop.ID),
		OwnerID:      string(prop.OwnerID),
		Address:      prop.Address,
		OwnershipPct: req.OwnershipPct,
	})
}

// AddRevenue adds a recurring revenue row to a property.
func (h *Handler) AddRevenue(w http.ResponseWriter, r *http.Request) {
	h.addRecurring(w, r, "revenue")
}

// AddExpense adds a recurring expense row to a property.
func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	h.addRecurring(w, r, "expense")
}

func (h *Handler) addRecurring(w http.ResponseWriter, r *http.Request, kind string) {
	propertyID := engine.PropertyID(chi.URLParam(r, "id"))

	var req CreateRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if !h.ownsProperty(w, r, engine.UserID(req.UserID), propertyID) {
		return
	}

	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	ra := engine.RecurringAmount{
		ID:        engine.RecordID(orNewID(req.ID)),
		Label:     req.Label,
		Amount:    engine.NewMoney(req.Amount),
		Frequency: engine.Frequency(req.Frequency),
		StartDate: start,
	}
	if req.EndDate != "" {
		end, err := engine.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		if end.Before(start) {
			writeError(w, http.StatusBadRequest, "end_date must not precede start_date", nil)
			return
		}
		ra.EndDate = &end
	}
	if ra.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must not be negative", nil)
		return
	}

	if err := h.Store.SaveRecurringAmount(r.Context(), propertyID, kind, ra); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save "+kind, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(ra.ID)})
}

// AddInvoice adds a one-off invoice expense to a property.
func (h *Handler) AddInvoice(w http.ResponseWriter, r *http.Request) {
	propertyID := engine.PropertyID(chi.URLParam(r, "id"))

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.ownsProperty(w, r, engine.UserID(req.UserID), propertyID) {
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	inv := engine.InvoiceExpense{
		ID:          engine.RecordID(orNewID(req.ID)),
		Date:        date,
		BaseAmount:  engine.NewMoney(req.BaseAmount),
		Tax1:        engine.NewMoney(req.Tax1),
		Tax2:        engine.NewMoney(req.Tax2),
		Category:    req.Category,
		Description: req.Description,
	}
	if err := h.Store.SaveInvoice(r.Context(), propertyID, inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(inv.ID)})
}

// AddMortgage adds a mortgage to a property.
func (h *Handler) AddMortgage(w http.ResponseWriter, r *http.Request) {
	propertyID := engine.PropertyID(chi.URLParam(r, "id"))

	var req CreateMortgageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.ownsProperty(w, r, engine.UserID(req.UserID), propertyID) {
		return
	}
	if req.Principal <= 0 || req.AmortizationMonths <= 0 || req.TermMonths <= 0 {
		writeError(w, http.StatusBadRequest, "principal, amortization_months and term_months must be positive", nil)
		return
	}

	start, err := engine.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	m := engine.Mortgage{
		ID:                 engine.RecordID(orNewID(req.ID)),
		Lender:             req.Lender,
		Principal:          engine.NewMoney(req.Principal),
		AnnualRate:         decimal.NewFromFloat(req.AnnualRate),
		AmortizationMonths: req.AmortizationMonths,
		TermMonths:         req.TermMonths,
		PaymentFrequency:   req.PaymentFrequency,
		StartDate:          start,
	}
	if m.PaymentFrequency == 0 {
		m.PaymentFrequency = 12
	}
	if req.PaymentAmount > 0 {
		p := engine.NewMoney(req.PaymentAmount)
		m.PaymentAmount = &p
	}
	if err := h.Store.SaveMortgage(r.Context(), propertyID, m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save mortgage", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(m.ID)})
}

// SetDepreciation sets the CCA inputs for a property.
func (h *Handler) SetDepreciation(w http.ResponseWriter, r *http.Request) {
	propertyID := engine.PropertyID(chi.URLParam(r, "id"))

	var req SetDepreciationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.ownsProperty(w, r, engine.UserID(req.UserID), propertyID) {
		return
	}
	if req.RatePercent < 0 {
		writeError(w, http.StatusBadRequest, "rate_percent must not be negative", nil)
		return
	}

	d := engine.DepreciationSetting{
		ClassCode:    req.ClassCode,
		RatePercent:  decimal.NewFromFloat(req.RatePercent),
		OpeningUCC:   engine.NewMoney(req.OpeningUCC),
		Additions:    engine.NewMoney(req.Additions),
		Dispositions: engine.NewMoney(req.Dispositions),
	}
	if err := h.Store.SaveDepreciationSetting(r.Context(), propertyID, d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save depreciation setting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"property_id": string(propertyID)})
}

// ownsProperty verifies scope ownership, writing the error response itself.
func (h *Handler) ownsProperty(w http.ResponseWriter, r *http.Request, userID engine.UserID, propertyID engine.PropertyID) bool {
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return false
	}
	prop, err := h.Store.Property(r.Context(), userID, propertyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load property", err)
		return false
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "Property not found", nil)
		return false
	}
	return true
}

// =============================================================================
// STATEMENT HANDLERS
// =============================================================================

// PrepareStatement computes the read-only statement preview.
// POST /api/statements/prepare
func (h *Handler) PrepareStatement(w http.ResponseWriter, r *http.Request) {
	var req PrepareStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.Prepare(r.Context(),
		engine.UserID(req.UserID), forms.FormType(req.FormType), req.TaxYear, engine.PropertyID(req.PropertyID))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := PrepareStatementResponse{
		Computed: toComputedDTO(result.Computed),
		Payload:  result.Payload,
		Warnings: result.Warnings,
	}
	if result.Previous != nil {
		resp.PreviousID = result.Previous.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateStatement durably creates a statement from a caller-approved payload.
// POST /api/statements
func (h *Handler) CreateStatement(w http.ResponseWriter, r *http.Request) {
	var req CreateStatementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	st, err := h.Service.Create(r.Context(), statement.CreateInput{
		UserID:     engine.UserID(req.UserID),
		FormType:   forms.FormType(req.FormType),
		TaxYear:    req.TaxYear,
		PropertyID: engine.PropertyID(req.PropertyID),
		Payload:    req.Payload,
		Notes:      req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStatementDTO(st))
}

// ListStatements returns all statements for a user.
// GET /api/statements?user_id=...
func (h *Handler) ListStatements(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	statements, err := h.Store.ListStatements(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list statements", err)
		return
	}

	dtos := make([]StatementDTO, 0, len(statements))
	for i := range statements {
		dtos = append(dtos, toStatementDTO(&statements[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatement returns one statement by ID.
// GET /api/statements/{id}?user_id=...
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID := engine.UserID(r.URL.Query().Get("user_id"))
	id := chi.URLParam(r, "id")

	st, err := h.Store.GetStatement(r.Context(), userID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get statement", err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "Statement not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(st))
}

// =============================================================================
// FORM HANDLERS
// =============================================================================

// ListForms returns the registered form types.
// GET /api/forms
func (h *Handler) ListForms(w http.ResponseWriter, r *http.Request) {
	var dtos []FormTypeDTO
	for _, ft := range h.Registry.Types() {
		def, err := h.Registry.Lookup(ft)
		if err != nil {
			continue
		}
		dtos = append(dtos, FormTypeDTO{
			Type:         string(def.Type),
			Name:         def.Name,
			Jurisdiction: def.Jurisdiction,
			Buckets:      len(def.Buckets),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterForm registers a JSON-defined form schema.
// POST /api/forms
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	var fj factory.FormJSON
	if err := json.NewDecoder(r.Body).Decode(&fj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := h.FormFactory.FromJSON(fj)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Registry.Register(def); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FormTypeDTO{
		Type:         string(def.Type),
		Name:         def.Name,
		Jurisdiction: def.Jurisdiction,
		Buckets:      len(def.Buckets),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrDuplicateStatement):
		writeError(w, http.StatusConflict, "Statement already exists for this scope", err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
