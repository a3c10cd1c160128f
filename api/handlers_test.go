/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Property and record creation
- Statement prepare/create flow over HTTP
- Duplicate statement conflict mapping
- Form registration and scenarios
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func seedPropertyWithRent(t *testing.T, srv *httptest.Server) {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/properties", CreatePropertyRequest{
		ID:           "prop-1",
		UserID:       "user-1",
		Address:      "123 Rue Principale",
		OwnershipPct: 100,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/properties/prop-1/revenues", CreateRecurringRequest{
		UserID:    "user-1",
		Label:     "Loyer",
		Amount:    2000,
		Frequency: "monthly",
		StartDate: "2023-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/properties/prop-1/expenses", CreateRecurringRequest{
		UserID:    "user-1",
		Label:     "Insurance",
		Amount:    1450,
		Frequency: "annual",
		StartDate: "2023-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func prepare(t *testing.T, srv *httptest.Server, year int) PrepareStatementResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/statements/prepare", PrepareStatementRequest{
		UserID:     "user-1",
		FormType:   "T776",
		TaxYear:    year,
		PropertyID: "prop-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out PrepareStatementResponse
	decodeBody(t, resp, &out)
	return out
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

func TestCreateAndListProperties(t *testing.T) {
	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	resp, err := http.Get(srv.URL + "/api/properties?user_id=user-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var props []PropertyDTO
	decodeBody(t, resp, &props)
	require.Len(t, props, 1)
	assert.Equal(t, "123 Rue Principale", props[0].Address)
}

func TestAddRecurring_RejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	// Bad date format
	resp := postJSON(t, srv.URL+"/api/properties/prop-1/revenues", CreateRecurringRequest{
		UserID: "user-1", Label: "Rent", Amount: 100, Frequency: "monthly", StartDate: "01/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Negative amount
	resp = postJSON(t, srv.URL+"/api/properties/prop-1/revenues", CreateRecurringRequest{
		UserID: "user-1", Label: "Rent", Amount: -100, Frequency: "monthly", StartDate: "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown property
	resp = postJSON(t, srv.URL+"/api/properties/nope/revenues", CreateRecurringRequest{
		UserID: "user-1", Label: "Rent", Amount: 100, Frequency: "monthly", StartDate: "2024-01-01",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// STATEMENT FLOW TESTS
// =============================================================================

func TestStatementFlow_PrepareCreateGet(t *testing.T) {
	// GIVEN: A property with records over HTTP
	// WHEN: Preparing, then creating, then fetching the statement
	// THEN: Computed figures flow through and the statement round-trips

	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	prepared := prepare(t, srv, 2024)
	assert.InDelta(t, 24000, prepared.Computed.GrossRents, 0.001)
	require.NotNil(t, prepared.Payload)
	assert.Equal(t, forms.FormT776, prepared.Payload.FormType)

	resp := postJSON(t, srv.URL+"/api/statements", CreateStatementRequest{
		UserID:     "user-1",
		FormType:   "T776",
		TaxYear:    2024,
		PropertyID: "prop-1",
		Payload:    *prepared.Payload,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created StatementDTO
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp, err := http.Get(fmt.Sprintf("%s/api/statements/%s?user_id=user-1", srv.URL, created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got StatementDTO
	decodeBody(t, resp, &got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 2024, got.TaxYear)
}

func TestCreateStatement_DuplicateIsConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	prepared := prepare(t, srv, 2024)
	req := CreateStatementRequest{
		UserID: "user-1", FormType: "T776", TaxYear: 2024,
		PropertyID: "prop-1", Payload: *prepared.Payload,
	}

	resp := postJSON(t, srv.URL+"/api/statements", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/statements", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestPrepare_UnknownFormIs400(t *testing.T) {
	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	resp := postJSON(t, srv.URL+"/api/statements/prepare", PrepareStatementRequest{
		UserID: "user-1", FormType: "X999", TaxYear: 2024, PropertyID: "prop-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPrepare_EmptyScopeIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/statements/prepare", PrepareStatementRequest{
		UserID: "user-without-properties", FormType: "T776", TaxYear: 2024,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPrepare_SeedsFromPriorYear(t *testing.T) {
	// GIVEN: A 2023 statement created over HTTP
	// WHEN: Preparing 2024
	// THEN: The response references the prior statement

	srv, _ := newTestServer(t)
	seedPropertyWithRent(t, srv)

	prepared := prepare(t, srv, 2023)
	resp := postJSON(t, srv.URL+"/api/statements", CreateStatementRequest{
		UserID: "user-1", FormType: "T776", TaxYear: 2023,
		PropertyID: "prop-1", Payload: *prepared.Payload,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	next := prepare(t, srv, 2024)
	assert.NotEmpty(t, next.PreviousID)
}

// =============================================================================
// FORM REGISTRY TESTS
// =============================================================================

func TestListForms_BuiltinsPresent(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/forms")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dtos []FormTypeDTO
	decodeBody(t, resp, &dtos)

	types := make(map[string]bool)
	for _, d := range dtos {
		types[d.Type] = true
	}
	assert.True(t, types["T776"])
	assert.True(t, types["TP128"])
}

func TestRegisterForm_CustomSchema(t *testing.T) {
	srv, _ := newTestServer(t)

	body := map[string]any{
		"type": "X100",
		"name": "Custom",
		"buckets": []map[string]any{
			{"key": "a", "label": "A", "matchers": []string{"a"}},
			{"key": "other", "label": "Other", "fallback": true},
		},
	}
	resp := postJSON(t, srv.URL+"/api/forms", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dto FormTypeDTO
	decodeBody(t, resp, &dto)
	assert.Equal(t, "X100", dto.Type)
	assert.Equal(t, 2, dto.Buckets)

	// Invalid schema: no fallback bucket
	resp = postJSON(t, srv.URL+"/api/forms", map[string]any{
		"type":    "X101",
		"buckets": []map[string]any{{"key": "a", "label": "A"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestLoadScenario_SeedsDemoData(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "single-duplex"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/properties?user_id=demo")
	require.NoError(t, err)
	var props []PropertyDTO
	decodeBody(t, resp, &props)
	require.Len(t, props, 1)

	// The seeded records support a full prepare round trip.
	resp = postJSON(t, srv.URL+"/api/statements/prepare", PrepareStatementRequest{
		UserID: "demo", FormType: "T776", TaxYear: 2024, PropertyID: "duplex-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var prepared PrepareStatementResponse
	decodeBody(t, resp, &prepared)
	assert.InDelta(t, 21600, prepared.Computed.GrossRents, 0.001)
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
