/*
service.go - Prepare/Create orchestration for rental tax statements

PURPOSE:
  The caller-facing operations of the engine:

    Prepare: resolve scope -> aggregate -> compose -> reconcile against the
             most recent prior statement. Read-only; never persists.
    Create:  persist exactly the payload the caller supplies (after a human
             possibly edited the prepared template), while recomputing the
             ComputedData snapshot independently from source records for
             auditability. Create does NOT re-merge the payload.

CONCURRENCY:
  Every computation is pure; the only discipline needed is serializing the
  read-then-write round trip per (userId, formType, propertyId, taxYear)
  key so two concurrent creates cannot overwrite each other's carry-forward
  edits. A per-key mutex here, plus the unique constraint in the SQLite
  store, covers it.

SEE ALSO:
  - store.go: RecordSource and Store contracts
  - forms/reconcile.go: The merge policy Prepare applies
*/
package statement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Records  RecordSource
	Store    Store
	Registry *forms.Registry

	locks keyedMutex
}

func NewService(records RecordSource, store Store, registry *forms.Registry) *Service {
	return &Service{Records: records, Store: store, Registry: registry}
}

// PrepareResult is the read-only preview returned to the caller.
type PrepareResult struct {
	Computed *engine.ComputedData
	Payload  *forms.FormPayload
	Previous *Statement
	Warnings []string
}

// Prepare computes the statement preview for a scope. It never writes.
func (s *Service) Prepare(ctx context.Context, userID engine.UserID, ft forms.FormType, taxYear int, propertyID engine.PropertyID) (*PrepareResult, error) {
	def, err := s.Registry.Lookup(ft)
	if err != nil {
		return nil, err
	}

	properties, err := s.resolveScope(ctx, userID, propertyID)
	if err != nil {
		return nil, err
	}

	computed, err := engine.Aggregate(properties, taxYear)
	if err != nil {
		return nil, err
	}

	// Metadata seeds come from the first property of the scope; for a
	// single-property request that is the property itself.
	proposed := forms.Compose(def, computed, properties[0], taxYear)

	previous, err := s.Store.LatestUpTo(ctx, userID, ft, propertyID, taxYear)
	if err != nil {
		return nil, err
	}

	var prevPayload *forms.FormPayload
	if previous != nil {
		prevPayload = &previous.Payload
	}
	merged := forms.Reconcile(proposed, prevPayload)

	return &PrepareResult{
		Computed: computed,
		Payload:  merged.Payload,
		Previous: previous,
		Warnings: merged.Warnings,
	}, nil
}

// CreateInput carries the caller-approved payload for persistence.
type CreateInput struct {
	UserID     engine.UserID
	FormType   forms.FormType
	TaxYear    int
	PropertyID engine.PropertyID
	Payload    forms.FormPayload
	Notes      string
}

// Create durably creates a statement. The supplied payload is trusted as-is;
// the computed snapshot is rebuilt from source records so the two can be
// audited against each other later.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Statement, error) {
	if _, err := s.Registry.Lookup(in.FormType); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(StatementKey(in.UserID, in.FormType, in.PropertyID, in.TaxYear))
	defer unlock()

	properties, err := s.resolveScope(ctx, in.UserID, in.PropertyID)
	if err != nil {
		return nil, err
	}

	computed, err := engine.Aggregate(properties, in.TaxYear)
	if err != nil {
		return nil, err
	}

	st := Statement{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		FormType:   in.FormType,
		TaxYear:    in.TaxYear,
		PropertyID: in.PropertyID,
		Payload:    in.Payload,
		Computed:   *computed,
		Notes:      in.Notes,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Store.SaveStatement(ctx, st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Service) resolveScope(ctx context.Context, userID engine.UserID, propertyID engine.PropertyID) ([]engine.Property, error) {
	if propertyID != "" {
		prop, err := s.Records.Property(ctx, userID, propertyID)
		if err != nil {
			return nil, err
		}
		if prop == nil {
			return nil, &engine.ScopeError{OwnerID: userID, PropertyID: propertyID}
		}
		return []engine.Property{*prop}, nil
	}

	properties, err := s.Records.Properties(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, &engine.ScopeError{OwnerID: userID}
	}
	return properties, nil
}

// =============================================================================
// KEYED MUTEX - Per-statement-key write serialization
// =============================================================================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.locks == nil {
		km.locks = make(map[string]*sync.Mutex)
	}
	l, ok := km.locks[key]
	if !ok {
		l = &sync.Mutex{}
		km.locks[key] = l
	}
	km.mu.Unlock()

	l.Lock()
	return l.Unlock
}
