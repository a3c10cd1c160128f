/*
store.go - Persistence interfaces for rental tax statements

PURPOSE:
  Defines the boundary between the engine and its collaborators. The engine
  never talks to a database directly: a RecordSource supplies fully resolved
  input records per property, and a Store persists statement aggregates.
  SQLite and in-memory implementations exist; the contracts are technology
  agnostic.

SEEDING CONTRACT:
  LatestUpTo must return the most recent statement for the same
  (formType, propertyID) with taxYear <= the given year. A same-year
  statement carries the user's pending edits; failing that, the immediately
  preceding year's statement seeds the carry-forward.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - statement/store/memory.go: In-memory for testing/dev
*/
package statement

import (
	"context"
	"strconv"
	"time"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
)

// =============================================================================
// STATEMENT - The persisted aggregate
// =============================================================================

// Statement is the durable record: the user-editable payload plus the
// independently recomputed snapshot. Prepare never writes one; only an
// explicit Create does.
type Statement struct {
	ID         string
	UserID     engine.UserID
	FormType   forms.FormType
	TaxYear    int
	PropertyID engine.PropertyID // empty means "all properties for this user"
	Payload    forms.FormPayload
	Computed   engine.ComputedData
	Notes      string
	CreatedAt  time.Time
}

// Key identifies the write-serialization scope for a statement.
func (s Statement) Key() string {
	return StatementKey(s.UserID, s.FormType, s.PropertyID, s.TaxYear)
}

// StatementKey builds the (userId, formType, propertyId, taxYear) key.
func StatementKey(userID engine.UserID, ft forms.FormType, propertyID engine.PropertyID, taxYear int) string {
	return string(userID) + "|" + string(ft) + "|" + string(propertyID) + "|" + strconv.Itoa(taxYear)
}

// =============================================================================
// RECORD SOURCE - Input provider (persistence layer)
// =============================================================================

// RecordSource supplies, per property, the full set of revenue/expense
// rows, invoices, mortgages and the optional depreciation setting, all
// scoped to an owner.
type RecordSource interface {
	// Properties returns all properties owned by the user, records attached.
	Properties(ctx context.Context, owner engine.UserID) ([]engine.Property, error)

	// Property returns one property, or nil when it does not exist or does
	// not belong to the owner.
	Property(ctx context.Context, owner engine.UserID, id engine.PropertyID) (*engine.Property, error)
}

// =============================================================================
// STORE - Statement persistence
// =============================================================================

type Store interface {
	// SaveStatement persists a statement. Returns ErrDuplicateStatement when
	// one already exists for the same (user, formType, propertyID, taxYear).
	SaveStatement(ctx context.Context, st Statement) error

	// GetStatement returns a statement by ID, nil when absent.
	GetStatement(ctx context.Context, owner engine.UserID, id string) (*Statement, error)

	// ListStatements returns all statements for an owner, newest tax year first.
	ListStatements(ctx context.Context, owner engine.UserID) ([]Statement, error)

	// LatestUpTo returns the most recent statement for the same scope with
	// taxYear <= maxYear, nil when none exists.
	LatestUpTo(ctx context.Context, owner engine.UserID, ft forms.FormType, propertyID engine.PropertyID, maxYear int) (*Statement, error)
}
