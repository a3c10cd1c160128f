/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements statement.RecordSource and statement.Store using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  properties:            Property records with ownership
  recurring_amounts:     Revenue/expense rows (frequency + date range)
  invoices:              One-off dated expenses with tax components
  mortgages:             Loan terms feeding the amortization schedule
  depreciation_settings: Per-property CCA inputs (at most one per property)
  statements:            Persisted statement aggregates; payload and
                         computed snapshots stored as JSON columns

WRITE DISCIPLINE:
  idx_unique_statement_scope enforces at most one statement per
  (user_id, form_type, property_id, tax_year). Together with the per-key
  mutex in statement.Service, concurrent creates cannot overwrite each
  other's carry-forward edits.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers do not
  block, single writer at a time, better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - statement/store.go: Interface definitions
  - statement/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
	"github.com/warp/taxform-engine/statement"
)

// Store implements statement.RecordSource and statement.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		address TEXT NOT NULL,
		ownership_pct TEXT NOT NULL DEFAULT '100',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_properties_owner ON properties(owner_id);

	-- Revenue and expense rows share a table, discriminated by kind
	CREATE TABLE IF NOT EXISTS recurring_amounts (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		kind TEXT NOT NULL CHECK (kind IN ('revenue', 'expense')),
		label TEXT NOT NULL,
		amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_recurring_property ON recurring_amounts(property_id, kind);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		invoice_date TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		tax1 TEXT NOT NULL DEFAULT '0',
		tax2 TEXT NOT NULL DEFAULT '0',
		category TEXT NOT NULL,
		description TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_invoices_property_date ON invoices(property_id, invoice_date);

	CREATE TABLE IF NOT EXISTS mortgages (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		lender TEXT,
		principal TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		amortization_months INTEGER NOT NULL,
		term_months INTEGER NOT NULL,
		payment_frequency INTEGER NOT NULL DEFAULT 12,
		start_date TEXT NOT NULL,
		payment_amount TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_mortgages_property ON mortgages(property_id);

	CREATE TABLE IF NOT EXISTS depreciation_settings (
		property_id TEXT PRIMARY KEY REFERENCES properties(id),
		class_code TEXT NOT NULL,
		rate_percent TEXT NOT NULL,
		opening_ucc TEXT NOT NULL DEFAULT '0',
		additions TEXT NOT NULL DEFAULT '0',
		dispositions TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS statements (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		form_type TEXT NOT NULL,
		tax_year INTEGER NOT NULL,
		property_id TEXT NOT NULL DEFAULT '',
		payload_json TEXT NOT NULL,
		computed_json TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- One statement per scope; backs the read-then-write discipline
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_statement_scope
		ON statements(user_id, form_type, property_id, tax_year);
	CREATE INDEX IF NOT EXISTS idx_statements_user ON statements(user_id, tax_year);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROPERTY & RECORD WRITES
// =============================================================================

func (s *Store) SaveProperty(ctx context.Context, prop engine.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, address, ownership_pct, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET address = excluded.address, ownership_pct = excluded.ownership_pct`,
		string(prop.ID), string(prop.OwnerID), prop.Address, prop.OwnershipPct.String(),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) SaveRecurringAmount(ctx context.Context, propertyID engine.PropertyID, kind string, ra engine.RecurringAmount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endDate *string
	if ra.EndDate != nil {
		v := ra.EndDate.String()
		endDate = &v
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_amounts (id, property_id, kind, label, amount, frequency, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET label = excluded.label, amount = excluded.amount,
			frequency = excluded.frequency, start_date = excluded.start_date, end_date = excluded.end_date`,
		string(ra.ID), string(propertyID), kind, ra.Label, ra.Amount.Value.String(),
		string(ra.Frequency), ra.StartDate.String(), endDate)
	return err
}

func (s *Store) SaveInvoice(ctx context.Context, propertyID engine.PropertyID, inv engine.InvoiceExpense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, property_id, invoice_date, base_amount, tax1, tax2, category, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET invoice_date = excluded.invoice_date,
			base_amount = excluded.base_amount, tax1 = excluded.tax1, tax2 = excluded.tax2,
			category = excluded.category, description = excluded.description`,
		string(inv.ID), string(propertyID), inv.Date.String(), inv.BaseAmount.Value.String(),
		inv.Tax1.Value.String(), inv.Tax2.Value.String(), inv.Category, inv.Description)
	return err
}

func (s *Store) SaveMortgage(ctx context.Context, propertyID engine.PropertyID, m engine.Mortgage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payment *string
	if m.PaymentAmount != nil {
		v := m.PaymentAmount.Value.String()
		payment = &v
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mortgages (id, property_id, lender, principal, annual_rate,
			amortization_months, term_months, payment_frequency, start_date, payment_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET lender = excluded.lender, principal = excluded.principal,
			annual_rate = excluded.annual_rate, amortization_months = excluded.amortization_months,
			term_months = excluded.term_months, payment_frequency = excluded.payment_frequency,
			start_date = excluded.start_date, payment_amount = excluded.payment_amount`,
		string(m.ID), string(propertyID), m.Lender, m.Principal.Value.String(), m.AnnualRate.String(),
		m.AmortizationMonths, m.TermMonths, m.PaymentFrequency, m.StartDate.String(), payment)
	return err
}

func (s *Store) SaveDepreciationSetting(ctx context.Context, propertyID engine.PropertyID, d engine.DepreciationSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO depreciation_settings (property_id, class_code, rate_percent, opening_ucc, additions, dispositions)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(property_id) DO UPDATE SET class_code = excluded.class_code,
			rate_percent = excluded.rate_percent, opening_ucc = excluded.opening_ucc,
			additions = excluded.additions, dispositions = excluded.dispositions`,
		string(propertyID), d.ClassCode, d.RatePercent.String(), d.OpeningUCC.Value.String(),
		d.Additions.Value.String(), d.Dispositions.Value.String())
	return err
}

// =============================================================================
// RECORD SOURCE - statement.RecordSource
// =============================================================================

func (s *Store) Properties(ctx context.Context, owner engine.UserID) ([]engine.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, address, ownership_pct FROM properties
		WHERE owner_id = ? ORDER BY id`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *prop)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadRecords(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) Property(ctx context.Context, owner engine.UserID, id engine.PropertyID) (*engine.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, address, ownership_pct FROM properties
		WHERE id = ? AND owner_id = ?`, string(id), string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	prop, err := scanProperty(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadRecords(ctx, prop); err != nil {
		return nil, err
	}
	return prop, nil
}

func scanProperty(rows *sql.Rows) (*engine.Property, error) {
	var id, ownerID, address, pct string
	if err := rows.Scan(&id, &ownerID, &address, &pct); err != nil {
		return nil, err
	}
	pctDec, err := decimal.NewFromString(pct)
	if err != nil {
		return nil, fmt.Errorf("property %s: bad ownership_pct %q: %w", id, pct, err)
	}
	return &engine.Property{
		ID:           engine.PropertyID(id),
		OwnerID:      engine.UserID(ownerID),
		Address:      address,
		OwnershipPct: pctDec,
	}, nil
}

// loadRecords attaches all financial records to a property.
func (s *Store) loadRecords(ctx context.Context, prop *engine.Property) error {
	recurring, err := s.db.QueryContext(ctx, `
		SELECT id, kind, label, amount, frequency, start_date, end_date
		FROM recurring_amounts WHERE property_id = ? ORDER BY id`, string(prop.ID))
	if err != nil {
		return err
	}
	defer recurring.Close()

	for recurring.Next() {
		var id, kind, label, amount, frequency, startDate string
		var endDate *string
		if err := recurring.Scan(&id, &kind, &label, &amount, &frequency, &startDate, &endDate); err != nil {
			return err
		}
		ra := engine.RecurringAmount{
			ID:        engine.RecordID(id),
			Label:     label,
			Amount:    engine.MustParseMoney(amount),
			Frequency: engine.Frequency(frequency),
		}
		if ra.StartDate, err = engine.ParseDate(startDate); err != nil {
			return fmt.Errorf("recurring amount %s: %w", id, err)
		}
		if endDate != nil && *endDate != "" {
			end, perr := engine.ParseDate(*endDate)
			if perr != nil {
				return fmt.Errorf("recurring amount %s: %w", id, perr)
			}
			ra.EndDate = &end
		}
		if kind == "revenue" {
			prop.Revenues = append(prop.Revenues, ra)
		} else {
			prop.Expenses = append(prop.Expenses, ra)
		}
	}
	if err := recurring.Err(); err != nil {
		return err
	}

	invoices, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_date, base_amount, tax1, tax2, category, COALESCE(description, '')
		FROM invoices WHERE property_id = ? ORDER BY invoice_date, id`, string(prop.ID))
	if err != nil {
		return err
	}
	defer invoices.Close()

	for invoices.Next() {
		var id, date, base, tax1, tax2, category, description string
		if err := invoices.Scan(&id, &date, &base, &tax1, &tax2, &category, &description); err != nil {
			return err
		}
		inv := engine.InvoiceExpense{
			ID:          engine.RecordID(id),
			BaseAmount:  engine.MustParseMoney(base),
			Tax1:        engine.MustParseMoney(tax1),
			Tax2:        engine.MustParseMoney(tax2),
			Category:    category,
			Description: description,
		}
		if inv.Date, err = engine.ParseDate(date); err != nil {
			return fmt.Errorf("invoice %s: %w", id, err)
		}
		prop.Invoices = append(prop.Invoices, inv)
	}
	if err := invoices.Err(); err != nil {
		return err
	}

	mortgages, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(lender, ''), principal, annual_rate, amortization_months,
			term_months, payment_frequency, start_date, payment_amount
		FROM mortgages WHERE property_id = ? ORDER BY id`, string(prop.ID))
	if err != nil {
		return err
	}
	defer mortgages.Close()

	for mortgages.Next() {
		var id, lender, principal, rate, startDate string
		var amortMonths, termMonths, payFreq int
		var payment *string
		if err := mortgages.Scan(&id, &lender, &principal, &rate, &amortMonths, &termMonths, &payFreq, &startDate, &payment); err != nil {
			return err
		}
		rateDec, perr := decimal.NewFromString(rate)
		if perr != nil {
			return fmt.Errorf("mortgage %s: bad annual_rate %q: %w", id, rate, perr)
		}
		m := engine.Mortgage{
			ID:                 engine.RecordID(id),
			Lender:             lender,
			Principal:          engine.MustParseMoney(principal),
			AnnualRate:         rateDec,
			AmortizationMonths: amortMonths,
			TermMonths:         termMonths,
			PaymentFrequency:   payFreq,
		}
		if m.StartDate, err = engine.ParseDate(startDate); err != nil {
			return fmt.Errorf("mortgage %s: %w", id, err)
		}
		if payment != nil && *payment != "" {
			p := engine.MustParseMoney(*payment)
			m.PaymentAmount = &p
		}
		prop.Mortgages = append(prop.Mortgages, m)
	}
	if err := mortgages.Err(); err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT class_code, rate_percent, opening_ucc, additions, dispositions
		FROM depreciation_settings WHERE property_id = ?`, string(prop.ID))
	var classCode, ratePct, opening, additions, dispositions string
	switch err := row.Scan(&classCode, &ratePct, &opening, &additions, &dispositions); {
	case err == nil:
		rateDec, perr := decimal.NewFromString(ratePct)
		if perr != nil {
			return fmt.Errorf("depreciation for %s: bad rate_percent %q: %w", prop.ID, ratePct, perr)
		}
		prop.Depreciation = &engine.DepreciationSetting{
			ClassCode:    classCode,
			RatePercent:  rateDec,
			OpeningUCC:   engine.MustParseMoney(opening),
			Additions:    engine.MustParseMoney(additions),
			Dispositions: engine.MustParseMoney(dispositions),
		}
	case errors.Is(err, sql.ErrNoRows):
		// no depreciation tracked for this property
	default:
		return err
	}

	return nil
}

// =============================================================================
// STATEMENT STORE - statement.Store
// =============================================================================

func (s *Store) SaveStatement(ctx context.Context, st statement.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloadJSON, err := json.Marshal(st.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	computedJSON, err := json.Marshal(st.Computed)
	if err != nil {
		return fmt.Errorf("marshal computed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO statements (id, user_id, form_type, tax_year, property_id, payload_json, computed_json, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, string(st.UserID), string(st.FormType), st.TaxYear, string(st.PropertyID),
		string(payloadJSON), string(computedJSON), st.Notes, st.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return engine.ErrDuplicateStatement
		}
		return err
	}
	return nil
}

func (s *Store) GetStatement(ctx context.Context, owner engine.UserID, id string) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, form_type, tax_year, property_id, payload_json, computed_json, COALESCE(notes, ''), created_at
		FROM statements WHERE id = ? AND user_id = ?`, id, string(owner))
	return scanStatement(row)
}

func (s *Store) ListStatements(ctx context.Context, owner engine.UserID) ([]statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, form_type, tax_year, property_id, payload_json, computed_json, COALESCE(notes, ''), created_at
		FROM statements WHERE user_id = ? ORDER BY tax_year DESC, created_at DESC`, string(owner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []statement.Statement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) LatestUpTo(ctx context.Context, owner engine.UserID, ft forms.FormType, propertyID engine.PropertyID, maxYear int) (*statement.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, form_type, tax_year, property_id, payload_json, computed_json, COALESCE(notes, ''), created_at
		FROM statements
		WHERE user_id = ? AND form_type = ? AND property_id = ? AND tax_year <= ?
		ORDER BY tax_year DESC LIMIT 1`,
		string(owner), string(ft), string(propertyID), maxYear)
	return scanStatement(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner) (*statement.Statement, error) {
	var st statement.Statement
	var userID, formType, propertyID, payloadJSON, computedJSON, createdAt string

	err := row.Scan(&st.ID, &userID, &formType, &st.TaxYear, &propertyID,
		&payloadJSON, &computedJSON, &st.Notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st.UserID = engine.UserID(userID)
	st.FormType = forms.FormType(formType)
	st.PropertyID = engine.PropertyID(propertyID)

	if err := json.Unmarshal([]byte(payloadJSON), &st.Payload); err != nil {
		return nil, fmt.Errorf("statement %s: unmarshal payload: %w", st.ID, err)
	}
	if err := json.Unmarshal([]byte(computedJSON), &st.Computed); err != nil {
		return nil, fmt.Errorf("statement %s: unmarshal computed: %w", st.ID, err)
	}
	if t, terr := time.Parse(time.RFC3339, createdAt); terr == nil {
		st.CreatedAt = t
	}
	return &st, nil
}
