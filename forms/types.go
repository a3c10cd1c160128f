/*
Package forms maps computed snapshots onto jurisdiction-specific tax form
schemas and reconciles freshly composed templates with previously persisted
user edits.

PURPOSE:
  A form Definition owns a fixed, ordered list of named expense buckets
  (keyword-matched against a line's category or label, with a guaranteed
  fallback bucket) plus the metadata fields the form requires. The composer
  (compose.go) produces the "proposed" payload; the reconciler
  (reconcile.go) merges it with the previous payload so manual edits
  survive regeneration.

KEY CONCEPTS IN THIS FILE (types.go):
  - FormType: One of the supported jurisdiction schemas (T776, TP-128)
  - Definition/Bucket: The line-item schema with matchers
  - FormPayload: The user-facing, persisted document
  - Registry: FormType to Definition lookup

CONFIGURATION INVARIANT:
  Exactly one bucket per definition is flagged as fallback. This is checked
  when a definition is registered (see factory package for JSON-defined
  forms), not at composition time.

SEE ALSO:
  - schema.go: The built-in T776 and TP-128 definitions
  - compose.go: ComputedData to FormPayload mapping
  - reconcile.go: Carry-forward merge
*/
package forms

import (
	"fmt"
	"sync"

	"github.com/warp/taxform-engine/engine"
)

// =============================================================================
// FORM TYPE - Jurisdiction-specific schema identifier
// =============================================================================

type FormType string

const (
	// FormT776 is the federal-style rental income statement.
	FormT776 FormType = "T776"
	// FormTP128 is the provincial-style rental income statement.
	FormTP128 FormType = "TP128"
)

// =============================================================================
// DEFINITION - Ordered bucket schema + metadata seeds
// =============================================================================

// Bucket is one named expense line on a form. Matchers are lowercase
// substrings tested against an expense line's category and label; the first
// bucket that matches wins. A bucket with no matchers only receives lines
// through the fallback flag.
type Bucket struct {
	Key        string
	Label      string
	LineNumber string
	Matchers   []string
	Fallback   bool
}

// MetadataSeed declares a metadata field and how its initial value is
// derived from the property record and target year.
type MetadataSeed struct {
	Key   string
	Label string
	Seed  func(prop engine.Property, taxYear int) string
}

// Definition is the complete schema for one form type.
type Definition struct {
	Type         FormType
	Name         string
	Jurisdiction string
	Buckets      []Bucket
	Metadata     []MetadataSeed
}

// Validate enforces the configuration invariant: exactly one fallback bucket,
// no duplicate keys.
func (d *Definition) Validate() error {
	if len(d.Buckets) == 0 {
		return &engine.InputError{Field: "buckets", Reason: "form definition has no buckets"}
	}
	seen := make(map[string]bool)
	fallbacks := 0
	for _, b := range d.Buckets {
		if seen[b.Key] {
			return &engine.InputError{Field: "buckets", Reason: fmt.Sprintf("duplicate bucket key %q", b.Key)}
		}
		seen[b.Key] = true
		if b.Fallback {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		return &engine.InputError{Field: "buckets", Reason: fmt.Sprintf("definition must have exactly one fallback bucket, got %d", fallbacks)}
	}
	return nil
}

// =============================================================================
// FORM PAYLOAD - User-facing, persisted document
// =============================================================================

type MetadataField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// PayloadExpense is one bucketed expense line. Keys are bucket keys, stable
// across regenerations; presence of a key in a previous payload is what
// drives the carry-forward merge.
type PayloadExpense struct {
	Key        string       `json:"key"`
	Label      string       `json:"label"`
	LineNumber string       `json:"lineNumber,omitempty"`
	Amount     engine.Money `json:"amount"`
}

type PayloadIncome struct {
	GrossRents  engine.Money `json:"grossRents"`
	OtherIncome engine.Money `json:"otherIncome"`
	TotalIncome engine.Money `json:"totalIncome"`
}

type IncomeLabels struct {
	GrossRents  string `json:"grossRents"`
	OtherIncome string `json:"otherIncome"`
	TotalIncome string `json:"totalIncome"`
}

type PayloadTotals struct {
	TotalExpenses engine.Money `json:"totalExpenses"`
	NetIncome     engine.Money `json:"netIncome"`
}

// FormPayload is the persisted, user-editable form document. Ownership
// percentages inside metadata follow the [0,100] convention and are never
// renormalized.
type FormPayload struct {
	FormType     FormType         `json:"formType"`
	TaxYear      int              `json:"taxYear"`
	Metadata     []MetadataField  `json:"metadata"`
	Income       PayloadIncome    `json:"income"`
	IncomeLabels IncomeLabels     `json:"incomeLabels"`
	Expenses     []PayloadExpense `json:"expenses"`
	CCA          []engine.CCALine `json:"cca,omitempty"`
	Totals       PayloadTotals    `json:"totals"`
}

func (p *FormPayload) metadataValue(key string) (string, bool) {
	for _, f := range p.Metadata {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func (p *FormPayload) expenseAmount(key string) (engine.Money, bool) {
	for _, e := range p.Expenses {
		if e.Key == key {
			return e.Amount, true
		}
	}
	return engine.ZeroMoney(), false
}

func (p *FormPayload) ccaLine(key string) (engine.CCALine, bool) {
	for _, c := range p.CCA {
		if c.Key == key {
			return c, true
		}
	}
	return engine.CCALine{}, false
}

// =============================================================================
// REGISTRY - FormType lookup
// =============================================================================

// Registry holds the known form definitions. The built-in T776 and TP-128
// schemas are always present; factory-built definitions can be added at
// runtime.
type Registry struct {
	mu   sync.RWMutex
	defs map[FormType]*Definition
}

func NewRegistry() *Registry {
	r := &Registry{defs: make(map[FormType]*Definition)}
	r.defs[FormT776] = DefinitionT776()
	r.defs[FormTP128] = DefinitionTP128()
	return r
}

// Register adds or replaces a definition after validating it.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Type] = def
	return nil
}

// Lookup returns the definition for a form type. An unknown type is an
// InvalidInput failure: the engine never composes against a missing schema.
func (r *Registry) Lookup(ft FormType) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[ft]
	if !ok {
		return nil, &engine.InputError{Field: "formType", Reason: fmt.Sprintf("no configuration for form type %q", ft)}
	}
	return def, nil
}

// Types returns the registered form types.
func (r *Registry) Types() []FormType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FormType, 0, len(r.defs))
	for ft := range r.defs {
		out = append(out, ft)
	}
	return out
}
