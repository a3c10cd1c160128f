/*
Package factory provides JSON to Go form-definition conversion.

PURPOSE:
  Converts JSON form-schema documents into forms.Definition objects. This
  enables jurisdiction variants without code changes - a deployment can
  define a new line-item schema in JSON and register it alongside the
  built-in T776/TP-128 definitions.

JSON SCHEMA:
  {
    "type": "T2042-RENTAL",
    "name": "Custom rental schedule",
    "jurisdiction": "federal",
    "buckets": [
      {"key": "insurance", "label": "Insurance", "line_number": "8690",
       "matchers": ["insurance", "assurance"]},
      {"key": "other", "label": "Other expenses", "line_number": "9270",
       "fallback": true}
    ],
    "metadata": [
      {"key": "propertyAddress", "label": "Property address", "seed": "address"},
      {"key": "fiscalPeriod", "label": "Fiscal period", "seed": ""}
    ]
  }

METADATA SEEDS:
  The "seed" field names how a metadata value is derived on first creation:
    "address"   - the property's address
    "ownership" - the property's ownership percentage ([0,100] convention)
    "tax_year"  - the target tax year
    anything else is used verbatim as a literal initial value

VALIDATION:
  Definition.Validate() enforces the exactly-one-fallback invariant; a
  violating document is rejected with InvalidInput before registration.

SEE ALSO:
  - forms/types.go: Definition and Registry
  - forms/schema.go: The built-in definitions this mirrors
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/warp/taxform-engine/engine"
	"github.com/warp/taxform-engine/forms"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type FormJSON struct {
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	Jurisdiction string         `json:"jurisdiction,omitempty"`
	Buckets      []BucketJSON   `json:"buckets"`
	Metadata     []MetadataJSON `json:"metadata,omitempty"`
}

type BucketJSON struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	LineNumber string   `json:"line_number,omitempty"`
	Matchers   []string `json:"matchers,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
}

type MetadataJSON struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Seed  string `json:"seed,omitempty"`
}

// =============================================================================
// FORM FACTORY
// =============================================================================

type FormFactory struct{}

func NewFormFactory() *FormFactory {
	return &FormFactory{}
}

// ParseDefinition parses a JSON document into a validated forms.Definition.
func (f *FormFactory) ParseDefinition(jsonStr string) (*forms.Definition, error) {
	var fj FormJSON
	if err := json.Unmarshal([]byte(jsonStr), &fj); err != nil {
		return nil, fmt.Errorf("failed to parse form JSON: %w", err)
	}
	return f.FromJSON(fj)
}

// FromJSON converts FormJSON to a validated forms.Definition.
func (f *FormFactory) FromJSON(fj FormJSON) (*forms.Definition, error) {
	if fj.Type == "" {
		return nil, &engine.InputError{Field: "type", Reason: "form type is required"}
	}

	def := &forms.Definition{
		Type:         forms.FormType(fj.Type),
		Name:         fj.Name,
		Jurisdiction: fj.Jurisdiction,
	}

	for _, bj := range fj.Buckets {
		def.Buckets = append(def.Buckets, forms.Bucket{
			Key:        bj.Key,
			Label:      bj.Label,
			LineNumber: bj.LineNumber,
			Matchers:   bj.Matchers,
			Fallback:   bj.Fallback,
		})
	}

	for _, mj := range fj.Metadata {
		def.Metadata = append(def.Metadata, forms.MetadataSeed{
			Key:   mj.Key,
			Label: mj.Label,
			Seed:  seedFunc(mj.Seed),
		})
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func seedFunc(seed string) func(engine.Property, int) string {
	switch seed {
	case "address":
		return func(p engine.Property, _ int) string { return p.Address }
	case "ownership":
		return func(p engine.Property, _ int) string {
			if p.OwnershipPct.IsZero() {
				return "100"
			}
			return p.OwnershipPct.String()
		}
	case "tax_year":
		return func(_ engine.Property, year int) string { return strconv.Itoa(year) }
	default:
		literal := seed
		return func(engine.Property, int) string { return literal }
	}
}

// ToJSON converts a forms.Definition back to its JSON document form.
// Metadata seed provenance is not recoverable from a closure, so exported
// metadata carries empty seeds.
func (f *FormFactory) ToJSON(def *forms.Definition) FormJSON {
	fj := FormJSON{
		Type:         string(def.Type),
		Name:         def.Name,
		Jurisdiction: def.Jurisdiction,
	}
	for _, b := range def.Buckets {
		fj.Buckets = append(fj.Buckets, BucketJSON{
			Key:        b.Key,
			Label:      b.Label,
			LineNumber: b.LineNumber,
			Matchers:   b.Matchers,
			Fallback:   b.Fallback,
		})
	}
	for _, m := range def.Metadata {
		fj.Metadata = append(fj.Metadata, MetadataJSON{Key: m.Key, Label: m.Label})
	}
	return fj
}
