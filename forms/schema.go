/*
schema.go - Built-in form definitions (T776 federal, TP-128 provincial)

PURPOSE:
  The two supported jurisdiction schemas as ordered bucket tables. Matchers
  cover both English and French category wording because invoice categories
  and expense labels come from user input in either language.

  These are internal approximations of the real forms, not certified
  tax-authority schemas.

BUCKET ORDER MATTERS:
  A computed expense line lands in the FIRST bucket whose matchers hit.
  "Other" is the fallback and must stay last.
*/
package forms

import (
	"strconv"

	"github.com/warp/taxform-engine/engine"
)

// =============================================================================
// SHARED METADATA SEEDS
// =============================================================================

func metadataSeeds() []MetadataSeed {
	return []MetadataSeed{
		{
			Key:   "propertyAddress",
			Label: "Property address",
			Seed:  func(p engine.Property, _ int) string { return p.Address },
		},
		{
			Key:   "ownershipPercent",
			Label: "Ownership percentage",
			Seed: func(p engine.Property, _ int) string {
				if p.OwnershipPct.IsZero() {
					return "100"
				}
				return p.OwnershipPct.String()
			},
		},
		{
			Key:   "taxYear",
			Label: "Tax year",
			Seed:  func(_ engine.Property, year int) string { return strconv.Itoa(year) },
		},
		{
			Key:   "coOwners",
			Label: "Co-owners",
			Seed:  func(_ engine.Property, _ int) string { return "" },
		},
	}
}

// =============================================================================
// T776 - Federal-style statement of real estate rentals
// =============================================================================

func DefinitionT776() *Definition {
	return &Definition{
		Type:         FormT776,
		Name:         "Statement of Real Estate Rentals",
		Jurisdiction: "federal",
		Metadata:     metadataSeeds(),
		Buckets: []Bucket{
			{Key: "advertising", Label: "Advertising", LineNumber: "8521",
				Matchers: []string{"advert", "publicit"}},
			{Key: "insurance", Label: "Insurance", LineNumber: "8690",
				Matchers: []string{"insurance", "assurance"}},
			{Key: "interest", Label: "Interest and bank charges", LineNumber: "8710",
				Matchers: []string{"interest", "mortgage", "hypoth", "bank charge"}},
			{Key: "office", Label: "Office expenses", LineNumber: "8810",
				Matchers: []string{"office", "bureau"}},
			{Key: "professional", Label: "Professional fees", LineNumber: "8860",
				Matchers: []string{"legal", "accounting", "professional", "notaire", "comptab", "avocat"}},
			{Key: "management", Label: "Management and administration fees", LineNumber: "8871",
				Matchers: []string{"management", "admin", "gestion", "condo fee", "frais de condo"}},
			{Key: "repairs", Label: "Repairs and maintenance", LineNumber: "8960",
				Matchers: []string{"repair", "maintenance", "entretien", "reparation", "réparation", "renovation", "rénovation", "plumb", "plomb", "paint", "peintur"}},
			{Key: "salaries", Label: "Salaries, wages, and benefits", LineNumber: "9060",
				Matchers: []string{"salar", "wage", "conciergerie", "janitor"}},
			{Key: "propertyTaxes", Label: "Property taxes", LineNumber: "9180",
				Matchers: []string{"property tax", "municipal", "school tax", "taxe", "taxes fonc"}},
			{Key: "travel", Label: "Travel", LineNumber: "9200",
				Matchers: []string{"travel", "deplacement", "déplacement"}},
			{Key: "utilities", Label: "Utilities", LineNumber: "9220",
				Matchers: []string{"utilit", "electric", "électric", "hydro", "gas", "gaz", "heating", "chauffage", "water", "eau", "internet"}},
			{Key: "motorVehicle", Label: "Motor vehicle expenses", LineNumber: "9281",
				Matchers: []string{"vehicle", "car ", "auto", "essence", "fuel"}},
			{Key: "cca", Label: "Capital cost allowance", LineNumber: "9936",
				Matchers: []string{"capital cost", "cca", "amortissement fiscal"}},
			{Key: "other", Label: "Other expenses", LineNumber: "9270", Fallback: true},
		},
	}
}

// =============================================================================
// TP-128 - Provincial-style income and expenses relating to rental property
// =============================================================================

func DefinitionTP128() *Definition {
	return &Definition{
		Type:         FormTP128,
		Name:         "Income and Expenses Respecting the Rental of Immovable Property",
		Jurisdiction: "provincial",
		Metadata:     metadataSeeds(),
		Buckets: []Bucket{
			{Key: "advertising", Label: "Publicité", LineNumber: "210",
				Matchers: []string{"advert", "publicit"}},
			{Key: "insurance", Label: "Assurances", LineNumber: "212",
				Matchers: []string{"insurance", "assurance"}},
			{Key: "interest", Label: "Intérêts", LineNumber: "216",
				Matchers: []string{"interest", "mortgage", "hypoth", "bank charge"}},
			{Key: "repairs", Label: "Entretien et réparations", LineNumber: "224",
				Matchers: []string{"repair", "maintenance", "entretien", "reparation", "réparation", "renovation", "rénovation", "plumb", "plomb", "paint", "peintur"}},
			{Key: "management", Label: "Frais de gestion et d'administration", LineNumber: "228",
				Matchers: []string{"management", "admin", "gestion", "condo fee", "frais de condo"}},
			{Key: "professional", Label: "Honoraires professionnels", LineNumber: "230",
				Matchers: []string{"legal", "accounting", "professional", "notaire", "comptab", "avocat"}},
			{Key: "salaries", Label: "Salaires et avantages", LineNumber: "234",
				Matchers: []string{"salar", "wage", "conciergerie", "janitor"}},
			{Key: "propertyTaxes", Label: "Taxes foncières", LineNumber: "236",
				Matchers: []string{"property tax", "municipal", "school tax", "taxe", "taxes fonc"}},
			{Key: "travel", Label: "Frais de déplacement", LineNumber: "238",
				Matchers: []string{"travel", "deplacement", "déplacement", "vehicle", "auto", "essence"}},
			{Key: "utilities", Label: "Électricité et chauffage", LineNumber: "240",
				Matchers: []string{"utilit", "electric", "électric", "hydro", "gas", "gaz", "heating", "chauffage", "water", "eau", "internet"}},
			{Key: "cca", Label: "Déduction pour amortissement", LineNumber: "270",
				Matchers: []string{"capital cost", "cca", "amortissement fiscal"}},
			{Key: "other", Label: "Autres dépenses", LineNumber: "250", Fallback: true},
		},
	}
}
