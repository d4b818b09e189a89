package service

import (
	"fmt"
	"strings"

	"propsearch/internal/apperr"
	"propsearch/internal/model"
)

// DefaultPriceTolerance is the half-width of the price band built from a price
// found in the query. It widens recall rather than filtering precisely.
const DefaultPriceTolerance = 0.20

// Search modes reported in results and metrics
const (
	ModeFuzzy  = "fuzzy"
	ModeStrict = "strict"
)

var textFields = map[model.Variant][]model.Field{
	model.VariantRental: {
		model.FieldLocation,
		model.FieldNeighborhood,
		model.FieldLayout,
		model.FieldDescription,
		model.FieldPropertyType,
		model.FieldConfiguration,
	},
	model.VariantSale: {
		model.FieldLocation,
		model.FieldDescription,
		model.FieldPropertyType,
		model.FieldConfiguration,
	},
}

// ParseListingType maps the requested type to the variants to query.
// An empty type means both, rentals first.
func ParseListingType(t string) ([]model.Variant, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "all":
		return []model.Variant{model.VariantRental, model.VariantSale}, nil
	case "rent", "rental":
		return []model.Variant{model.VariantRental}, nil
	case "sale", "buy":
		return []model.Variant{model.VariantSale}, nil
	}
	return nil, apperr.InvalidInput("type must be one of rent, sale")
}

// QueryBuilder turns a normalized query into per-variant condition sets
type QueryBuilder struct {
	priceTolerance float64
	limit          int
}

// NewQueryBuilder creates a builder. limit caps the rows fetched per variant
// (0 means no cap).
func NewQueryBuilder(priceTolerance float64, limit int) *QueryBuilder {
	if priceTolerance <= 0 || priceTolerance >= 1 {
		priceTolerance = DefaultPriceTolerance
	}
	return &QueryBuilder{
		priceTolerance: priceTolerance,
		limit:          limit,
	}
}

// Build returns one ListingQuery per requested variant, in the given order
func (b *QueryBuilder) Build(nq *model.NormalizedQuery, variants []model.Variant) []model.ListingQuery {
	queries := make([]model.ListingQuery, 0, len(variants))
	for _, v := range variants {
		var q model.ListingQuery
		if nq.SectorNumber != nil {
			q = b.strictSector(nq, v)
		} else {
			q = b.fuzzy(nq, v)
		}
		q.Limit = b.limit
		queries = append(queries, q)
	}
	return queries
}

// Mode reports which policy Build applies to nq
func Mode(nq *model.NormalizedQuery) string {
	if nq.SectorNumber != nil {
		return ModeStrict
	}
	return ModeFuzzy
}

// fuzzy ORs a substring match on every text field with the numeric hints:
// a listing matches when any one of them holds.
func (b *QueryBuilder) fuzzy(nq *model.NormalizedQuery, v model.Variant) model.ListingQuery {
	var clause model.Clause
	for _, f := range textFields[v] {
		clause = append(clause, model.Condition{
			Field: f,
			Kind:  model.MatchContains,
			Text:  nq.Canonical,
		})
	}
	if nq.BedroomCount != nil {
		clause = append(clause, bedroomConditions(*nq.BedroomCount, v)...)
	}
	if nq.Price != nil {
		clause = append(clause, b.priceConditions(nq.Price, v)...)
	}

	return model.ListingQuery{
		Variant: v,
		Clauses: []model.Clause{clause},
	}
}

// strictSector replaces all free-text matching with a single anchored
// location condition. Bedroom hints, and price hints that carried an explicit
// unit, narrow the result further.
func (b *QueryBuilder) strictSector(nq *model.NormalizedQuery, v model.Variant) model.ListingQuery {
	clauses := []model.Clause{{SectorCondition(*nq.SectorNumber)}}

	if nq.BedroomCount != nil {
		clauses = append(clauses, bedroomConditions(*nq.BedroomCount, v))
	}
	if nq.Price != nil && nq.Price.HasUnit {
		clauses = append(clauses, b.priceConditions(nq.Price, v))
	}

	return model.ListingQuery{
		Variant: v,
		Clauses: clauses,
		Strict:  true,
	}
}

// SectorCondition matches a location naming exactly sector n: "Sector 9",
// "sector-9" and "Sec 9" match n=9, "Sector 19" and "Sector 90" do not.
func SectorCondition(n int) model.Condition {
	return model.Condition{
		Field:   model.FieldLocation,
		Kind:    model.MatchPattern,
		Pattern: fmt.Sprintf(`\b(?:sector|sec)\s*-?\s*%d\b`, n),
	}
}

func bedroomConditions(n int, v model.Variant) model.Clause {
	var clause model.Clause
	if v == model.VariantSale {
		clause = append(clause, model.Condition{
			Field: model.FieldBedrooms,
			Kind:  model.MatchEquals,
			Value: float64(n),
		})
	}
	return append(clause, model.Condition{
		Field:   model.FieldConfiguration,
		Kind:    model.MatchPattern,
		Pattern: fmt.Sprintf(`\b%d\s*-?\s*bhk`, n),
	})
}

func (b *QueryBuilder) priceConditions(p *model.PriceHint, v model.Variant) model.Clause {
	lo := p.Value * (1 - b.priceTolerance)
	hi := p.Value * (1 + b.priceTolerance)

	clause := model.Clause{{
		Field: model.FieldPrice,
		Kind:  model.MatchRange,
		Min:   lo,
		Max:   hi,
	}}
	// A bare number on a sale search may just as well be an area
	if v == model.VariantSale && !p.HasUnit {
		clause = append(clause, model.Condition{
			Field: model.FieldAreaSqft,
			Kind:  model.MatchRange,
			Min:   lo,
			Max:   hi,
		})
	}
	return clause
}
