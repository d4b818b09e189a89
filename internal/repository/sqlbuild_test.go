package repository

import (
	"testing"

	"propsearch/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name    string
		variant model.Variant
		query   model.ListingQuery
		want    string
		args    []interface{}
	}{
		{
			name:    "no clauses keeps only active listings",
			variant: model.VariantSale,
			query:   model.ListingQuery{},
			want:    "is_active = true",
			args:    []interface{}{},
		},
		{
			name:    "fuzzy text with price band on rentals",
			variant: model.VariantRental,
			query: model.ListingQuery{Clauses: []model.Clause{{
				{Field: model.FieldLocation, Kind: model.MatchContains, Text: "mg road"},
				{Field: model.FieldNeighborhood, Kind: model.MatchContains, Text: "mg road"},
				{Field: model.FieldPrice, Kind: model.MatchRange, Min: 40, Max: 60},
			}}},
			want: "is_active = true AND (location ILIKE $1 OR neighborhood ILIKE $2 OR monthly_rent BETWEEN $3 AND $4)",
			args: []interface{}{"%mg road%", "%mg road%", 40.0, 60.0},
		},
		{
			name:    "rental only fields are dropped on sales",
			variant: model.VariantSale,
			query: model.ListingQuery{Clauses: []model.Clause{{
				{Field: model.FieldLayout, Kind: model.MatchContains, Text: "villa"},
				{Field: model.FieldBedrooms, Kind: model.MatchEquals, Value: 3},
			}}},
			want: "is_active = true AND (bedrooms = $1)",
			args: []interface{}{3.0},
		},
		{
			name:    "strict sector clauses are conjoined",
			variant: model.VariantRental,
			query: model.ListingQuery{Strict: true, Clauses: []model.Clause{
				{{Field: model.FieldLocation, Kind: model.MatchPattern, Pattern: `\b(?:sector|sec)\s*-?\s*9\b`}},
				{{Field: model.FieldConfiguration, Kind: model.MatchPattern, Pattern: `\b2\s*-?\s*bhk`}},
			}},
			want: "is_active = true AND (location ~* $1) AND (configuration ~* $2)",
			args: []interface{}{`\y(?:sector|sec)\s*-?\s*9\y`, `\y2\s*-?\s*bhk`},
		},
		{
			name:    "clause with nothing applicable never matches",
			variant: model.VariantRental,
			query: model.ListingQuery{Clauses: []model.Clause{{
				{Field: model.FieldAreaSqft, Kind: model.MatchRange, Min: 1, Max: 2},
			}}},
			want: "is_active = true AND false",
			args: []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := tableFor(tt.variant)
			assert.NoError(t, err)

			where, args := buildWhere(tt.query, table, 1)
			assert.Equal(t, tt.want, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_new\_ a\\b`, escapeLike(`100% _new_ a\b`))
}

func TestTableFor_Unknown(t *testing.T) {
	_, err := tableFor(model.Variant("lease"))
	assert.Error(t, err)
}
