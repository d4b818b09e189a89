package repository

import (
	"fmt"
	"strings"

	"propsearch/internal/model"
)

type variantTable struct {
	name    string
	columns map[model.Field]string
	selects string
}

var tables = map[model.Variant]variantTable{
	model.VariantRental: {
		name: "rentals",
		columns: map[model.Field]string{
			model.FieldLocation:      "location",
			model.FieldNeighborhood:  "neighborhood",
			model.FieldLayout:        "layout",
			model.FieldDescription:   "description",
			model.FieldPropertyType:  "property_type",
			model.FieldConfiguration: "configuration",
			model.FieldPrice:         "monthly_rent",
		},
		selects: `id, owner_id, title, location, description, property_type, configuration,
			monthly_rent AS price, furnishing, amenities, is_active, layout, neighborhood,
			created_at, updated_at`,
	},
	model.VariantSale: {
		name: "sales",
		columns: map[model.Field]string{
			model.FieldLocation:      "location",
			model.FieldDescription:   "description",
			model.FieldPropertyType:  "property_type",
			model.FieldConfiguration: "configuration",
			model.FieldPrice:         "price",
			model.FieldAreaSqft:      "area_sqft",
			model.FieldBedrooms:      "bedrooms",
		},
		selects: `id, owner_id, title, location, description, property_type, configuration,
			price, furnishing, amenities, is_active, area_sqft, bedrooms,
			created_at, updated_at`,
	},
}

func tableFor(v model.Variant) (variantTable, error) {
	t, ok := tables[v]
	if !ok {
		return variantTable{}, fmt.Errorf("unknown listing variant %q", v)
	}
	return t, nil
}

// isNumeric reports whether f holds a number rather than free text
func isNumeric(f model.Field) bool {
	switch f {
	case model.FieldPrice, model.FieldAreaSqft, model.FieldBedrooms:
		return true
	}
	return false
}

// applies reports whether c can be evaluated against a listing of the variant
// described by columns. Conditions on absent fields never hold.
func applies(c model.Condition, columns map[model.Field]string) bool {
	if _, ok := columns[c.Field]; !ok {
		return false
	}
	switch c.Kind {
	case model.MatchContains, model.MatchPattern:
		return !isNumeric(c.Field)
	case model.MatchEquals, model.MatchRange:
		return isNumeric(c.Field)
	}
	return false
}

// buildWhere renders q as a parameterized WHERE clause. Placeholders start at
// $argIndex. is_active = true is always the first term.
func buildWhere(q model.ListingQuery, t variantTable, argIndex int) (string, []interface{}) {
	whereClauses := []string{"is_active = true"}
	args := []interface{}{}

	for _, clause := range q.Clauses {
		var orConditions []string
		for _, c := range clause {
			if !applies(c, t.columns) {
				continue
			}
			col := t.columns[c.Field]

			switch c.Kind {
			case model.MatchContains:
				orConditions = append(orConditions, fmt.Sprintf("%s ILIKE $%d", col, argIndex))
				args = append(args, "%"+escapeLike(c.Text)+"%")
				argIndex++
			case model.MatchPattern:
				orConditions = append(orConditions, fmt.Sprintf("%s ~* $%d", col, argIndex))
				args = append(args, postgresPattern(c.Pattern))
				argIndex++
			case model.MatchEquals:
				orConditions = append(orConditions, fmt.Sprintf("%s = $%d", col, argIndex))
				args = append(args, c.Value)
				argIndex++
			case model.MatchRange:
				orConditions = append(orConditions, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, argIndex, argIndex+1))
				args = append(args, c.Min, c.Max)
				argIndex += 2
			}
		}

		// An empty disjunction is false
		if len(orConditions) == 0 {
			whereClauses = append(whereClauses, "false")
			continue
		}
		whereClauses = append(whereClauses, "("+strings.Join(orConditions, " OR ")+")")
	}

	return strings.Join(whereClauses, " AND "), args
}

// escapeLike escapes the LIKE wildcards so the text matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// postgresPattern rewrites the \b word boundary into its PostgreSQL ARE form
func postgresPattern(p string) string {
	return strings.ReplaceAll(p, `\b`, `\y`)
}
