package model

// NormalizedQuery is the canonical form of a raw search string plus the
// structured hints extracted from it
type NormalizedQuery struct {
	Raw          string     `json:"raw"`
	Canonical    string     `json:"canonical"`
	SectorNumber *int       `json:"sector_number,omitempty"`
	BedroomCount *int       `json:"bedroom_count,omitempty"`
	Price        *PriceHint `json:"price,omitempty"`
}

// PriceHint is a price expression found in the query, already converted to an absolute value
type PriceHint struct {
	Value   float64 `json:"value"`
	Unit    string  `json:"unit,omitempty"`
	HasUnit bool    `json:"has_unit"`
}

// Field names a searchable listing attribute
type Field string

const (
	FieldLocation      Field = "location"
	FieldNeighborhood  Field = "neighborhood"
	FieldLayout        Field = "layout"
	FieldDescription   Field = "description"
	FieldPropertyType  Field = "property_type"
	FieldConfiguration Field = "configuration"
	FieldPrice         Field = "price"
	FieldAreaSqft      Field = "area_sqft"
	FieldBedrooms      Field = "bedrooms"
)

// MatchKind selects how a Condition is evaluated
type MatchKind int

const (
	// MatchContains is a case-insensitive substring match against Text
	MatchContains MatchKind = iota
	// MatchPattern is a case-insensitive regular expression match against Pattern.
	// Patterns use the syntax shared by RE2 and PostgreSQL AREs; \b marks a word boundary.
	MatchPattern
	// MatchEquals is numeric equality against Value
	MatchEquals
	// MatchRange is an inclusive numeric range [Min, Max]
	MatchRange
)

func (k MatchKind) String() string {
	switch k {
	case MatchContains:
		return "contains"
	case MatchPattern:
		return "pattern"
	case MatchEquals:
		return "equals"
	case MatchRange:
		return "range"
	default:
		return "unknown"
	}
}

// Condition is a single field-level predicate
type Condition struct {
	Field   Field     `json:"field"`
	Kind    MatchKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Value   float64   `json:"value,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
}

// Clause is a disjunction: it holds when any of its conditions holds
type Clause []Condition

// ListingQuery is the condition set for one listing variant. Every clause must
// hold. Stores always conjoin is_active = true on top of the clauses.
type ListingQuery struct {
	Variant Variant  `json:"variant"`
	Clauses []Clause `json:"clauses"`
	Strict  bool     `json:"strict"`
	Limit   int      `json:"limit,omitempty"`
}

// SearchRequest represents a search query request
type SearchRequest struct {
	Query   string `json:"query" form:"query"`
	Type    string `json:"type,omitempty" form:"type"`
	Sort    string `json:"sort,omitempty" form:"sort"`
	Explain bool   `json:"explain,omitempty" form:"explain"`
}

// DimensionScore is one scored preference dimension
type DimensionScore struct {
	Dimension string  `json:"dimension"`
	Weight    float64 `json:"weight"`
	Score     float64 `json:"score"`
}

// MatchResult is a listing annotated with how well it fits the caller's preferences
type MatchResult struct {
	Listing
	MatchPercentage int              `json:"match_percentage"`
	Breakdown       []DimensionScore `json:"breakdown,omitempty"`
}

// SearchResult is the engine output. Exactly one of Listings or Matches is
// populated, depending on Scored.
type SearchResult struct {
	Query    *NormalizedQuery `json:"query"`
	Mode     string           `json:"mode"` // strict or fuzzy
	Scored   bool             `json:"scored"`
	Total    int              `json:"total"`
	Listings []Listing        `json:"listings,omitempty"`
	Matches  []MatchResult    `json:"matches,omitempty"`
	Took     int64            `json:"took_ms"`
}

// HistoryResponse lists a user's recent searches
type HistoryResponse struct {
	Entries []SearchHistoryEntry `json:"entries"`
}
