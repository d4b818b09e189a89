package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Variant distinguishes rental listings from sale listings
type Variant string

const (
	VariantRental Variant = "rental"
	VariantSale   Variant = "sale"
)

// Listing represents a rental or sale property listing.
// Layout and Neighborhood are only populated for rentals, AreaSqft and Bedrooms only for sales.
type Listing struct {
	ID            int64     `json:"id" db:"id"`
	Variant       Variant   `json:"variant" db:"-"`
	OwnerID       *int64    `json:"owner_id,omitempty" db:"owner_id"`
	Title         *string   `json:"title,omitempty" db:"title"`
	Location      *string   `json:"location,omitempty" db:"location"`
	Description   *string   `json:"description,omitempty" db:"description"`
	PropertyType  *string   `json:"property_type,omitempty" db:"property_type"`
	Configuration *string   `json:"configuration,omitempty" db:"configuration"` // e.g. "3 BHK"
	Price         *float64  `json:"price,omitempty" db:"price"`                 // monthly rent for rentals
	Furnishing    *string   `json:"furnishing,omitempty" db:"furnishing"`
	Amenities     JSONArray `json:"amenities,omitempty" db:"amenities"`
	IsActive      bool      `json:"is_active" db:"is_active"`

	// Rental-only
	Layout       *string `json:"layout,omitempty" db:"layout"`
	Neighborhood *string `json:"neighborhood,omitempty" db:"neighborhood"`

	// Sale-only
	AreaSqft *float64 `json:"area_sqft,omitempty" db:"area_sqft"`
	Bedrooms *int     `json:"bedrooms,omitempty" db:"bedrooms"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ParseVariant converts a stored or requested variant name into a Variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantRental, VariantSale:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown listing variant %q", s)
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return fmt.Errorf("cannot scan %T into JSONArray", value)
}
