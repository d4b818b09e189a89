package model

import "time"

// PreferenceProfile is a user's saved search preferences, keyed by email.
// A nil slot (or empty Amenities) means the dimension is not scored.
type PreferenceProfile struct {
	Email        string    `json:"email" db:"email"`
	Location     *string   `json:"location,omitempty" db:"location"`
	Budget       *string   `json:"budget,omitempty" db:"budget"`
	Size         *string   `json:"size,omitempty" db:"size"`
	PropertyType *string   `json:"property_type,omitempty" db:"property_type"`
	Furnishing   *string   `json:"furnishing,omitempty" db:"furnishing"`
	Amenities    JSONArray `json:"amenities,omitempty" db:"amenities"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is the caller as verified by the upstream auth layer
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// SearchHistoryEntry records one search made by an identified user
type SearchHistoryEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Query     string    `json:"query" db:"query"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
