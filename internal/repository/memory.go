package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"propsearch/internal/model"

	"github.com/google/uuid"
)

// Seed is the document loaded into a MemoryStore
type Seed struct {
	Rentals  []model.Listing           `json:"rentals"`
	Sales    []model.Listing           `json:"sales"`
	Profiles []model.PreferenceProfile `json:"profiles"`
}

// MemoryStore keeps listings, profiles and search history in process memory.
// It evaluates listing queries with the same semantics as PostgresRepository.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[model.Variant][]model.Listing
	profiles map[string]model.PreferenceProfile
	history  map[string][]model.SearchHistoryEntry
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[model.Variant][]model.Listing),
		profiles: make(map[string]model.PreferenceProfile),
		history:  make(map[string][]model.SearchHistoryEntry),
	}
}

// LoadSeedFile creates a store populated from a JSON seed file
func LoadSeedFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	s := NewMemoryStore()
	s.AddListings(model.VariantRental, seed.Rentals...)
	s.AddListings(model.VariantSale, seed.Sales...)
	for _, p := range seed.Profiles {
		s.PutProfile(p)
	}
	return s, nil
}

// AddListings appends listings of the given variant
func (s *MemoryStore) AddListings(variant model.Variant, listings ...model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range listings {
		l.Variant = variant
		s.listings[variant] = append(s.listings[variant], l)
	}
}

// PutProfile stores or replaces the profile for p.Email
func (s *MemoryStore) PutProfile(p model.PreferenceProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[strings.ToLower(p.Email)] = p
}

// FindActive returns the active listings of q.Variant satisfying every clause of q
func (s *MemoryStore) FindActive(ctx context.Context, q model.ListingQuery) ([]model.Listing, error) {
	t, err := tableFor(q.Variant)
	if err != nil {
		return nil, err
	}
	m, err := compileQuery(q, t)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Listing
	for i := range s.listings[q.Variant] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l := s.listings[q.Variant][i]
		if !l.IsActive || !m.matches(&l) {
			continue
		}
		out = append(out, l)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// GetListing returns the active listing with id, or nil
func (s *MemoryStore) GetListing(ctx context.Context, variant model.Variant, id int64) (*model.Listing, error) {
	if _, err := tableFor(variant); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listings[variant] {
		if l.ID == id && l.IsActive {
			return &l, nil
		}
	}
	return nil, nil
}

// GetProfile returns the profile stored for email, or nil
func (s *MemoryStore) GetProfile(ctx context.Context, email string) (*model.PreferenceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// LastQuery returns the most recently stored query of userID
func (s *MemoryStore) LastQuery(ctx context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[userID]
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[len(entries)-1].Query, true, nil
}

// Append stores a history entry, filling in its ID and timestamp when unset
func (s *MemoryStore) Append(ctx context.Context, entry *model.SearchHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.UserID] = append(s.history[entry.UserID], *entry)
	return nil
}

// Recent returns up to limit history entries of userID, newest first
func (s *MemoryStore) Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	if limit <= 0 {
		return []model.SearchHistoryEntry{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[userID]
	out := make([]model.SearchHistoryEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

type compiledCondition struct {
	model.Condition
	re *regexp.Regexp
}

type matcher [][]compiledCondition

func compileQuery(q model.ListingQuery, t variantTable) (matcher, error) {
	m := make(matcher, 0, len(q.Clauses))
	for _, clause := range q.Clauses {
		compiled := make([]compiledCondition, 0, len(clause))
		for _, c := range clause {
			if !applies(c, t.columns) {
				continue
			}
			cc := compiledCondition{Condition: c}
			if c.Kind == model.MatchPattern {
				re, err := regexp.Compile("(?i)" + c.Pattern)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern %q: %w", c.Pattern, err)
				}
				cc.re = re
			}
			compiled = append(compiled, cc)
		}
		m = append(m, compiled)
	}
	return m, nil
}

func (m matcher) matches(l *model.Listing) bool {
	for _, clause := range m {
		ok := false
		for _, c := range clause {
			if c.holds(l) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (c compiledCondition) holds(l *model.Listing) bool {
	switch c.Kind {
	case model.MatchContains:
		v := textField(l, c.Field)
		return v != nil && strings.Contains(strings.ToLower(*v), strings.ToLower(c.Text))
	case model.MatchPattern:
		v := textField(l, c.Field)
		return v != nil && c.re.MatchString(*v)
	case model.MatchEquals:
		v, ok := numberField(l, c.Field)
		return ok && v == c.Value
	case model.MatchRange:
		v, ok := numberField(l, c.Field)
		return ok && v >= c.Min && v <= c.Max
	}
	return false
}

func textField(l *model.Listing, f model.Field) *string {
	switch f {
	case model.FieldLocation:
		return l.Location
	case model.FieldNeighborhood:
		return l.Neighborhood
	case model.FieldLayout:
		return l.Layout
	case model.FieldDescription:
		return l.Description
	case model.FieldPropertyType:
		return l.PropertyType
	case model.FieldConfiguration:
		return l.Configuration
	}
	return nil
}

func numberField(l *model.Listing, f model.Field) (float64, bool) {
	switch f {
	case model.FieldPrice:
		if l.Price != nil {
			return *l.Price, true
		}
	case model.FieldAreaSqft:
		if l.AreaSqft != nil {
			return *l.AreaSqft, true
		}
	case model.FieldBedrooms:
		if l.Bedrooms != nil {
			return float64(*l.Bedrooms), true
		}
	}
	return 0, false
}
