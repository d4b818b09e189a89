package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"propsearch/internal/analytics"
	"propsearch/internal/apperr"
	"propsearch/internal/logger"
	"propsearch/internal/metrics"
	"propsearch/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ListingStore reads listings
type ListingStore interface {
	// FindActive returns the active listings of q.Variant satisfying every clause of q
	FindActive(ctx context.Context, q model.ListingQuery) ([]model.Listing, error)
	// GetListing returns a single active listing, or nil
	GetListing(ctx context.Context, variant model.Variant, id int64) (*model.Listing, error)
}

// ProfileStore reads preference profiles. GetProfile returns nil, nil when
// the user has none.
type ProfileStore interface {
	GetProfile(ctx context.Context, email string) (*model.PreferenceProfile, error)
}

// EventSink receives analytics events. Track must not block.
type EventSink interface {
	Track(event any)
}

// SearchParams is one engine search
type SearchParams struct {
	Query       string
	Type        string // rent, sale or empty for both
	Identity    *model.Identity
	SortByMatch bool
	Explain     bool
}

// SearchDeps are the collaborators of a SearchService. History, Events and
// Metrics are optional.
type SearchDeps struct {
	Listings ListingStore
	Profiles ProfileStore
	History  *HistoryRecorder
	Events   EventSink
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Timeout  time.Duration
}

// SearchService handles search business logic
type SearchService struct {
	normalizer *Normalizer
	builder    *QueryBuilder
	scorer     *Scorer
	listings   ListingStore
	profiles   ProfileStore
	history    *HistoryRecorder
	events     EventSink
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	timeout    time.Duration
}

// NewSearchService creates a new search service
func NewSearchService(normalizer *Normalizer, builder *QueryBuilder, scorer *Scorer, deps SearchDeps) *SearchService {
	return &SearchService{
		normalizer: normalizer,
		builder:    builder,
		scorer:     scorer,
		listings:   deps.Listings,
		profiles:   deps.Profiles,
		history:    deps.History,
		events:     deps.Events,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		timeout:    deps.Timeout,
	}
}

// Search normalizes the query, fetches the matching active listings of the
// requested types and, when the caller has a preference profile, scores them.
// Rentals come before sales unless SortByMatch asks for match order.
func (s *SearchService) Search(ctx context.Context, p SearchParams) (*model.SearchResult, error) {
	startTime := time.Now()
	listingType := strings.ToLower(strings.TrimSpace(p.Type))
	if listingType == "" {
		listingType = "all"
	}

	variants, err := ParseListingType(p.Type)
	if err != nil {
		s.metrics.ObserveSearch(listingType, "", "invalid", false, 0, 0)
		return nil, err
	}
	nq, err := s.normalizer.Normalize(p.Query)
	if err != nil {
		s.metrics.ObserveSearch(listingType, "", "invalid", false, 0, 0)
		return nil, err
	}
	mode := Mode(nq)

	if s.history != nil && p.Identity != nil {
		s.history.RecordAsync(ctx, p.Identity.UserID, p.Query)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	queries := s.builder.Build(nq, variants)
	batches := make([][]model.Listing, len(queries))
	var profile *model.PreferenceProfile

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			listings, err := s.listings.FindActive(gctx, q)
			if err != nil {
				return apperr.Upstream(err, "listing store unavailable")
			}
			batches[i] = listings
			return nil
		})
	}
	if p.Identity != nil && p.Identity.Email != "" && s.profiles != nil {
		g.Go(func() error {
			pr, err := s.profiles.GetProfile(gctx, p.Identity.Email)
			if err != nil {
				return apperr.Upstream(err, "preference store unavailable")
			}
			profile = pr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log := logger.FromContext(ctx, s.logger)
		log.Error().Err(err).
			Str("query", nq.Canonical).Str("mode", mode).Msg("search failed")
		s.metrics.ObserveSearch(listingType, mode, "error", false, 0, time.Since(startTime))
		return nil, err
	}

	result := &model.SearchResult{
		Query:  nq,
		Mode:   mode,
		Scored: profile != nil,
	}
	listings := mergeActive(batches)
	if profile != nil {
		result.Matches = s.annotate(listings, profile, p.Explain)
		if p.SortByMatch {
			SortByMatch(result.Matches)
		}
		result.Total = len(result.Matches)
	} else {
		result.Listings = listings
		result.Total = len(listings)
	}

	took := time.Since(startTime)
	result.Took = took.Milliseconds()
	s.metrics.ObserveSearch(listingType, mode, "ok", result.Scored, result.Total, took)
	s.track(ctx, listingType, result)

	log := logger.FromContext(ctx, s.logger)
	log.Debug().
		Str("query", nq.Canonical).
		Str("mode", mode).
		Int("total", result.Total).
		Bool("scored", result.Scored).
		Dur("took", took).
		Msg("search completed")

	return result, nil
}

// mergeActive concatenates the per-variant batches in request order and
// drops anything inactive
func mergeActive(batches [][]model.Listing) []model.Listing {
	merged := []model.Listing{}
	for _, batch := range batches {
		for _, l := range batch {
			if l.IsActive {
				merged = append(merged, l)
			}
		}
	}
	return merged
}

func (s *SearchService) annotate(listings []model.Listing, profile *model.PreferenceProfile, explain bool) []model.MatchResult {
	matches := make([]model.MatchResult, 0, len(listings))
	for i := range listings {
		pct, breakdown := s.scorer.Explain(&listings[i], profile)
		m := model.MatchResult{
			Listing:         listings[i],
			MatchPercentage: pct,
		}
		if explain {
			m.Breakdown = breakdown
		}
		matches = append(matches, m)
	}
	return matches
}

// SortByMatch orders matches by match percentage, highest first. Ties keep
// their original order.
func SortByMatch(matches []model.MatchResult) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchPercentage > matches[j].MatchPercentage
	})
}

func (s *SearchService) track(ctx context.Context, listingType string, result *model.SearchResult) {
	if s.events == nil {
		return
	}
	eventType := analytics.EventSearch
	if result.Total == 0 {
		eventType = analytics.EventZeroResult
	}
	s.events.Track(analytics.SearchEvent{
		Type:        eventType,
		RequestID:   logger.RequestID(ctx),
		Query:       result.Query.Canonical,
		Mode:        result.Mode,
		ListingType: listingType,
		Total:       result.Total,
		Scored:      result.Scored,
		LatencyMs:   result.Took,
		Timestamp:   time.Now().UTC(),
	})
}

// GetListing retrieves a single active listing
func (s *SearchService) GetListing(ctx context.Context, variant string, id int64) (*model.Listing, error) {
	v, err := model.ParseVariant(strings.ToLower(variant))
	if err != nil {
		return nil, apperr.InvalidInput("variant must be one of rental, sale")
	}
	listing, err := s.listings.GetListing(ctx, v, id)
	if err != nil {
		return nil, apperr.Upstream(err, "listing store unavailable")
	}
	if listing == nil {
		return nil, apperr.NotFound("listing %s/%d not found", v, id)
	}
	return listing, nil
}

// RecentHistory lists the caller's latest searches
func (s *SearchService) RecentHistory(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	if s.history == nil {
		return []model.SearchHistoryEntry{}, nil
	}
	entries, err := s.history.Recent(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Upstream(err, "history store unavailable")
	}
	return entries, nil
}
