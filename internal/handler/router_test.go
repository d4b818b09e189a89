package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"propsearch/internal/metrics"
	"propsearch/internal/model"
	"propsearch/internal/repository"
	"propsearch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ptr[T any](v T) *T { return &v }

type testServer struct {
	router   *gin.Engine
	recorder *service.HistoryRecorder
}

func newTestServer(t *testing.T, checks map[string]HealthCheck) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	store.AddListings(model.VariantRental,
		model.Listing{ID: 1, Location: ptr("Sector 14, Gurgaon"), Configuration: ptr("2 BHK"), Price: ptr(42000.0), IsActive: true},
		model.Listing{ID: 2, Location: ptr("Sector 140, Noida"), Configuration: ptr("2 BHK"), Price: ptr(30000.0), IsActive: true},
		model.Listing{ID: 3, Location: ptr("Sector 14, Gurgaon"), Configuration: ptr("2 BHK"), Price: ptr(40000.0), IsActive: false},
	)
	store.AddListings(model.VariantSale,
		model.Listing{ID: 10, Location: ptr("Sector 14, Gurgaon"), Configuration: ptr("2 BHK"), Price: ptr(9_000_000.0), Bedrooms: ptr(2), IsActive: true},
	)
	store.PutProfile(model.PreferenceProfile{
		Email:    "asha@example.com",
		Location: ptr("Sector 14"),
		Budget:   ptr("42000"),
		Size:     ptr("2 BHK"),
	})

	log := zerolog.Nop()
	m := metrics.New(prometheus.NewRegistry())
	rules := service.DefaultRules()
	recorder := service.NewHistoryRecorder(store, time.Second, log, m)
	svc := service.NewSearchService(
		service.MustNewNormalizer(rules),
		service.NewQueryBuilder(service.DefaultPriceTolerance, 0),
		service.NewScorer(rules.Weights, service.DefaultFuzzyThreshold),
		service.SearchDeps{
			Listings: store,
			Profiles: store,
			History:  recorder,
			Metrics:  m,
			Logger:   log,
		},
	)

	return &testServer{
		router: NewRouter(RouterConfig{
			SearchService: svc,
			HistoryLimit:  20,
			Metrics:       m,
			Logger:        log,
			Build:         BuildInfo{Version: "1.2.3", BuildTime: "now", GitCommit: "abc"},
			HealthChecks:  checks,
		}),
		recorder: recorder,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSearch_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name    string
		url     string
		status  int
		message string
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest, "query is required"},
		{"blank query", "/api/v1/search?query=%20%20", http.StatusBadRequest, "query is required"},
		{"unknown type", "/api/v1/search?query=villa&type=lease", http.StatusBadRequest, "type must be one of rent, sale"},
		{"unknown sort", "/api/v1/search?query=villa&sort=price", http.StatusBadRequest, "sort must be match or omitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.status, w.Code)
			body := decode[map[string]string](t, w)
			assert.Equal(t, tt.message, body["error"])
		})
	}

	t.Run("empty json query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"type":"rent"}`))
		req.Header.Set("Content-Type", "application/json")
		w := srv.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "query is required", decode[map[string]string](t, w)["error"])
	})
}

func TestSearch_Anonymous(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/v1/search?query=2+bhk+sector+14&type=rent", nil))
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[model.SearchResult](t, w)
	assert.Equal(t, service.ModeStrict, result.Mode)
	assert.False(t, result.Scored)
	require.Len(t, result.Listings, 1)
	assert.Equal(t, int64(1), result.Listings[0].ID)
	assert.Empty(t, result.Matches)
}

func TestSearch_ScoredPost(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{"query":"sec 14 2bhk","sort":"match","explain":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserEmail, "Asha@example.com")

	w := srv.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[model.SearchResult](t, w)
	assert.True(t, result.Scored)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, int64(1), result.Matches[0].ID, "the rental fits the 42000 budget")
	assert.Equal(t, 91, result.Matches[0].MatchPercentage)
	assert.NotEmpty(t, result.Matches[0].Breakdown)
	assert.GreaterOrEqual(t, result.Matches[0].MatchPercentage, result.Matches[1].MatchPercentage)
}

func TestGetListing(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"found", "/api/v1/listings/rental/1", http.StatusOK},
		{"inactive", "/api/v1/listings/rental/3", http.StatusNotFound},
		{"wrong variant", "/api/v1/listings/sale/1", http.StatusNotFound},
		{"unknown variant", "/api/v1/listings/lease/1", http.StatusBadRequest},
		{"bad id", "/api/v1/listings/rental/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHistory(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, q := range []string{"villa", "villa", "sector 14"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?query="+strings.ReplaceAll(q, " ", "+"), nil)
		req.Header.Set(HeaderUserID, "u-1")
		require.Equal(t, http.StatusOK, srv.do(req).Code)
		srv.recorder.Wait()
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=10", nil)
	req.Header.Set(HeaderUserID, "u-1")
	w = srv.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[model.HistoryResponse](t, w)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "sector 14", resp.Entries[0].Query)
	assert.Equal(t, "villa", resp.Entries[1].Query)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=-1", nil)
	req.Header.Set(HeaderUserID, "u-1")
	assert.Equal(t, http.StatusBadRequest, srv.do(req).Code)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	w := srv.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w = srv.do(req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	w := srv.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = srv.do(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.2.3", decode[map[string]string](t, w)["version"])

	degraded := newTestServer(t, map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	w = degraded.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	srv.do(httptest.NewRequest(http.MethodGet, "/api/v1/search?query=villa", nil))

	w := srv.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `propsearch_http_requests_total{method="GET",route="/api/v1/search",status="200"} 1`)
}
