package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"propsearch/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresRepository handles database operations for listings, preference
// profiles and search history
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection pool
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindActive returns the active listings of q.Variant satisfying every clause of q
func (r *PostgresRepository) FindActive(ctx context.Context, q model.ListingQuery) ([]model.Listing, error) {
	t, err := tableFor(q.Variant)
	if err != nil {
		return nil, err
	}

	whereClause, args := buildWhere(q, t, 1)
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY id`, t.selects, t.name, whereClause)
	if q.Limit > 0 {
		selectQuery += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, q.Limit)
	}

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, selectQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch %s listings: %w", q.Variant, err)
	}
	for i := range listings {
		listings[i].Variant = q.Variant
	}
	return listings, nil
}

// GetListing retrieves a single active listing. It returns nil when the
// listing does not exist or is inactive.
func (r *PostgresRepository) GetListing(ctx context.Context, variant model.Variant, id int64) (*model.Listing, error) {
	t, err := tableFor(variant)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND is_active = true`, t.selects, t.name)

	var listing model.Listing
	err = r.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	listing.Variant = variant
	return &listing, nil
}

// GetProfile retrieves the preference profile stored for email, or nil
func (r *PostgresRepository) GetProfile(ctx context.Context, email string) (*model.PreferenceProfile, error) {
	query := `
		SELECT email, location, budget, size, property_type, furnishing, amenities, updated_at
		FROM preferences
		WHERE email = $1
	`
	var profile model.PreferenceProfile
	err := r.db.GetContext(ctx, &profile, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &profile, nil
}

// LastQuery returns the most recently stored query of userID
func (r *PostgresRepository) LastQuery(ctx context.Context, userID string) (string, bool, error) {
	var query string
	err := r.db.GetContext(ctx, &query,
		`SELECT query FROM search_history WHERE user_id = $1 ORDER BY seq DESC LIMIT 1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get last query: %w", err)
	}
	return query, true, nil
}

// Append stores a history entry, filling in its ID and timestamp when unset
func (r *PostgresRepository) Append(ctx context.Context, entry *model.SearchHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO search_history (id, user_id, query, created_at)
		VALUES (:id, :user_id, :query, :created_at)
	`, entry)
	if err != nil {
		return fmt.Errorf("failed to append search history: %w", err)
	}
	return nil
}

// Recent returns up to limit history entries of userID, newest first
func (r *PostgresRepository) Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	entries := []model.SearchHistoryEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, query, created_at
		FROM search_history
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	return entries, nil
}
