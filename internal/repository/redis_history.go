package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"propsearch/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisHistoryConfig configures a RedisHistory
type RedisHistoryConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	KeyPrefix  string
	MaxEntries int64
}

// RedisHistory keeps each user's search history as a capped Redis list,
// newest entry at the head
type RedisHistory struct {
	rdb        *redis.Client
	prefix     string
	maxEntries int64
}

// NewRedisHistory creates a Redis-backed history store and verifies the
// connection with a PING
func NewRedisHistory(cfg RedisHistoryConfig) (*RedisHistory, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisHistoryFromClient(rdb, cfg.KeyPrefix, cfg.MaxEntries), nil
}

// NewRedisHistoryFromClient wraps an existing client. maxEntries <= 0 keeps
// 100 entries per user.
func NewRedisHistoryFromClient(rdb *redis.Client, prefix string, maxEntries int64) *RedisHistory {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &RedisHistory{rdb: rdb, prefix: prefix, maxEntries: maxEntries}
}

func (h *RedisHistory) key(userID string) string {
	return h.prefix + "history:" + userID
}

// LastQuery returns the most recently stored query of userID
func (h *RedisHistory) LastQuery(ctx context.Context, userID string) (string, bool, error) {
	raw, err := h.rdb.LIndex(ctx, h.key(userID), 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get last query: %w", err)
	}
	var entry model.SearchHistoryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", false, fmt.Errorf("failed to decode history entry: %w", err)
	}
	return entry.Query, true, nil
}

// Append pushes an entry and trims the list to the configured length
func (h *RedisHistory) Append(ctx context.Context, entry *model.SearchHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	key := h.key(entry.UserID)
	_, err = h.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, h.maxEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append search history: %w", err)
	}
	return nil
}

// Recent returns up to limit history entries of userID, newest first
func (h *RedisHistory) Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	if limit <= 0 {
		return []model.SearchHistoryEntry{}, nil
	}
	raws, err := h.rdb.LRange(ctx, h.key(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	entries := make([]model.SearchHistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var entry model.SearchHistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Ping checks Redis is reachable
func (h *RedisHistory) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis connection
func (h *RedisHistory) Close() error {
	return h.rdb.Close()
}
