package service

import (
	"context"
	"time"
)

func strPtr(v string) *string {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}

func intPtr(v int) *int {
	return &v
}

// slowHistoryStore delays LastQuery so that overlapping writes for the same
// user would read a stale last query unless they are serialized
type slowHistoryStore struct {
	HistoryStore
	delay time.Duration
}

func (s *slowHistoryStore) LastQuery(ctx context.Context, userID string) (string, bool, error) {
	time.Sleep(s.delay)
	return s.HistoryStore.LastQuery(ctx, userID)
}
