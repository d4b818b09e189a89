package service

import (
	"context"

	"propsearch/internal/model"

	"github.com/stretchr/testify/mock"
)

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) LastQuery(ctx context.Context, userID string) (string, bool, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockHistoryStore) Append(ctx context.Context, entry *model.SearchHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockHistoryStore) Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SearchHistoryEntry), args.Error(1)
}

type mockListingStore struct {
	mock.Mock
}

func (m *mockListingStore) FindActive(ctx context.Context, q model.ListingQuery) ([]model.Listing, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *mockListingStore) GetListing(ctx context.Context, variant model.Variant, id int64) (*model.Listing, error) {
	args := m.Called(ctx, variant, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) GetProfile(ctx context.Context, email string) (*model.PreferenceProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreferenceProfile), args.Error(1)
}
