package models

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock over Repository, shared by tests across
// packages.
type MockRepository struct {
	mock.Mock
}

var _ Repository = &MockRepository{}

func (m *MockRepository) GetReferenceOrder(ctx context.Context, orderID uuid.UUID) (*ReferenceOrder, error) {
	args := m.Called(ctx, orderID)
	var order *ReferenceOrder
	if args.Get(0) != nil {
		order = args.Get(0).(*ReferenceOrder)
	}
	return order, args.Error(1)
}

func (m *MockRepository) FindPatientCandidates(ctx context.Context, nameTokens []string, windowStart, windowEnd time.Time, limit int) ([]*PatientCandidate, error) {
	args := m.Called(ctx, nameTokens, windowStart, windowEnd, limit)
	var candidates []*PatientCandidate
	if args.Get(0) != nil {
		candidates = args.Get(0).([]*PatientCandidate)
	}
	return candidates, args.Error(1)
}

func (m *MockRepository) GetProviderRate(ctx context.Context, taxID, code, modifier string) (*RateEntry, error) {
	args := m.Called(ctx, taxID, code, modifier)
	var entry *RateEntry
	if args.Get(0) != nil {
		entry = args.Get(0).(*RateEntry)
	}
	return entry, args.Error(1)
}

func (m *MockRepository) GetCategoryRate(ctx context.Context, taxID, category, modifier string) (*RateEntry, error) {
	args := m.Called(ctx, taxID, category, modifier)
	var entry *RateEntry
	if args.Get(0) != nil {
		entry = args.Get(0).(*RateEntry)
	}
	return entry, args.Error(1)
}

func (m *MockRepository) UpsertProviderRate(ctx context.Context, taxID, code, modifier string, rateCents int64) error {
	args := m.Called(ctx, taxID, code, modifier, rateCents)
	return args.Error(0)
}

func (m *MockRepository) ApplyCategoryRate(ctx context.Context, taxID, category, modifier string, rateCents int64) (int64, error) {
	args := m.Called(ctx, taxID, category, modifier, rateCents)
	return args.Get(0).(int64), args.Error(1)
}
