package service

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/patientmatch"
)

// MockService is a testify mock over Service for handler and CLI tests.
type MockService struct {
	mock.Mock
}

var _ Service = &MockService{}

func (m *MockService) ValidateClaim(ctx context.Context, claim *models.Claim, order *models.ReferenceOrder) *models.ValidationResult {
	args := m.Called(ctx, claim, order)
	return args.Get(0).(*models.ValidationResult)
}

func (m *MockService) ValidateClaimByOrderID(ctx context.Context, claim *models.Claim, orderID uuid.UUID) *models.ValidationResult {
	args := m.Called(ctx, claim, orderID)
	return args.Get(0).(*models.ValidationResult)
}

func (m *MockService) ValidateBatch(ctx context.Context, items []BatchItem) []*models.ValidationResult {
	args := m.Called(ctx, items)
	return args.Get(0).([]*models.ValidationResult)
}

func (m *MockService) FindSimilarPatients(ctx context.Context, name string, dateOfService time.Time, dayWindow int) (patientmatch.MatchResult, error) {
	args := m.Called(ctx, name, dateOfService, dayWindow)
	return args.Get(0).(patientmatch.MatchResult), args.Error(1)
}

func (m *MockService) ApplyRateCorrection(ctx context.Context, providerTaxID string, correction models.RateCorrection) (int64, error) {
	args := m.Called(ctx, providerTaxID, correction)
	return args.Get(0).(int64), args.Error(1)
}
