// Package service orchestrates claim validation: it resolves the reference
// order, runs reconciliation against the current reference snapshot, prices
// the billed lines, and shields callers from panics in the pipeline.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"

	"github.com/claimrecon/crv-app/crv/constants"
	crverrors "github.com/claimrecon/crv-app/crv/errors"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/patientmatch"
	"github.com/claimrecon/crv-app/crv/rates"
	"github.com/claimrecon/crv-app/crv/reconcile"
	"github.com/claimrecon/crv-app/crv/reference"
)

// BatchItem pairs a claim with the reference order it validates against.
type BatchItem struct {
	Claim   *models.Claim
	OrderID uuid.UUID
}

type Service interface {
	// ValidateClaim reconciles a claim against an already-loaded order.
	ValidateClaim(ctx context.Context, claim *models.Claim, order *models.ReferenceOrder) *models.ValidationResult

	// ValidateClaimByOrderID loads the order first. A missing order is a
	// FAIL outcome; repository failures surface as ERROR, never as a FAIL
	// that could be mistaken for a clinical mismatch.
	ValidateClaimByOrderID(ctx context.Context, claim *models.Claim, orderID uuid.UUID) *models.ValidationResult

	// ValidateBatch validates independent claims concurrently. Results are
	// returned in input order.
	ValidateBatch(ctx context.Context, items []BatchItem) []*models.ValidationResult

	// FindSimilarPatients locates candidate orders by fuzzy patient identity.
	FindSimilarPatients(ctx context.Context, name string, dateOfService time.Time, dayWindow int) (patientmatch.MatchResult, error)

	// ApplyRateCorrection applies a batch rate correction for one provider.
	ApplyRateCorrection(ctx context.Context, providerTaxID string, correction models.RateCorrection) (int64, error)
}

type service struct {
	repository models.Repository
	ref        *reference.Manager
	rates      *rates.Validator
	matcher    *patientmatch.Matcher
	logger     logrus.FieldLogger
	workers    int
}

func NewService(repository models.Repository, ref *reference.Manager, validator *rates.Validator, logger logrus.FieldLogger) Service {
	return &service{
		repository: repository,
		ref:        ref,
		rates:      validator,
		matcher:    patientmatch.NewMatcher(repository, logger),
		logger:     logger,
		workers:    constants.DefaultBatchWorkers,
	}
}

func (s *service) ValidateClaim(ctx context.Context, claim *models.Claim, order *models.ReferenceOrder) (result *models.ValidationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &crverrors.UnexpectedFailureError{
				Err:     fmt.Errorf("%v", rec),
				ClaimID: claim.ID.String(),
			}
			s.logger.WithField("claim_id", claim.ID).Error(err)
			result = errorResult(claim.ID, fmt.Sprintf(constants.MsgValidationPanic, rec))
		}
	}()

	var orderedLines []models.OrderedLine
	if order != nil {
		orderedLines = order.Lines
	}

	reconciler := reconcile.NewReconciler(s.ref.Current(), s.logger)
	rec := reconciler.Reconcile(claim.Lines, orderedLines, claim.ProviderTaxID)

	result = &models.ValidationResult{
		ClaimID:  claim.ID,
		Status:   rec.Status,
		Messages: rec.Messages,
		Detail: models.ValidationDetail{
			UnmatchedCodes:  rec.UnmatchedCodes,
			MismatchedPairs: rec.MismatchedPairs,
		},
	}
	if rec.Component != nil {
		result.Detail.IsComponentBilling = rec.Component.IsComponentBilling
		result.Detail.ComponentType = rec.Component.ComponentType
	}

	// Pricing context rides along with the verdict; a hole in the rate table
	// never changes the clinical outcome.
	report, err := s.rates.BuildReport(ctx, claim.ProviderTaxID, claim.Lines)
	if err != nil {
		s.logger.WithField("claim_id", claim.ID).Warnf("Could not price claim lines: %s", err)
	} else {
		result.Detail.RateReport = report
	}

	return result
}

func (s *service) ValidateClaimByOrderID(ctx context.Context, claim *models.Claim, orderID uuid.UUID) *models.ValidationResult {
	order, err := s.repository.GetReferenceOrder(ctx, orderID)
	if err != nil {
		failure := &crverrors.UnexpectedFailureError{Err: err, ClaimID: claim.ID.String()}
		s.logger.WithField("order_id", orderID).Error(failure)
		return errorResult(claim.ID, failure.Error())
	}
	if order == nil {
		return &models.ValidationResult{
			ClaimID:  claim.ID,
			Status:   models.StatusFail,
			Messages: []string{fmt.Sprintf(constants.MsgOrderNotFound, orderID)},
		}
	}

	return s.ValidateClaim(ctx, claim, order)
}

// ValidateBatch fans independent claims out to a bounded worker pool. Claims
// share nothing but the read-only reference snapshot, so no locking is
// needed beyond the result slots.
func (s *service) ValidateBatch(ctx context.Context, items []BatchItem) []*models.ValidationResult {
	results := make([]*models.ValidationResult, len(items))
	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					results[i] = errorResult(items[i].Claim.ID, err.Error())
					continue
				}
				results[i] = s.ValidateClaimByOrderID(ctx, items[i].Claim, items[i].OrderID)
			}
		}()
	}
	wg.Wait()

	return results
}

func (s *service) FindSimilarPatients(ctx context.Context, name string, dateOfService time.Time, dayWindow int) (patientmatch.MatchResult, error) {
	return s.matcher.FindSimilarPatients(ctx, name, dateOfService, dayWindow)
}

func (s *service) ApplyRateCorrection(ctx context.Context, providerTaxID string, correction models.RateCorrection) (int64, error) {
	return s.rates.ApplyCorrection(ctx, providerTaxID, correction)
}

func errorResult(claimID uuid.UUID, reason string) *models.ValidationResult {
	return &models.ValidationResult{
		ClaimID:  claimID,
		Status:   models.StatusError,
		Messages: []string{reason},
		Detail:   models.ValidationDetail{FailureReason: reason},
	}
}
