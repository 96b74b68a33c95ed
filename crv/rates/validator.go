// Package rates prices billed lines against a provider's contracted rates and
// applies rate corrections to the rate store.
package rates

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/claimrecon/crv-app/crv/codes"
	"github.com/claimrecon/crv-app/crv/constants"
	crverrors "github.com/claimrecon/crv-app/crv/errors"
	"github.com/claimrecon/crv-app/crv/models"
)

// CategoryLookup maps a normalized procedure code to its category label.
// Absence of a mapping means the code is uncategorized.
type CategoryLookup func(code string) (string, bool)

// Validator resolves contracted rates and applies corrections. Reads go
// through the injected repository; corrections run in their own transaction
// and are serialized per provider so a category correction and a line-item
// correction can never interleave into an inconsistent rate set.
type Validator struct {
	db          *sql.DB
	repository  models.RateRepository
	categoryFor CategoryLookup
	logger      logrus.FieldLogger

	// repoFactory builds a repository bound to a correction transaction.
	repoFactory func(*sql.Tx) models.RateRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewValidator(db *sql.DB, repository models.RateRepository, repoFactory func(*sql.Tx) models.RateRepository,
	categoryFor CategoryLookup, logger logrus.FieldLogger) *Validator {
	return &Validator{
		db:          db,
		repository:  repository,
		categoryFor: categoryFor,
		logger:      logger,
		repoFactory: repoFactory,
		locks:       make(map[string]*sync.Mutex),
	}
}

// PriceLine resolves the contracted rate in cents for one billed code. An
// exact (code, modifier) override for the provider wins; otherwise the
// provider's category-level rate applies when the code maps to a category;
// otherwise a RateNotFoundError is returned. A tax id or code that fails
// normalization resolves to not-found rather than propagating.
func (v *Validator) PriceLine(ctx context.Context, providerTaxID, rawCode, modifier string) (int64, error) {
	taxID := codes.NormalizeTaxID(providerTaxID)
	code := codes.Normalize(rawCode)
	if taxID == "" || code == "" {
		return 0, &crverrors.RateNotFoundError{ProviderTaxID: providerTaxID, Code: rawCode, Modifier: modifier}
	}

	entry, err := v.repository.GetProviderRate(ctx, taxID, code, modifier)
	if err != nil {
		return 0, errors.Wrap(err, "failed to look up line-item rate")
	}
	if entry != nil {
		return entry.RateCents, nil
	}

	if category, ok := v.categoryFor(code); ok && category != "" {
		entry, err = v.repository.GetCategoryRate(ctx, taxID, category, modifier)
		if err != nil {
			return 0, errors.Wrap(err, "failed to look up category rate")
		}
		if entry != nil {
			return entry.RateCents, nil
		}
	}

	return 0, &crverrors.RateNotFoundError{ProviderTaxID: taxID, Code: code, Modifier: modifier}
}

// BuildReport prices every billed line of a claim. Lines with no resolvable
// rate are reported as uncovered rather than failing the whole report.
func (v *Validator) BuildReport(ctx context.Context, providerTaxID string, lines []models.BilledLine) (*models.RateReport, error) {
	report := &models.RateReport{}
	for _, line := range lines {
		rl := models.RateLine{
			Code:        codes.Normalize(line.Code),
			Modifier:    componentModifier(line.Modifiers),
			Units:       line.Units,
			BilledCents: line.ChargeCents,
		}
		report.BilledTotalCents += line.ChargeCents

		rate, err := v.PriceLine(ctx, providerTaxID, line.Code, rl.Modifier)
		switch err.(type) {
		case nil:
			rl.RateCents = rate
			rl.Covered = true
			report.ExpectedTotalCents += rate * int64(line.Units)
		case *crverrors.RateNotFoundError:
			// uncovered line, keep pricing the rest
		default:
			return nil, err
		}
		report.Lines = append(report.Lines, rl)
	}
	return report, nil
}

// ApplyCorrection applies a batch rate correction for one provider: either
// per-code rates or a single category rate, never both. The whole batch runs
// in one transaction, and corrections for the same provider are serialized.
// Returns the number of rate entries written.
func (v *Validator) ApplyCorrection(ctx context.Context, providerTaxID string, correction models.RateCorrection) (int64, error) {
	taxID := codes.NormalizeTaxID(providerTaxID)
	if taxID == "" {
		return 0, &crverrors.ValidationError{Msg: "malformed provider tax id", Err: errors.New(providerTaxID)}
	}
	hasCodes := len(correction.CodeRates) > 0
	hasCategory := correction.Category != ""
	if hasCodes == hasCategory {
		return 0, &crverrors.ValidationError{
			Msg: "correction must carry either code rates or a category rate",
			Err: errors.New("invalid rate correction"),
		}
	}

	unlock := v.lockProvider(taxID)
	defer unlock()

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin rate correction transaction")
	}
	defer tx.Rollback()

	repository := v.repoFactory(tx)
	var updated int64

	if hasCategory {
		updated, err = repository.ApplyCategoryRate(ctx, taxID, correction.Category, correction.Modifier, correction.CategoryRate)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to apply category rate for %s", correction.Category)
		}
	} else {
		for code, rateCents := range correction.CodeRates {
			normalized := codes.Normalize(code)
			if normalized == "" {
				return 0, &crverrors.ValidationError{Msg: "malformed procedure code in correction", Err: errors.New(code)}
			}
			if err := repository.UpsertProviderRate(ctx, taxID, normalized, correction.Modifier, rateCents); err != nil {
				return 0, errors.Wrapf(err, "failed to upsert rate for code %s", normalized)
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit rate correction")
	}

	v.logger.WithFields(logrus.Fields{
		"provider": taxID,
		"updated":  updated,
	}).Info("Rate correction applied.")
	return updated, nil
}

// lockProvider serializes corrections per provider tax id.
func (v *Validator) lockProvider(taxID string) func() {
	v.mu.Lock()
	l, ok := v.locks[taxID]
	if !ok {
		l = &sync.Mutex{}
		v.locks[taxID] = l
	}
	v.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// componentModifier extracts the rate-relevant modifier from a billed line's
// modifier list. Only component modifiers change contracted pricing.
func componentModifier(modifiers []string) string {
	for _, m := range modifiers {
		if m == constants.ModifierTechnical || m == constants.ModifierProfessional {
			return m
		}
	}
	return ""
}
