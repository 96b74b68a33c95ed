// Package patientmatch locates candidate reference orders by fuzzy patient
// identity when exact identifiers are unavailable or mangled by OCR.
package patientmatch

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/utils"
)

// MatchResult carries the candidate orders plus any diagnostics explaining a
// degraded or refused search.
type MatchResult struct {
	Candidates  []*models.PatientCandidate `json:"candidates"`
	Diagnostics []string                   `json:"diagnostics,omitempty"`
}

// Matcher finds reference orders whose patient name and date of service
// resemble the claim's.
type Matcher struct {
	repository models.OrderRepository
	dayWindow  int
	limit      int
	logger     logrus.FieldLogger
}

func NewMatcher(repository models.OrderRepository, logger logrus.FieldLogger) *Matcher {
	return &Matcher{
		repository: repository,
		dayWindow:  utils.GetEnvInt("CRV_MATCH_DAY_WINDOW", constants.DefaultDayWindow),
		limit:      utils.GetEnvInt("CRV_MATCH_CANDIDATE_LIMIT", constants.MaxPatientCandidates),
		logger:     logger,
	}
}

// FindSimilarPatients searches for orders whose stored patient name contains
// every usable token of the input name, with a date of service inside
// [dateOfService-dayWindow, dateOfService+dayWindow]. Token conjunction
// deliberately tolerates first/last name reordering ("Smith, John" matches
// "John Smith") and OCR-inserted whitespace.
//
// A name that yields no usable tokens never degrades into a date-only search:
// the result is empty with an explicit diagnostic. Pass dayWindow <= 0 for
// the default window.
func (m *Matcher) FindSimilarPatients(ctx context.Context, name string, dateOfService time.Time, dayWindow int) (MatchResult, error) {
	tokens := NameTokens(name)
	if len(tokens) == 0 {
		m.logger.WithField("name", name).Warn("Patient search refused: no usable name tokens.")
		return MatchResult{Diagnostics: []string{constants.MsgNoUsableNameTokens}}, nil
	}

	if dayWindow <= 0 {
		dayWindow = m.dayWindow
	}
	windowStart := dateOfService.AddDate(0, 0, -dayWindow)
	windowEnd := dateOfService.AddDate(0, 0, dayWindow)

	candidates, err := m.repository.FindPatientCandidates(ctx, tokens, windowStart, windowEnd, m.limit)
	if err != nil {
		return MatchResult{}, err
	}

	m.logger.WithFields(logrus.Fields{
		"tokens":     tokens,
		"candidates": len(candidates),
	}).Info("Patient fuzzy search completed.")

	return MatchResult{Candidates: candidates}, nil
}

// NameTokens splits a patient name on whitespace and commas, lowercases each
// token, and discards single-character noise (initials, stray OCR marks).
// Repeated tokens collapse to one; each token becomes a query predicate.
func NameTokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	var tokens []string
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if len(f) <= 1 {
			continue
		}
		tokens = append(tokens, f)
	}
	if tokens == nil {
		return nil
	}
	return utils.Dedupe(tokens)
}
