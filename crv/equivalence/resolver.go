// Package equivalence decides whether two procedure codes represent the same
// clinical service.
package equivalence

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/claimrecon/crv-app/conf"
	"github.com/claimrecon/crv-app/crv/codes"
	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/reference"
)

// Resolver answers code-equivalence questions against a reference snapshot.
// Rules are applied in priority order and the first decisive rule wins, so
// the fuzzy fallback can never override an authoritative provider rule.
type Resolver struct {
	snap      *reference.Snapshot
	threshold float64
	logger    logrus.FieldLogger
}

func NewResolver(snap *reference.Snapshot, logger logrus.FieldLogger) *Resolver {
	return &Resolver{
		snap:      snap,
		threshold: similarityThreshold(),
		logger:    logger,
	}
}

// similarityThreshold returns the fuzzy-fallback cutoff, overridable through
// CRV_EQUIVALENCE_THRESHOLD. Values outside (0, 1] fall back to the default.
func similarityThreshold() float64 {
	if v := conf.GetEnv("CRV_EQUIVALENCE_THRESHOLD"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err == nil && t > 0 && t <= 1 {
			return t
		}
	}
	return constants.EquivalenceThreshold
}

// AreEquivalent reports whether two raw codes represent the same clinical
// service. providerTaxID may be empty; when present it unlocks
// provider-scoped substitution rules, which are checked before anything
// derived from categories or string similarity.
func (r *Resolver) AreEquivalent(rawA, rawB, providerTaxID string) bool {
	a, b := codes.Normalize(rawA), codes.Normalize(rawB)
	if a == "" || b == "" {
		return false
	}

	// 1. Exact match after normalization.
	if a == b {
		return true
	}

	// 2. Provider-scoped substitution rules.
	if taxID := codes.NormalizeTaxID(providerTaxID); taxID != "" {
		for _, rule := range r.snap.ProviderRules(taxID) {
			if rule.Links(a, b) {
				return true
			}
		}
	}

	// 2a. Static equivalence groups. Provider rules above take precedence on
	// overlap, but membership in the same group is equally decisive.
	if r.snap.SameGroup(a, b) {
		return true
	}

	// 3. Category-based fallback: both codes must resolve to the same
	// non-empty category, and be tied together by either the imaging
	// contrast-suffix convention or a global substitution rule.
	if r.sameCategory(a, b) {
		if sharesFamilyPrefix(a, b) && (hasContrastSuffix(a) || hasContrastSuffix(b)) {
			return true
		}
		for _, rule := range r.snap.GlobalRules() {
			if rule.Links(a, b) {
				return true
			}
		}
	}

	// 4. String-similarity tiebreak. Absorbs single-digit transcription
	// errors, not genuinely different procedures.
	if similarity := codes.SimilarityRatio(a, b); similarity >= r.threshold {
		r.logger.WithFields(logrus.Fields{
			"code_a": a, "code_b": b, "similarity": similarity,
		}).Info("Codes treated as equivalent by similarity tiebreak.")
		return true
	}

	return false
}

func (r *Resolver) sameCategory(a, b string) bool {
	ca, ok := r.snap.CategoryFor(a)
	if !ok || ca == "" {
		return false
	}
	cb, ok := r.snap.CategoryFor(b)
	return ok && ca == cb
}

// sharesFamilyPrefix reports whether two codes share the 2-digit family
// prefix used by imaging code ranges.
func sharesFamilyPrefix(a, b string) bool {
	return len(a) >= 2 && len(b) >= 2 && a[:2] == b[:2]
}

// hasContrastSuffix reports whether a code ends in the contrast-phase digit
// convention used by imaging codes (1 = without contrast, 2 = with contrast,
// 3 = without followed by with).
func hasContrastSuffix(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	last := code[len(code)-1]
	return last >= '1' && last <= '3'
}
