// Package reconcile matches the billed lines of a claim against the lines of
// its authorizing reference order and aggregates the per-line outcomes into a
// claim-level verdict.
package reconcile

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/claimrecon/crv-app/crv/bundles"
	"github.com/claimrecon/crv-app/crv/codes"
	"github.com/claimrecon/crv-app/crv/components"
	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/equivalence"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/reference"
)

// Reconciler runs the line-matching algorithm against one reference snapshot.
// Safe for concurrent use: the snapshot is read-only and each call keeps its
// own bookkeeping.
type Reconciler struct {
	snap     *reference.Snapshot
	resolver *equivalence.Resolver
	detector *bundles.Detector
	logger   logrus.FieldLogger
}

func NewReconciler(snap *reference.Snapshot, logger logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		snap:     snap,
		resolver: equivalence.NewResolver(snap, logger),
		detector: bundles.NewDetector(snap),
		logger:   logger,
	}
}

// orderedSlot tracks one ordered line through a reconciliation run. An
// ordered line satisfies at most one billed line: first match wins and there
// is no backtracking, a deliberate simplification since order line lists are
// small and rarely contain true duplicates.
type orderedSlot struct {
	line     models.OrderedLine
	code     string
	consumed bool
}

// Reconcile matches billed lines against ordered lines and returns the
// claim-level verdict. providerTaxID may be empty; when present it unlocks
// provider-scoped substitution rules during equivalence resolution.
//
// The verdict is FAIL only when billed codes remain with no match, no bundle
// context, and no component-billing explanation. Every other outcome is PASS,
// but Messages always carries the full diagnostic trail so callers can show
// non-fatal context even on a pass.
func (r *Reconciler) Reconcile(billed []models.BilledLine, ordered []models.OrderedLine, providerTaxID string) models.ReconciliationResult {
	result := models.ReconciliationResult{Status: models.StatusPass}

	// An empty comparison must never be silently treated as a match.
	if len(billed) == 0 {
		result.Status = models.StatusFail
		result.Messages = append(result.Messages, constants.MsgNoBilledLines)
	}
	if len(ordered) == 0 {
		result.Status = models.StatusFail
		result.Messages = append(result.Messages, constants.MsgNoOrderedLines)
	}
	if result.Status == models.StatusFail {
		return result
	}

	lines, billedCodes := r.screenAncillary(billed)
	if len(lines) == 0 {
		result.Messages = append(result.Messages, constants.MsgAllLinesAncillary)
		return result
	}

	slots := make([]*orderedSlot, 0, len(ordered))
	for _, o := range ordered {
		slots = append(slots, &orderedSlot{line: o, code: codes.Normalize(o.Code)})
	}

	// First pass: claim ordered lines by code identity or clinical
	// equivalence. Runs to completion before any miss is judged, so bundle
	// context in the second pass sees every core code that matched
	// regardless of billed-line order.
	bundleMatches := r.detector.Detect(billedCodes)
	matchedCodes := make(map[string]bool)
	type miss struct {
		line models.BilledLine
		code string
	}
	var misses []miss

	for _, b := range lines {
		code := codes.Normalize(b.Code)
		slot := r.findMatch(code, slots, providerTaxID)
		if slot == nil {
			misses = append(misses, miss{line: b, code: code})
			continue
		}
		slot.consumed = true
		matchedCodes[code] = true
		if slot.code != code {
			result.Messages = append(result.Messages,
				fmt.Sprintf(constants.MsgEquivalentMatch, code, slot.code))
		}
		// Codes agree, but a component split on either side still needs to
		// be surfaced (a TC-only bill against a global order is legitimate
		// split billing, not an exact fulfillment).
		r.noteComponents(&result, b.Modifiers, slot, code)
	}

	// Second pass: explain the misses, by bundle membership first, then by a
	// component-billing relationship with a same-category ordered line.
	failed := false
	for _, m := range misses {
		if explained, name := bundleContext(bundleMatches, m.code, matchedCodes); explained {
			result.Messages = append(result.Messages,
				fmt.Sprintf(constants.MsgBundleExplained, m.code, name))
			continue
		}

		if r.componentContext(&result, m.line, m.code, slots) {
			continue
		}

		result.UnmatchedCodes = append(result.UnmatchedCodes, m.code)
		result.Messages = append(result.Messages, fmt.Sprintf(constants.MsgUnmatchedCode, m.code))
		failed = true
	}

	if failed || len(result.MismatchedPairs) > 0 {
		result.Status = models.StatusFail
	}
	if len(result.Messages) == 0 {
		result.Messages = append(result.Messages, constants.MsgAllLinesReconciled)
	}

	return result
}

// screenAncillary drops billed incidentals (supply codes and the like) that
// are never expected to appear on an order, and collects the normalized codes
// that remain in play.
func (r *Reconciler) screenAncillary(billed []models.BilledLine) ([]models.BilledLine, []string) {
	var lines []models.BilledLine
	var kept []string
	for _, b := range billed {
		code := codes.Normalize(b.Code)
		if code == "" || r.snap.IsAncillary(code) {
			continue
		}
		lines = append(lines, b)
		kept = append(kept, code)
	}
	return lines, kept
}

// findMatch searches the unconsumed ordered lines for the billed code:
// exact normalized equality over the whole list first, then clinical
// equivalence. Returns nil when nothing matches.
func (r *Reconciler) findMatch(code string, slots []*orderedSlot, providerTaxID string) *orderedSlot {
	for _, s := range slots {
		if !s.consumed && s.code == code {
			return s
		}
	}
	for _, s := range slots {
		if !s.consumed && r.resolver.AreEquivalent(code, s.code, providerTaxID) {
			return s
		}
	}
	return nil
}

// componentContext handles a billed line with no code match: it assesses
// component modifiers against the nearest unconsumed ordered line sharing the
// billed code's category. A component-billing relationship reclassifies the
// miss into a pass note; a conflicting component split is recorded as a
// mismatched pair. Returns false when no same-category counterpart exists or
// no component modifiers are in play.
func (r *Reconciler) componentContext(result *models.ReconciliationResult, b models.BilledLine, code string, slots []*orderedSlot) bool {
	category, ok := r.snap.CategoryFor(code)
	if !ok || category == "" {
		// Uncategorized codes degrade to exact/equivalence matching only.
		return false
	}

	for _, s := range slots {
		if s.consumed {
			continue
		}
		if c, ok := r.snap.CategoryFor(s.code); !ok || c != category {
			continue
		}

		a := components.Assess(b.Modifiers, modifierSet(s.line.Modifier))
		switch {
		case a.IsComponentBilling:
			s.consumed = true
			result.Messages = append(result.Messages, a.Message)
			if result.Component == nil {
				result.Component = &a
			}
			return true
		case a.Outcome == models.ComponentMismatch:
			s.consumed = true
			result.MismatchedPairs = append(result.MismatchedPairs,
				models.CodePair{BilledCode: code, OrderedCode: s.code})
			result.Messages = append(result.Messages,
				fmt.Sprintf(constants.MsgMismatchedPair, code, s.code, category))
			if result.Component == nil {
				result.Component = &a
			}
			return true
		default:
			// Same category but no component modifiers anywhere: a plain
			// unmatched code, and this ordered line stays claimable.
			return false
		}
	}
	return false
}

// noteComponents surfaces a component split between a billed line and the
// ordered line it matched. A conflicting split (billed 26 against ordered TC
// on the same code) is a mismatch even though the codes agree.
func (r *Reconciler) noteComponents(result *models.ReconciliationResult, billedMods []string, slot *orderedSlot, code string) {
	a := components.Assess(billedMods, modifierSet(slot.line.Modifier))
	if a.Outcome == models.ComponentNotApplicable {
		return
	}
	result.Messages = append(result.Messages, a.Message)
	if result.Component == nil {
		result.Component = &a
	}
	if a.Outcome == models.ComponentMismatch {
		result.MismatchedPairs = append(result.MismatchedPairs,
			models.CodePair{BilledCode: code, OrderedCode: slot.code})
	}
}

// bundleContext reports whether an unmatched billed code participates in a
// detected bundle of which at least one other core code already matched an
// ordered line, meaning the order covers the bundled service as a whole.
func bundleContext(matches []bundles.Match, code string, matchedCodes map[string]bool) (bool, string) {
	var candidates []bundles.Match
	for _, m := range matches {
		if !m.ContainsCode(code) {
			continue
		}
		for _, core := range m.MatchedCore {
			if core != code && matchedCodes[core] {
				candidates = append(candidates, m)
				break
			}
		}
	}
	if best := bundles.MostSpecific(candidates); best != nil {
		return true, best.Bundle.Name
	}
	return false, ""
}

func modifierSet(modifier string) []string {
	if modifier == "" {
		return nil
	}
	return []string{modifier}
}
