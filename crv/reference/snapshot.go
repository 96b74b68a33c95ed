// Package reference loads and serves the reference tables the validator
// matches against: equivalence groups, substitution rules, procedure bundles,
// the ancillary-code set, and the procedure-category dimension. A Snapshot is
// built once and treated as read-only for the duration of a validation batch;
// reload happens only through an explicit refresh or the file watcher.
package reference

import (
	"fmt"

	"github.com/claimrecon/crv-app/crv/codes"
	"github.com/claimrecon/crv-app/crv/utils"
)

// EquivalenceGroup is a named set of procedure codes considered clinically
// interchangeable. A code may appear in at most one static group.
type EquivalenceGroup struct {
	Name  string
	Codes []string
}

// SubstitutionRule is an asymmetric mapping from primary codes to substitute
// codes, optionally scoped to one provider tax id. Provider-scoped rules are
// checked before global ones.
type SubstitutionRule struct {
	ProviderTaxID string // "" means global
	Primary       []string
	Substitutes   []string
}

// Links reports whether the rule ties codes a and b together, in either
// orientation.
func (r SubstitutionRule) Links(a, b string) bool {
	return (utils.ContainsString(r.Primary, a) && utils.ContainsString(r.Substitutes, b)) ||
		(utils.ContainsString(r.Primary, b) && utils.ContainsString(r.Substitutes, a))
}

// ProcedureBundle is a clinically recognized grouping of procedure codes that
// together represent one compound service. All core codes must be present for
// the bundle to be complete; optional codes strengthen but are not required.
type ProcedureBundle struct {
	Name          string
	BodyPart      string
	Modality      string
	CoreCodes     []string
	OptionalCodes []string
}

// Snapshot is an immutable view of all reference tables.
type Snapshot struct {
	groups        []EquivalenceGroup
	groupByCode   map[string]string
	providerRules map[string][]SubstitutionRule // keyed by tax id, "" = global
	bundles       []ProcedureBundle

	ancillaryCodes      map[string]struct{}
	ancillaryCategories map[string]struct{}
	categoryByCode      map[string]string
}

// NewSnapshot validates and indexes the raw reference tables. All codes and
// tax ids are normalized here so lookups never have to re-normalize.
func NewSnapshot(groups []EquivalenceGroup, rules []SubstitutionRule,
	bundles []ProcedureBundle, ancillaryCodes, ancillaryCategories []string,
	categoryByCode map[string]string) (*Snapshot, error) {

	s := &Snapshot{
		groupByCode:         make(map[string]string),
		providerRules:       make(map[string][]SubstitutionRule),
		ancillaryCodes:      make(map[string]struct{}),
		ancillaryCategories: make(map[string]struct{}),
		categoryByCode:      make(map[string]string, len(categoryByCode)),
	}

	for _, g := range groups {
		normalized := EquivalenceGroup{Name: g.Name}
		for _, raw := range g.Codes {
			code := codes.Normalize(raw)
			if code == "" {
				continue
			}
			if other, ok := s.groupByCode[code]; ok && other != g.Name {
				return nil, fmt.Errorf("code %s appears in equivalence groups %q and %q; static groups must not overlap", code, other, g.Name)
			}
			s.groupByCode[code] = g.Name
			normalized.Codes = append(normalized.Codes, code)
		}
		s.groups = append(s.groups, normalized)
	}

	for _, r := range rules {
		taxID := ""
		if r.ProviderTaxID != "" {
			taxID = codes.NormalizeTaxID(r.ProviderTaxID)
			if taxID == "" {
				return nil, fmt.Errorf("substitution rule has malformed provider tax id %q", r.ProviderTaxID)
			}
		}
		rule := SubstitutionRule{
			ProviderTaxID: taxID,
			Primary:       normalizeAll(r.Primary),
			Substitutes:   normalizeAll(r.Substitutes),
		}
		if len(rule.Primary) == 0 || len(rule.Substitutes) == 0 {
			return nil, fmt.Errorf("substitution rule (provider %q) must have primary and substitute codes", r.ProviderTaxID)
		}
		s.providerRules[taxID] = append(s.providerRules[taxID], rule)
	}

	for _, b := range bundles {
		bundle := ProcedureBundle{
			Name:          b.Name,
			BodyPart:      b.BodyPart,
			Modality:      b.Modality,
			CoreCodes:     normalizeAll(b.CoreCodes),
			OptionalCodes: normalizeAll(b.OptionalCodes),
		}
		if len(bundle.CoreCodes) == 0 {
			return nil, fmt.Errorf("bundle %q has no core codes", b.Name)
		}
		s.bundles = append(s.bundles, bundle)
	}

	for _, raw := range ancillaryCodes {
		if code := codes.Normalize(raw); code != "" {
			s.ancillaryCodes[code] = struct{}{}
		}
	}
	for _, c := range ancillaryCategories {
		s.ancillaryCategories[c] = struct{}{}
	}

	for raw, category := range categoryByCode {
		if code := codes.Normalize(raw); code != "" && category != "" {
			s.categoryByCode[code] = category
		}
	}

	return s, nil
}

// GroupFor returns the static equivalence group a normalized code belongs to.
func (s *Snapshot) GroupFor(code string) (string, bool) {
	name, ok := s.groupByCode[code]
	return name, ok
}

// SameGroup reports whether two normalized codes share a static group.
func (s *Snapshot) SameGroup(a, b string) bool {
	ga, ok := s.groupByCode[a]
	if !ok {
		return false
	}
	gb, ok := s.groupByCode[b]
	return ok && ga == gb
}

// ProviderRules returns the substitution rules scoped to the given normalized
// tax id. Pass "" for the global rules.
func (s *Snapshot) ProviderRules(taxID string) []SubstitutionRule {
	return s.providerRules[taxID]
}

// GlobalRules returns the substitution rules not scoped to any provider.
func (s *Snapshot) GlobalRules() []SubstitutionRule {
	return s.providerRules[""]
}

// Bundles returns all configured procedure bundles.
func (s *Snapshot) Bundles() []ProcedureBundle {
	return s.bundles
}

// CategoryFor maps a normalized code to its procedure category. Absence of a
// mapping is a valid state (uncategorized), not an error.
func (s *Snapshot) CategoryFor(code string) (string, bool) {
	category, ok := s.categoryByCode[code]
	return category, ok
}

// IsAncillary reports whether a normalized code is a billed incidental that
// is never expected to appear on the order.
func (s *Snapshot) IsAncillary(code string) bool {
	if _, ok := s.ancillaryCodes[code]; ok {
		return true
	}
	if category, ok := s.categoryByCode[code]; ok {
		_, ok = s.ancillaryCategories[category]
		return ok
	}
	return false
}

func normalizeAll(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if code := codes.Normalize(r); code != "" {
			out = append(out, code)
		}
	}
	return out
}
