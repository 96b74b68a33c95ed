// Package bundles recognizes known multi-code clinical bundles (e.g. an
// arthrogram combining an injection code, an imaging code, and a guidance
// code) inside a basket of billed or ordered codes.
package bundles

import (
	"github.com/claimrecon/crv-app/crv/codes"
	"github.com/claimrecon/crv-app/crv/reference"
)

// Match is the detection result for one configured bundle.
type Match struct {
	Bundle          reference.ProcedureBundle
	MatchedCore     []string
	MatchedOptional []string
	// Complete is true only when every core code was found. Optional codes
	// strengthen a match but are never required.
	Complete bool
}

// ContainsCode reports whether the given normalized code participated in the
// match, as either a core or an optional code.
func (m Match) ContainsCode(code string) bool {
	for _, c := range m.MatchedCore {
		if c == code {
			return true
		}
	}
	for _, c := range m.MatchedOptional {
		if c == code {
			return true
		}
	}
	return false
}

// Detector matches configured bundles against code sets.
type Detector struct {
	bundles []reference.ProcedureBundle
}

func NewDetector(snap *reference.Snapshot) *Detector {
	return &Detector{bundles: snap.Bundles()}
}

// Detect returns a Match for every bundle with at least one core code in the
// input set. All candidates are returned; when bundles overlap, the caller
// chooses the most specific interpretation (see MostSpecific).
func (d *Detector) Detect(rawCodes []string) []Match {
	set := make(map[string]struct{}, len(rawCodes))
	for _, raw := range rawCodes {
		if code := codes.Normalize(raw); code != "" {
			set[code] = struct{}{}
		}
	}

	var matches []Match
	for _, bundle := range d.bundles {
		core := intersect(bundle.CoreCodes, set)
		if len(core) == 0 {
			continue
		}
		matches = append(matches, Match{
			Bundle:          bundle,
			MatchedCore:     core,
			MatchedOptional: intersect(bundle.OptionalCodes, set),
			Complete:        len(core) == len(bundle.CoreCodes),
		})
	}

	return matches
}

// MostSpecific picks the preferred interpretation among candidate matches:
// complete bundles beat incomplete ones, and a bundle whose core-code set is
// a superset of another candidate's core set beats the smaller bundle. Ties
// fall to the larger matched-core count. Returns nil for no candidates.
func MostSpecific(matches []Match) *Match {
	var best *Match
	for i := range matches {
		m := &matches[i]
		if best == nil || prefer(m, best) {
			best = m
		}
	}
	return best
}

func prefer(a, b *Match) bool {
	if a.Complete != b.Complete {
		return a.Complete
	}
	if coreSuperset(a.Bundle.CoreCodes, b.Bundle.CoreCodes) {
		return true
	}
	if coreSuperset(b.Bundle.CoreCodes, a.Bundle.CoreCodes) {
		return false
	}
	return len(a.MatchedCore) > len(b.MatchedCore)
}

// coreSuperset reports whether super strictly contains every element of sub.
func coreSuperset(super, sub []string) bool {
	if len(super) <= len(sub) {
		return false
	}
	set := make(map[string]struct{}, len(super))
	for _, c := range super {
		set[c] = struct{}{}
	}
	for _, c := range sub {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

func intersect(bundleCodes []string, set map[string]struct{}) []string {
	var out []string
	for _, c := range bundleCodes {
		if _, ok := set[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
