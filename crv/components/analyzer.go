// Package components classifies component-billing modifier combinations.
// Imaging services split into a technical component (TC, the scan itself) and
// a professional component (26, the interpretation); a line with neither
// modifier is the global service. Whether a billed/ordered line pair agrees
// depends only on which components each side carries, so the classification
// is a sixteen-entry truth table.
package components

import (
	"fmt"
	"strings"

	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/models"
)

// Assess classifies the component relationship between a billed line's
// modifiers and an ordered line's modifiers.
//
// Outcomes:
//   - a side carrying both TC and 26 bills both components and is treated as
//     global, same as a side carrying neither;
//   - global billed vs global ordered is not a component situation at all;
//   - a single component billed against a global order is legitimate split
//     billing (the facility bills TC, the radiologist bills 26);
//   - the same single component on both sides is a component match;
//   - anything else is a component mismatch.
func Assess(billedModifiers []string, orderedModifiers []string) models.ComponentAssessment {
	a := models.ComponentAssessment{
		BilledTechnical:     hasModifier(billedModifiers, constants.ModifierTechnical),
		BilledProfessional:  hasModifier(billedModifiers, constants.ModifierProfessional),
		OrderedTechnical:    hasModifier(orderedModifiers, constants.ModifierTechnical),
		OrderedProfessional: hasModifier(orderedModifiers, constants.ModifierProfessional),
	}

	billed := componentOf(a.BilledTechnical, a.BilledProfessional)
	ordered := componentOf(a.OrderedTechnical, a.OrderedProfessional)

	switch {
	case billed == global && ordered == global:
		a.Outcome = models.ComponentNotApplicable
	case ordered == global && billed == technical:
		a.Outcome = models.ComponentTechnicalVsGlobal
		a.IsComponentBilling = true
		a.ComponentType = constants.ComponentTypeTechnical
		a.Message = constants.MsgTechnicalVsGlobal
	case ordered == global && billed == professional:
		a.Outcome = models.ComponentProfessionalVsGlobal
		a.IsComponentBilling = true
		a.ComponentType = constants.ComponentTypeProfessional
		a.Message = constants.MsgProfessionalVsGlobal
	case billed == ordered && billed == technical:
		a.Outcome = models.ComponentMatch
		a.IsComponentBilling = true
		a.ComponentType = constants.ComponentTypeTechnical
		a.Message = fmt.Sprintf(constants.MsgComponentMatch, constants.ComponentTypeTechnical)
	case billed == ordered && billed == professional:
		a.Outcome = models.ComponentMatch
		a.IsComponentBilling = true
		a.ComponentType = constants.ComponentTypeProfessional
		a.Message = fmt.Sprintf(constants.MsgComponentMatch, constants.ComponentTypeProfessional)
	default:
		a.Outcome = models.ComponentMismatch
		a.Message = constants.MsgComponentMismatch
	}

	return a
}

type component int

const (
	global component = iota
	technical
	professional
)

// componentOf collapses the two modifier flags into a single component value.
// Carrying both modifiers reassembles the global service.
func componentOf(tc, pc bool) component {
	switch {
	case tc && pc:
		return global
	case tc:
		return technical
	case pc:
		return professional
	default:
		return global
	}
}

func hasModifier(modifiers []string, want string) bool {
	for _, m := range modifiers {
		if strings.EqualFold(strings.TrimSpace(m), want) {
			return true
		}
	}
	return false
}
