package reconcile

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimrecon/crv-app/crv/constants"
	"github.com/claimrecon/crv-app/crv/models"
	"github.com/claimrecon/crv-app/crv/reference"
)

func testReconciler(t *testing.T) *Reconciler {
	groups := []reference.EquivalenceGroup{
		{Name: "MRI Upper Extremity Joint", Codes: []string{
			constants.TestMRIUpperJointWO, constants.TestMRIUpperJointW, constants.TestMRIUpperJointWWO,
		}},
	}
	bundles := []reference.ProcedureBundle{
		{
			Name:          "Shoulder Arthrogram",
			BodyPart:      "Shoulder",
			Modality:      "MRI",
			CoreCodes:     []string{constants.TestArthrogramInjection, constants.TestMRIUpperJointW},
			OptionalCodes: []string{constants.TestFluoroGuidance},
		},
	}
	categories := map[string]string{
		constants.TestMRIBrainGlobal: "MRI Brain",
		// 3D rendering codes: same category but far enough apart that no
		// equivalence rule ties them together.
		"76376": "3D Rendering",
		"76999": "3D Rendering",
	}
	snap, err := reference.NewSnapshot(groups, nil, bundles,
		[]string{constants.TestSupplyCode}, nil, categories)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(testWriter{t})
	return NewReconciler(snap, logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func billed(code string, modifiers ...string) models.BilledLine {
	return models.BilledLine{Code: code, Modifiers: modifiers, Units: 1}
}

func ordered(code, modifier string) models.OrderedLine {
	return models.OrderedLine{Code: code, Modifier: modifier, Units: 1}
}

func TestReconcileIdenticalLines(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestMRIBrainGlobal), billed("76376")},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, ""), ordered("76376", "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.UnmatchedCodes)
	assert.Empty(t, res.MismatchedPairs)
	assert.Equal(t, []string{constants.MsgAllLinesReconciled}, res.Messages)
}

func TestReconcileEmptyInputs(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(nil, []models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")}, "")
	assert.Equal(t, models.StatusFail, res.Status)
	assert.Contains(t, res.Messages, constants.MsgNoBilledLines)

	res = r.Reconcile([]models.BilledLine{billed(constants.TestMRIBrainGlobal)}, nil, "")
	assert.Equal(t, models.StatusFail, res.Status)
	assert.Contains(t, res.Messages, constants.MsgNoOrderedLines)

	res = r.Reconcile(nil, nil, "")
	assert.Equal(t, models.StatusFail, res.Status)
	assert.Contains(t, res.Messages, constants.MsgNoBilledLines)
	assert.Contains(t, res.Messages, constants.MsgNoOrderedLines)
}

func TestReconcileAllAncillary(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestSupplyCode)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Contains(t, res.Messages, constants.MsgAllLinesAncillary)
	assert.Empty(t, res.UnmatchedCodes)
}

func TestReconcileAncillaryDoesNotConsume(t *testing.T) {
	r := testReconciler(t)

	// The supply code is screened out and the real line still reconciles.
	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestSupplyCode), billed(constants.TestMRIBrainGlobal)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.UnmatchedCodes)
}

func TestReconcileEquivalenceGroupMatch(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestMRIUpperJointWO)},
		[]models.OrderedLine{ordered(constants.TestMRIUpperJointW, "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.MismatchedPairs)
	assert.Empty(t, res.UnmatchedCodes)
	assert.Contains(t, res.Messages[0], "clinical equivalence")
}

func TestReconcileUnmatchedCodeFails(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed("99213")},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusFail, res.Status)
	assert.Equal(t, []string{"99213"}, res.UnmatchedCodes)
	assert.Contains(t, res.Messages[0], "99213")
}

// A technical component billed against a global order on the same code is
// split billing: a pass with a note, never a hard failure.
func TestReconcileComponentNoteOnMatchedCode(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestMRIBrainGlobal, constants.ModifierTechnical)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.UnmatchedCodes)
	require.NotNil(t, res.Component)
	assert.True(t, res.Component.IsComponentBilling)
	assert.Equal(t, constants.ComponentTypeTechnical, res.Component.ComponentType)
	assert.Contains(t, res.Messages, constants.MsgTechnicalVsGlobal)
}

// An unmatched code can still be explained by a component relationship with a
// same-category ordered line.
func TestReconcileComponentContextAcrossCategory(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed("76376", constants.ModifierProfessional)},
		[]models.OrderedLine{ordered("76999", "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.UnmatchedCodes)
	require.NotNil(t, res.Component)
	assert.Equal(t, constants.ComponentTypeProfessional, res.Component.ComponentType)
}

func TestReconcileComponentMismatchFails(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed("76376", constants.ModifierProfessional)},
		[]models.OrderedLine{ordered("76999", constants.ModifierTechnical)},
		"")

	assert.Equal(t, models.StatusFail, res.Status)
	require.Len(t, res.MismatchedPairs, 1)
	assert.Equal(t, models.CodePair{BilledCode: "76376", OrderedCode: "76999"}, res.MismatchedPairs[0])
	require.NotNil(t, res.Component)
	assert.Equal(t, models.ComponentMismatch, res.Component.Outcome)
}

func TestReconcileComponentMismatchOnMatchedCode(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestMRIBrainGlobal, constants.ModifierProfessional)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, constants.ModifierTechnical)},
		"")

	assert.Equal(t, models.StatusFail, res.Status)
	require.Len(t, res.MismatchedPairs, 1)
	assert.Equal(t, constants.TestMRIBrainGlobal, res.MismatchedPairs[0].BilledCode)
	assert.Contains(t, res.Messages, constants.MsgComponentMismatch)
}

// An injection code with no ordered counterpart passes when another core code
// of its bundle matched, regardless of billed-line order.
func TestReconcileBundleContext(t *testing.T) {
	r := testReconciler(t)

	for _, lines := range [][]models.BilledLine{
		{billed(constants.TestMRIUpperJointW), billed(constants.TestArthrogramInjection)},
		{billed(constants.TestArthrogramInjection), billed(constants.TestMRIUpperJointW)},
	} {
		res := r.Reconcile(lines,
			[]models.OrderedLine{ordered(constants.TestMRIUpperJointW, "")}, "")

		assert.Equal(t, models.StatusPass, res.Status)
		assert.Empty(t, res.UnmatchedCodes)
		assert.Contains(t, res.Messages,
			"billed code 23350 is part of the Shoulder Arthrogram bundle; core service already matched")
	}
}

func TestReconcileBundleWithoutMatchedCoreFails(t *testing.T) {
	r := testReconciler(t)

	// The injection code alone, with no core imaging match, stays unmatched.
	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestArthrogramInjection)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusFail, res.Status)
	assert.Equal(t, []string{constants.TestArthrogramInjection}, res.UnmatchedCodes)
}

// First match wins: once an ordered line is claimed it cannot satisfy a
// second billed line, even one that would match it exactly.
func TestReconcileOrderedLineConsumedOnce(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(constants.TestMRIBrainGlobal), billed(constants.TestMRIBrainGlobal)},
		[]models.OrderedLine{ordered(constants.TestMRIBrainGlobal, "")},
		"")

	assert.Equal(t, models.StatusFail, res.Status)
	assert.Equal(t, []string{constants.TestMRIBrainGlobal}, res.UnmatchedCodes)
}

func TestReconcileNormalizesCodes(t *testing.T) {
	r := testReconciler(t)

	res := r.Reconcile(
		[]models.BilledLine{billed(" 70-553 ")},
		[]models.OrderedLine{ordered("70553", "")},
		"")

	assert.Equal(t, models.StatusPass, res.Status)
	assert.Empty(t, res.UnmatchedCodes)
}
