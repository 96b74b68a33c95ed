package models

import (
	"time"

	"github.com/pborman/uuid"
)

// Status is the claim-level verdict of a validation run.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	// StatusError marks infrastructure failures (reference-table access,
	// panics) so they are never confused with genuine clinical mismatches.
	StatusError Status = "ERROR"
)

// BilledLine is a single billed procedure entry on a submitted claim.
// Immutable once the claim is submitted to validation; corrections produce a
// new claim version.
type BilledLine struct {
	Code           string    `json:"code"`
	Modifiers      []string  `json:"modifiers,omitempty"` // 0-4 entries
	Units          int       `json:"units"`
	ChargeCents    int64     `json:"charge_cents"`
	ServiceDate    time.Time `json:"service_date"`
	PlaceOfService string    `json:"place_of_service,omitempty"`
}

// OrderedLine is the corresponding procedure entry on the authorizing
// reference order. Read-only during validation.
type OrderedLine struct {
	Code        string `json:"code"`
	Modifier    string `json:"modifier,omitempty"`
	Units       int    `json:"units"`
	Description string `json:"description,omitempty"`
}

// Claim is a submitted claim document: patient identity, billing metadata,
// and the billed lines.
type Claim struct {
	ID               uuid.UUID    `json:"id"`
	PatientName      string       `json:"patient_name"`
	PatientDOB       time.Time    `json:"patient_dob,omitempty"`
	ProviderTaxID    string       `json:"provider_tax_id"`
	TotalChargeCents int64        `json:"total_charge_cents"`
	ServiceDate      time.Time    `json:"service_date"`
	Lines            []BilledLine `json:"lines"`
}

// ReferenceOrder is the authorizing order a claim reconciles against.
type ReferenceOrder struct {
	ID          uuid.UUID     `json:"id"`
	PatientName string        `json:"patient_name"`
	ServiceDate time.Time     `json:"service_date"`
	Lines       []OrderedLine `json:"lines"`
}

// PatientCandidate is a read projection returned by fuzzy patient search,
// used only for disambiguation. Never mutated.
type PatientCandidate struct {
	OrderID        uuid.UUID `json:"order_id"`
	PatientName    string    `json:"patient_name"`
	ServiceDate    time.Time `json:"service_date"`
	ProcedureCount int       `json:"procedure_count"`
}

// RateEntry is a provider-contracted rate keyed by either a procedure code or
// a category name (mutually exclusive), plus modifier.
type RateEntry struct {
	ProviderTaxID string `json:"provider_tax_id"`
	Code          string `json:"code,omitempty"`
	Category      string `json:"category,omitempty"`
	Modifier      string `json:"modifier,omitempty"`
	RateCents     int64  `json:"rate_cents"`
}

// RateCorrection is a batch rate update for one provider: either per-code
// rates or a single category rate, never both.
type RateCorrection struct {
	CodeRates    map[string]int64 `json:"code_rates,omitempty"`
	Category     string           `json:"category,omitempty"`
	CategoryRate int64            `json:"category_rate,omitempty"`
	Modifier     string           `json:"modifier,omitempty"`
}

// ComponentAssessment records whether each side of a line pair carries a
// technical (TC) or professional (26) modifier and the resulting mismatch
// classification. Derived per validation run, never persisted.
type ComponentAssessment struct {
	BilledTechnical     bool             `json:"billed_technical"`
	BilledProfessional  bool             `json:"billed_professional"`
	OrderedTechnical    bool             `json:"ordered_technical"`
	OrderedProfessional bool             `json:"ordered_professional"`
	Outcome             ComponentOutcome `json:"outcome"`
	IsComponentBilling  bool             `json:"is_component_billing"`
	ComponentType       string           `json:"component_type,omitempty"` // "technical" or "professional"
	Message             string           `json:"message,omitempty"`
}

// ComponentOutcome is one of the five defined states of the component
// modifier truth table.
type ComponentOutcome string

const (
	ComponentNotApplicable        ComponentOutcome = "not_applicable"
	ComponentTechnicalVsGlobal    ComponentOutcome = "technical_vs_global"
	ComponentProfessionalVsGlobal ComponentOutcome = "professional_vs_global"
	ComponentMismatch             ComponentOutcome = "component_mismatch"
	ComponentMatch                ComponentOutcome = "component_match"
)

// CodePair records a billed/ordered code pairing that failed to reconcile.
type CodePair struct {
	BilledCode  string `json:"billed_code"`
	OrderedCode string `json:"ordered_code"`
}

// ReconciliationResult aggregates per-line outcomes into a claim-level
// verdict with structured diagnostics.
type ReconciliationResult struct {
	Status          Status               `json:"status"`
	Messages        []string             `json:"messages"`
	UnmatchedCodes  []string             `json:"unmatched_codes,omitempty"`
	MismatchedPairs []CodePair           `json:"mismatched_pairs,omitempty"`
	Component       *ComponentAssessment `json:"component,omitempty"`
}

// RateLine is the priced view of one billed line.
type RateLine struct {
	Code        string `json:"code"`
	Modifier    string `json:"modifier,omitempty"`
	Units       int    `json:"units"`
	BilledCents int64  `json:"billed_cents"`
	RateCents   int64  `json:"rate_cents"`
	Covered     bool   `json:"covered"`
}

// RateReport aggregates line pricing for a claim.
type RateReport struct {
	Lines              []RateLine `json:"lines"`
	ExpectedTotalCents int64      `json:"expected_total_cents"`
	BilledTotalCents   int64      `json:"billed_total_cents"`
}

// ValidationDetail is the structured half of a validation result, suitable
// for rendering by any presentation layer.
type ValidationDetail struct {
	UnmatchedCodes     []string   `json:"unmatched_codes,omitempty"`
	MismatchedPairs    []CodePair `json:"mismatched_pairs,omitempty"`
	IsComponentBilling bool       `json:"is_component_billing"`
	ComponentType      string     `json:"component_type,omitempty"`
	RateReport         *RateReport `json:"rate_report,omitempty"`
	FailureReason      string     `json:"failure_reason,omitempty"`
}

// ValidationResult is the full outcome of validating one claim.
type ValidationResult struct {
	ClaimID  uuid.UUID        `json:"claim_id"`
	Status   Status           `json:"status"`
	Messages []string         `json:"messages"`
	Detail   ValidationDetail `json:"detail"`
}
