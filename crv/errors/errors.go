package errors

import "fmt"

// EntityNotFoundError is returned when a reference order cannot be located
// for the identifier on the claim.
type EntityNotFoundError struct {
	Err     error
	OrderID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("no reference order found for id %s: %s", e.OrderID, e.Err)
}

// ValidationError covers malformed claim or order documents.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation Error. Msg: %s, Err: %s", e.Msg, e.Err)
}

// ConfigurationGapError marks a non-fatal hole in reference data, e.g. a code
// with no category mapping. Matching degrades to exact/fuzzy-only; nothing
// should treat this as a hard failure.
type ConfigurationGapError struct {
	Code string
	Msg  string
}

func (e *ConfigurationGapError) Error() string {
	return fmt.Sprintf("configuration gap for code %s: %s", e.Code, e.Msg)
}

// RateNotFoundError is returned by the rate validator when neither a
// line-item nor a category rate covers a code.
type RateNotFoundError struct {
	ProviderTaxID string
	Code          string
	Modifier      string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no rate found for provider %s, code %s, modifier %q",
		e.ProviderTaxID, e.Code, e.Modifier)
}

// UnexpectedFailureError wraps anything else (reference-table access failures,
// panics recovered at the reconciliation boundary). Surfaced to callers as an
// ERROR status so infrastructure failures are never confused with genuine
// clinical mismatches.
type UnexpectedFailureError struct {
	Err     error
	ClaimID string
}

func (e *UnexpectedFailureError) Error() string {
	return fmt.Sprintf("unexpected failure validating claim %s: %s", e.ClaimID, e.Err)
}
