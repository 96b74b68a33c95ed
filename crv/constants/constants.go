package constants

// Component billing modifiers. TC marks the technical (equipment/facility)
// component of a split global service, 26 the professional (interpretation)
// component.
const ModifierTechnical = "TC"
const ModifierProfessional = "26"

const ComponentTypeTechnical = "technical"
const ComponentTypeProfessional = "professional"

// EquivalenceThreshold is the similarity ratio two codes must exceed for the
// fuzzy fallback to treat them as equivalent. Procedure codes are five
// characters, so this is deliberately conservative: it absorbs single-digit
// transcription errors without papering over genuinely different procedures.
const EquivalenceThreshold = 0.8

// TaxIDLength is the digit count of a valid provider tax identifier.
const TaxIDLength = 9

// DefaultDayWindow bounds the date-of-service range searched by the patient
// fuzzy matcher, in days on either side.
const DefaultDayWindow = 5

// MaxPatientCandidates caps fuzzy search fan-out on common names.
const MaxPatientCandidates = 100

// DefaultBatchWorkers bounds concurrent claim validations in a batch.
const DefaultBatchWorkers = 4

// This is set during compilation.
var Version = "latest"
