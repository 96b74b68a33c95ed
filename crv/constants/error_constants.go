package constants

const MsgNoBilledLines = "no billed line items present on claim"
const MsgNoOrderedLines = "no line items present on reference order"
const MsgAllLinesAncillary = "all billed line items are ancillary; nothing to reconcile"
const MsgUnmatchedCode = "billed code %s has no matching ordered line"
const MsgMismatchedPair = "billed code %s does not match ordered code %s in category %s"
const MsgEquivalentMatch = "billed code %s matched ordered code %s by clinical equivalence"
const MsgBundleExplained = "billed code %s is part of the %s bundle; core service already matched"
const MsgTechnicalVsGlobal = "technical component billed against a global order"
const MsgProfessionalVsGlobal = "professional component billed against a global order"
const MsgComponentMismatch = "component billed does not match the component ordered"
const MsgComponentMatch = "billed and ordered lines carry the same %s component"
const MsgAllLinesReconciled = "all billed line items reconciled against the reference order"
const MsgNoUsableNameTokens = "patient name yielded no usable tokens; refusing date-only search"
const MsgOrderNotFound = "reference order %s not found"
const MsgRateNotFound = "no contracted rate for provider %s, code %s, modifier %q"
const MsgValidationPanic = "claim validation failed unexpectedly: %v"
