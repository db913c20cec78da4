package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusExtracted   DocumentStatus = "EXTRACTED"    // all checks passed
	DocumentStatusNeedsReview DocumentStatus = "NEEDS_REVIEW" // output failed schema validation
)

// Envelope stages reported to callers.
const (
	StageComplete = "complete"
	StageError    = "error"
)

// ProcessedWith names the extraction method in response metadata.
const ProcessedWith = "regex-cascade"
