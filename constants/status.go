package constants

// DocumentStatus is the outcome of one pipeline run, reported per document.
type DocumentStatus string

const (
	StatusConverted   DocumentStatus = "CONVERTED"    // every field resolved
	StatusNeedsReview DocumentStatus = "NEEDS_REVIEW" // converted, some fields flagged
	StatusFailed      DocumentStatus = "FAILED"       // terminal failure for this document
)
