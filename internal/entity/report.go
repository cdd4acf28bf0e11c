package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
)

// ConversionReport summarizes one document's trip through the pipeline.
type ConversionReport struct {
	DocumentID      uuid.UUID                `json:"document_id"`
	Filename        string                   `json:"filename"`
	Status          constants.DocumentStatus `json:"status"`
	Resolved        int                      `json:"resolved"`
	Flagged         int                      `json:"flagged"`
	FlaggedFields   []string                 `json:"flagged_fields,omitempty"`
	Warnings        []common.Warning         `json:"warnings,omitempty"`
	LayoutAmbiguous bool                     `json:"layout_ambiguous"`
	Method          string                   `json:"method,omitempty"`
	Duration        time.Duration            `json:"duration"`
	Error           string                   `json:"error,omitempty"`
	SalesOrder      *SalesOrderRecord        `json:"sales_order,omitempty"`
}
