package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/layout"
	"github.com/joseph-ayodele/po2so/internal/mapping"
	"github.com/joseph-ayodele/po2so/internal/ocr"
)

// Result is the outcome of one document. Report is always set; Err is set
// when the document failed and carries one of the common pipeline errors.
type Result struct {
	Report        *entity.ConversionReport
	PurchaseOrder *entity.PurchaseOrderRecord
	Err           error
}

// Processor runs a single document through recovery, extraction and mapping.
type Processor struct {
	Logger  *slog.Logger
	Recover *RecoverStage
	Extract *ExtractStage
	Map     *MapStage
}

func NewProcessor(
	recovery ocr.TextRecovery,
	segmenter *layout.Segmenter,
	extractor extract.FieldExtractor,
	mapper *mapping.Mapper,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:  logger,
		Recover: NewRecoverStage(recovery, logger),
		Extract: NewExtractStage(segmenter, extractor, logger),
		Map:     NewMapStage(mapper, logger),
	}
}

// Process converts doc into a sales order numbered by seq. It never panics on
// bad input; every failure is reported through Result.Err.
func (p *Processor) Process(ctx context.Context, doc *entity.RawDocument, seq int) Result {
	start := time.Now()
	ctx = common.WithDocumentID(ctx, doc.ID.String())
	logger := common.LoggerWithContext(ctx, p.Logger).With("filename", doc.Filename)

	report := &entity.ConversionReport{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
	}
	res := Result{Report: report}
	fail := func(stage string, err error) Result {
		if common.ErrorCode(err) == "" && errors.Is(err, context.DeadlineExceeded) {
			err = common.UnreadableDocumentError(stage+" timed out", err)
		}
		report.Status = constants.StatusFailed
		report.Error = err.Error()
		report.Duration = time.Since(start)
		res.Err = err
		logger.Error("pipeline.document.failed",
			"stage", stage,
			"code", common.ErrorCode(err),
			"error", err,
			"elapsed_ms", report.Duration.Milliseconds(),
		)
		return res
	}

	rec, err := p.Recover.Run(ctx, doc)
	if err != nil {
		return fail("recover", err)
	}
	report.Method = rec.Method
	report.Warnings = rec.Warnings

	po, err := p.Extract.Run(ctx, doc, rec)
	if err != nil {
		return fail("extract", err)
	}
	res.PurchaseOrder = po
	report.LayoutAmbiguous = po.LayoutAmbiguous
	report.Warnings = po.Warnings

	so, warnings, err := p.Map.Run(ctx, po, seq)
	report.Warnings = append(report.Warnings, warnings...)
	if err != nil {
		report.FlaggedFields = po.FlaggedFields()
		report.Flagged = len(report.FlaggedFields)
		report.Resolved = po.FieldCount() - report.Flagged
		return fail("map", err)
	}

	report.SalesOrder = so
	report.FlaggedFields = so.FlaggedFields()
	report.Flagged = len(report.FlaggedFields)
	report.Resolved = so.FieldCount() - report.Flagged
	report.Status = constants.StatusConverted
	if report.Flagged > 0 {
		report.Status = constants.StatusNeedsReview
	}
	report.Duration = time.Since(start)

	logger.Info("pipeline.document.ok",
		"status", report.Status,
		"so_number", so.SONumber,
		"resolved", report.Resolved,
		"flagged", report.Flagged,
		"warnings", len(report.Warnings),
		"elapsed_ms", report.Duration.Milliseconds(),
	)
	return res
}
