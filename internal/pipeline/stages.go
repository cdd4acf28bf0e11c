package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/layout"
	"github.com/joseph-ayodele/po2so/internal/mapping"
	"github.com/joseph-ayodele/po2so/internal/ocr"
)

// RecoverStage turns document bytes into positioned tokens.
type RecoverStage struct {
	Recovery ocr.TextRecovery
	Logger   *slog.Logger
}

func NewRecoverStage(recovery ocr.TextRecovery, logger *slog.Logger) *RecoverStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoverStage{Recovery: recovery, Logger: logger}
}

func (s *RecoverStage) Run(ctx context.Context, doc *entity.RawDocument) (*entity.Recovered, error) {
	rec, err := s.Recovery.Recover(ctx, doc)
	if err != nil {
		return nil, err
	}
	common.LoggerWithContext(ctx, s.Logger).Debug("pipeline.recover.ok",
		"pages", len(rec.Pages),
		"tokens", rec.TokenCount(),
		"method", rec.Method,
		"warnings", len(rec.Warnings),
	)
	return rec, nil
}

// ExtractStage segments the recovered tokens and extracts the purchase order fields.
type ExtractStage struct {
	Segmenter *layout.Segmenter
	Extractor extract.FieldExtractor
	Logger    *slog.Logger
}

func NewExtractStage(segmenter *layout.Segmenter, extractor extract.FieldExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Segmenter: segmenter, Extractor: extractor, Logger: logger}
}

// Run returns a record carrying the document identity and the recovery warnings.
func (s *ExtractStage) Run(ctx context.Context, doc *entity.RawDocument, rec *entity.Recovered) (*entity.PurchaseOrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapError(err, "extract")
	}
	lay := s.Segmenter.Segment(rec)
	po, err := s.Extractor.Extract(lay)
	if err != nil {
		return nil, err
	}
	po.DocumentID = doc.ID
	po.Filename = doc.Filename
	po.Warnings = append(append([]common.Warning(nil), rec.Warnings...), po.Warnings...)

	common.LoggerWithContext(ctx, s.Logger).Debug("pipeline.extract.ok",
		"regions", len(lay.Regions),
		"fields", len(po.Fields),
		"line_items", len(po.LineItems),
		"ambiguous", lay.Ambiguous,
	)
	return po, nil
}

// MapStage builds the sales order from the purchase order record.
type MapStage struct {
	Mapper *mapping.Mapper
	Logger *slog.Logger
}

func NewMapStage(mapper *mapping.Mapper, logger *slog.Logger) *MapStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapStage{Mapper: mapper, Logger: logger}
}

func (s *MapStage) Run(ctx context.Context, po *entity.PurchaseOrderRecord, seq int) (*entity.SalesOrderRecord, []common.Warning, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, common.WrapError(err, "map")
	}
	so, warnings, err := s.Mapper.Map(po, seq)
	if err != nil {
		return nil, warnings, err
	}
	common.LoggerWithContext(ctx, s.Logger).Debug("pipeline.map.ok",
		"so_number", so.SONumber,
		"lines", len(so.Lines),
		"warnings", len(warnings),
	)
	return so, warnings, nil
}
