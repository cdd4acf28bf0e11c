package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Recovery methods recorded on pages and documents.
const (
	MethodPDFText     = "pdf-text"
	MethodPDFOCR      = "pdf-ocr"
	MethodImageOCR    = "image-ocr"
	MethodSpreadsheet = "spreadsheet"
	MethodWord        = "docx"
	MethodMixed       = "mixed"
)

// TextRecovery turns raw document bytes into positioned tokens.
type TextRecovery interface {
	Recover(ctx context.Context, doc *entity.RawDocument) (*entity.Recovered, error)
}

// Extractor is the default TextRecovery. The engine is only consulted for
// raster input and for PDF pages without a usable text layer.
type Extractor struct {
	cfg    common.OCRConfig
	engine Engine
	logger *slog.Logger

	openRenderer func(data []byte) (pageRenderer, error)
}

func NewExtractor(cfg common.OCRConfig, engine Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.OrientationThreshold <= 0 {
		cfg.OrientationThreshold = 0.45
	}
	return &Extractor{cfg: cfg, engine: engine, logger: logger, openRenderer: openFitz}
}

// Recover picks a strategy based on the sniffed document format.
func (e *Extractor) Recover(ctx context.Context, doc *entity.RawDocument) (*entity.Recovered, error) {
	start := time.Now()
	logger := common.LoggerWithContext(ctx, e.logger).With("document_id", doc.ID, "filename", doc.Filename)
	logger.Debug("ocr.recover.start", "format", doc.Format, "mime", doc.MIME)

	var (
		rec *entity.Recovered
		err error
	)
	switch doc.Format {
	case constants.PDF:
		rec, err = e.recoverPDF(ctx, doc, logger)
	case constants.IMAGE:
		rec, err = e.recoverImage(ctx, doc)
	case constants.SPREADSHEET:
		rec, err = e.recoverSpreadsheet(doc)
	case constants.WORD:
		rec, err = e.recoverWord(doc)
	default:
		err = common.UnsupportedFormatError(fmt.Sprintf("unsupported format %q", doc.Format))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = common.UnreadableDocumentError("text recovery timed out", err)
		}
		logger.Error("ocr.recover.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	for _, p := range rec.Pages {
		if len(p.Tokens) == 0 {
			rec.Warnings = append(rec.Warnings, common.EmptyPageWarning(p.Number))
		}
	}
	if rec.TokenCount() == 0 {
		err := common.UnreadableDocumentError("no text recovered from any page", nil)
		logger.Error("ocr.recover.failed", "error", err, "pages", len(rec.Pages))
		return nil, err
	}
	rec.Method = documentMethod(rec.Pages)

	logger.Info("ocr.recover.ok",
		"method", rec.Method,
		"pages", len(rec.Pages),
		"tokens", rec.TokenCount(),
		"warnings", len(rec.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func documentMethod(pages []entity.Page) string {
	method := ""
	for _, p := range pages {
		switch {
		case method == "":
			method = p.Method
		case method != p.Method:
			return MethodMixed
		}
	}
	return method
}

func (e *Extractor) requireEngine() error {
	if e.engine == nil {
		return common.UnreadableDocumentError("document needs OCR but no engine is configured", nil)
	}
	return nil
}
