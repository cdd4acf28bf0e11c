package extract

import "github.com/joseph-ayodele/po2so/internal/entity"

// FieldExtractor turns a segmented layout into a purchase order record.
type FieldExtractor interface {
	Extract(layout entity.Layout) (*entity.PurchaseOrderRecord, error)
}

// Options tune coercion and review flagging.
type Options struct {
	ReviewThreshold  float64
	DecimalSeparator string // "." or ","
	DayFirst         bool
}

func DefaultOptions() Options {
	return Options{ReviewThreshold: 0.60, DecimalSeparator: "."}
}

var _ FieldExtractor = (*Extractor)(nil)
