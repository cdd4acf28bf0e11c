package entity

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po2so/internal/common"
)

// FieldType is the declared value type of an extraction rule.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDate    FieldType = "date"
	TypeDecimal FieldType = "decimal"
	TypeInteger FieldType = "integer"
)

// DateLayout is the canonical rendering of extracted dates.
const DateLayout = "2006-01-02"

// ExtractedField is one resolved value with its provenance. Raw always holds
// the source text; the typed value is only meaningful when Invalid is false.
type ExtractedField struct {
	Name        string       `json:"name"`
	Type        FieldType    `json:"type"`
	Raw         string       `json:"raw"`
	Text        string       `json:"text,omitempty"`
	Decimal     *apd.Decimal `json:"decimal,omitempty"`
	Int         int64        `json:"int,omitempty"`
	Date        time.Time    `json:"date,omitempty"`
	Confidence  float64      `json:"confidence"`
	Region      string       `json:"region,omitempty"`
	Rule        string       `json:"rule,omitempty"`
	Tokens      []*Token     `json:"-"`
	Invalid     bool         `json:"invalid,omitempty"`
	NeedsReview bool         `json:"needs_review,omitempty"`
}

// Typed reports whether the field holds a usable typed value.
func (f ExtractedField) Typed() bool {
	return f.Name != "" && !f.Invalid
}

// Value renders the typed value canonically, or the raw text when the field is invalid.
func (f ExtractedField) Value() string {
	if f.Invalid {
		return f.Raw
	}
	switch f.Type {
	case TypeDecimal:
		if f.Decimal == nil {
			return f.Raw
		}
		return f.Decimal.Text('f')
	case TypeInteger:
		return strconv.FormatInt(f.Int, 10)
	case TypeDate:
		if f.Date.IsZero() {
			return f.Raw
		}
		return f.Date.Format(DateLayout)
	default:
		return f.Text
	}
}

// Display is what an exporter writes: the raw string for flagged fields.
func (f ExtractedField) Display() string {
	if f.NeedsReview {
		return f.Raw
	}
	return f.Value()
}

// LineItem holds the fields of one table row, keyed by item field name.
type LineItem struct {
	Number int                       `json:"number"`
	Fields map[string]ExtractedField `json:"fields"`
}

func (li LineItem) Get(name string) (ExtractedField, bool) {
	f, ok := li.Fields[name]
	return f, ok
}

// PurchaseOrderRecord is the Field Extractor output.
type PurchaseOrderRecord struct {
	DocumentID      uuid.UUID                 `json:"document_id"`
	Filename        string                    `json:"filename"`
	Fields          map[string]ExtractedField `json:"fields"`
	LineItems       []LineItem                `json:"line_items"`
	LayoutAmbiguous bool                      `json:"layout_ambiguous"`
	Warnings        []common.Warning          `json:"warnings,omitempty"`
}

func (r *PurchaseOrderRecord) Get(name string) (ExtractedField, bool) {
	f, ok := r.Fields[name]
	return f, ok
}

// FlaggedFields lists every field needing review, header fields first, both sorted.
func (r *PurchaseOrderRecord) FlaggedFields() []string {
	var header []string
	for name, f := range r.Fields {
		if f.NeedsReview {
			header = append(header, name)
		}
	}
	sort.Strings(header)
	out := header
	for _, li := range r.LineItems {
		var names []string
		for name, f := range li.Fields {
			if f.NeedsReview {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, ItemFieldKey(li.Number, name))
		}
	}
	return out
}

// FieldCount counts header and item fields.
func (r *PurchaseOrderRecord) FieldCount() int {
	n := len(r.Fields)
	for _, li := range r.LineItems {
		n += len(li.Fields)
	}
	return n
}

// ItemFieldKey names an item field in reports, e.g. "line[2].quantity".
func ItemFieldKey(line int, name string) string {
	return fmt.Sprintf("line[%d].%s", line, name)
}
