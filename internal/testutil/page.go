// Package testutil builds synthetic recovered documents for tests.
package testutil

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Geometry of the synthetic monospace text layer.
const (
	GlyphWidth = 6.0
	LineHeight = 10.0
	LinePitch  = 14.0
)

// Seg is a run of text starting at X on the current line.
type Seg struct {
	X    float64
	Text string
}

func At(x float64, text string) Seg { return Seg{X: x, Text: text} }

// PageBuilder lays out words the way a PDF text layer would, one token per word.
type PageBuilder struct {
	number int
	y      float64
	conf   float64
	tokens []entity.Token
}

func NewPage(number int) *PageBuilder {
	return &PageBuilder{number: number, y: 40, conf: 1}
}

// Confidence sets the confidence of tokens added afterwards.
func (b *PageBuilder) Confidence(c float64) *PageBuilder {
	b.conf = c
	return b
}

// Line places the segments on the next line.
func (b *PageBuilder) Line(segs ...Seg) *PageBuilder {
	for _, s := range segs {
		x := s.X
		for _, w := range strings.Fields(s.Text) {
			width := float64(utf8.RuneCountInString(w)) * GlyphWidth
			b.tokens = append(b.tokens, entity.Token{
				Page:       b.number,
				Box:        entity.BBox{X: x, Y: b.y, Width: width, Height: LineHeight},
				Confidence: b.conf,
				Text:       w,
			})
			x += width + GlyphWidth
		}
	}
	b.y += LinePitch
	return b
}

// Blank skips n lines.
func (b *PageBuilder) Blank(n int) *PageBuilder {
	b.y += float64(n) * LinePitch
	return b
}

func (b *PageBuilder) Page() entity.Page {
	return entity.Page{
		Number: b.number,
		Width:  612,
		Height: 792,
		Method: "pdf-text",
		Tokens: append([]entity.Token(nil), b.tokens...),
	}
}

func Recovered(pages ...entity.Page) *entity.Recovered {
	return &entity.Recovered{Pages: pages, Method: "pdf-text"}
}

// PO1001Page is a one-page purchase order from ACME Retail Corp to Widget Works
// with two line items: SKU-A 3 x 10.00 and SKU-B 1 x 25.50.
func PO1001Page() *PageBuilder {
	return NewPage(1).
		Line(At(40, "ACME Retail Corp"), At(400, "PURCHASE ORDER")).
		Line(At(40, "100 Main Street, Springfield"), At(400, "PO#: 1001")).
		Line(At(40, "Phone: (555) 123-4567"), At(400, "Date: 2024-03-01")).
		Line(At(40, "buyer@acme.example"), At(400, "Due Date: 2024-03-15")).
		Blank(1).
		Line(At(40, "Vendor: Widget Works Ltd")).
		Line(At(40, "Ship To: ACME Warehouse")).
		Line(At(40, "200 Dock Road, Springfield")).
		Line(At(40, "Terms: Net 30")).
		Blank(1).
		Line(At(40, "Item"), At(120, "Description"), At(300, "Qty"), At(360, "Unit Price"), At(460, "Amount")).
		Line(At(40, "SKU-A"), At(120, "Widget"), At(300, "3"), At(360, "10.00"), At(460, "30.00")).
		Line(At(40, "SKU-B"), At(120, "Gadget"), At(300, "1"), At(360, "25.50"), At(460, "25.50")).
		Blank(1).
		Line(At(360, "Subtotal:"), At(460, "55.50")).
		Line(At(360, "Total:"), At(460, "55.50"))
}

func PO1001() *entity.Recovered {
	return Recovered(PO1001Page().Page())
}
