package entity

import (
	"math"

	"github.com/joseph-ayodele/po2so/internal/common"
)

// BBox is an axis-aligned box in page space, origin top-left.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b BBox) Right() float64   { return b.X + b.Width }
func (b BBox) Bottom() float64  { return b.Y + b.Height }
func (b BBox) CenterX() float64 { return b.X + b.Width/2 }
func (b BBox) CenterY() float64 { return b.Y + b.Height/2 }
func (b BBox) IsEmpty() bool    { return b.Width <= 0 || b.Height <= 0 }

// Union returns the smallest box covering b and o. Empty boxes are ignored.
func (b BBox) Union(o BBox) BBox {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	x0, y0 := math.Min(b.X, o.X), math.Min(b.Y, o.Y)
	x1, y1 := math.Max(b.Right(), o.Right()), math.Max(b.Bottom(), o.Bottom())
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// HorizontalOverlap returns the width shared by b and o.
func (b BBox) HorizontalOverlap(o BBox) float64 {
	return math.Max(0, math.Min(b.Right(), o.Right())-math.Max(b.X, o.X))
}

// Token is one recognized text fragment. It is never modified after recovery.
type Token struct {
	Page       int     `json:"page"`
	Box        BBox    `json:"box"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
}

// Page holds the tokens of one page in reading order.
type Page struct {
	Number   int     `json:"number"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"` // degrees applied before recognition
	Method   string  `json:"method"`   // pdf-text | pdf-ocr | image-ocr | spreadsheet
	Tokens   []Token `json:"tokens"`
}

// Recovered is the Text Recovery output for one document.
type Recovered struct {
	Pages    []Page           `json:"pages"`
	Method   string           `json:"method"`
	Warnings []common.Warning `json:"warnings,omitempty"`
}

// TokenCount sums tokens over all pages.
func (r *Recovered) TokenCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Tokens)
	}
	return n
}
