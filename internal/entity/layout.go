package entity

import (
	"math"
	"strings"
)

// Cell is a run of tokens on one line separated from its neighbours by a column gap.
type Cell struct {
	Tokens []*Token `json:"tokens"`
}

func (c Cell) Text() string {
	parts := make([]string, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func (c Cell) Box() BBox {
	var b BBox
	for _, t := range c.Tokens {
		b = b.Union(t.Box)
	}
	return b
}

// Confidence is the weakest token confidence in the cell.
func (c Cell) Confidence() float64 {
	return MinConfidence(c.Tokens)
}

// Line is one visual text line, cells ordered left to right.
type Line struct {
	Page  int    `json:"page"`
	Cells []Cell `json:"cells"`
}

func (l Line) Text() string {
	parts := make([]string, 0, len(l.Cells))
	for _, c := range l.Cells {
		parts = append(parts, c.Text())
	}
	return strings.Join(parts, " ")
}

func (l Line) Tokens() []*Token {
	var out []*Token
	for _, c := range l.Cells {
		out = append(out, c.Tokens...)
	}
	return out
}

func (l Line) Box() BBox {
	var b BBox
	for _, c := range l.Cells {
		b = b.Union(c.Box())
	}
	return b
}

// Region is a named zone of the document. Its tokens point into the recovered pages.
type Region struct {
	Name  string `json:"name"`
	Lines []Line `json:"lines"`
}

func (r Region) TokenCount() int {
	n := 0
	for _, l := range r.Lines {
		for _, c := range l.Cells {
			n += len(c.Tokens)
		}
	}
	return n
}

// Layout is the segmenter output. Ambiguous means no tabular region was found.
type Layout struct {
	Regions   []Region `json:"regions"`
	Ambiguous bool     `json:"ambiguous"`
}

// RegionsNamed returns the regions with the given name in document order.
func (l Layout) RegionsNamed(name string) []Region {
	var out []Region
	for _, r := range l.Regions {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// MinConfidence returns the lowest token confidence, 0 for no tokens.
func MinConfidence(tokens []*Token) float64 {
	if len(tokens) == 0 {
		return 0
	}
	m := math.Inf(1)
	for _, t := range tokens {
		m = math.Min(m, t.Confidence)
	}
	return m
}
