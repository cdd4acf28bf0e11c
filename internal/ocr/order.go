package ocr

import (
	"math"
	"sort"

	"github.com/joseph-ayodele/po2so/internal/entity"
)

// sortReadingOrder orders tokens top-to-bottom in line bands, then left-to-right.
// A token joins the current band when its vertical centre lies within half a
// median token height of the band's first token.
func sortReadingOrder(tokens []entity.Token) {
	if len(tokens) < 2 {
		return
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i].Box, tokens[j].Box
		if a.CenterY() != b.CenterY() {
			return a.CenterY() < b.CenterY()
		}
		return a.X < b.X
	})

	tol := medianHeight(tokens) / 2
	band := make([]int, len(tokens))
	anchor := tokens[0].Box.CenterY()
	n := 0
	for i := range tokens {
		if math.Abs(tokens[i].Box.CenterY()-anchor) > tol {
			n++
			anchor = tokens[i].Box.CenterY()
		}
		band[i] = n
	}

	idx := make([]int, len(tokens))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if band[a] != band[b] {
			return band[a] < band[b]
		}
		if tokens[a].Box.X != tokens[b].Box.X {
			return tokens[a].Box.X < tokens[b].Box.X
		}
		return tokens[a].Box.Y < tokens[b].Box.Y
	})
	sorted := make([]entity.Token, len(tokens))
	for i, k := range idx {
		sorted[i] = tokens[k]
	}
	copy(tokens, sorted)
}

func medianHeight(tokens []entity.Token) float64 {
	hs := make([]float64, 0, len(tokens))
	for _, t := range tokens {
		if t.Box.Height > 0 {
			hs = append(hs, t.Box.Height)
		}
	}
	if len(hs) == 0 {
		return 1
	}
	sort.Float64s(hs)
	return hs[len(hs)/2]
}
