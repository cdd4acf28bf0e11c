// Package layout groups recovered tokens into lines, cells and named regions.
package layout

import (
	"log/slog"
	"math"
	"sort"
	"unicode"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Config holds the geometric tolerances of the segmenter. Distances are
// expressed as multiples of the page's median token height so the same
// values work for PDF points and scanned pixels.
type Config struct {
	LineTolerance   float64 // max centre offset for tokens sharing a line
	CellGapFactor   float64 // horizontal gap that starts a new cell
	MinColumns      int     // cells needed for a line to count as tabular
	MinRows         int     // tabular lines needed for a table
	ColumnTolerance float64 // edge distance that still counts as aligned
	MaxRowGapFactor float64 // multiple of the median line pitch that ends a table
}

func DefaultConfig() Config {
	return Config{
		LineTolerance:   0.5,
		CellGapFactor:   1.2,
		MinColumns:      3,
		MinRows:         2,
		ColumnTolerance: 1.5,
		MaxRowGapFactor: 2.5,
	}
}

type Segmenter struct {
	cfg    Config
	logger *slog.Logger
}

func NewSegmenter(cfg Config, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = def.LineTolerance
	}
	if cfg.CellGapFactor <= 0 {
		cfg.CellGapFactor = def.CellGapFactor
	}
	if cfg.MinColumns <= 1 {
		cfg.MinColumns = def.MinColumns
	}
	if cfg.MinRows <= 0 {
		cfg.MinRows = def.MinRows
	}
	if cfg.ColumnTolerance <= 0 {
		cfg.ColumnTolerance = def.ColumnTolerance
	}
	if cfg.MaxRowGapFactor <= 0 {
		cfg.MaxRowGapFactor = def.MaxRowGapFactor
	}
	return &Segmenter{cfg: cfg, logger: logger}
}

// line is a segmented line plus the geometry used for table detection.
type line struct {
	entity.Line
	centerY float64
	unit    float64 // median token height of the page
}

type run struct {
	start, end int // [start, end) over lines
	tokens     int
}

// Segment partitions the recovered tokens into regions. The largest table by
// token count becomes line_items, any other table is kept as footer, and the
// remaining lines above and below the table become header and totals. With no
// table the layout is ambiguous and every line lands in header.
func (s *Segmenter) Segment(rec *entity.Recovered) entity.Layout {
	pages := make([]*entity.Page, 0, len(rec.Pages))
	for i := range rec.Pages {
		pages = append(pages, &rec.Pages[i])
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	var lines []line
	for _, p := range pages {
		lines = append(lines, s.pageLines(p)...)
	}
	if len(lines) == 0 {
		return entity.Layout{}
	}

	runs := s.findRuns(lines, linePitches(lines))
	if len(runs) == 0 {
		s.logger.Debug("layout.ambiguous", "lines", len(lines))
		return entity.Layout{Regions: group(lines, func(int) string { return constants.RegionHeader }), Ambiguous: true}
	}

	best := 0
	for i, r := range runs {
		if r.tokens > runs[best].tokens {
			best = i
		}
	}
	owner := make([]int, len(lines))
	for i := range owner {
		owner[i] = -1
	}
	for k, r := range runs {
		for i := r.start; i < r.end; i++ {
			owner[i] = k
		}
	}
	table := runs[best]
	layout := entity.Layout{Regions: group(lines, func(i int) string {
		switch {
		case owner[i] == best:
			return constants.RegionLineItems
		case owner[i] >= 0:
			return constants.RegionFooter
		case i < table.start:
			return constants.RegionHeader
		default:
			return constants.RegionTotals
		}
	})}
	s.logger.Debug("layout.segmented", "lines", len(lines), "tables", len(runs), "regions", len(layout.Regions))
	return layout
}

// pageLines clusters a page's tokens into lines and splits lines into cells.
func (s *Segmenter) pageLines(page *entity.Page) []line {
	var toks []*entity.Token
	for i := range page.Tokens {
		if hasAlnum(page.Tokens[i].Text) {
			toks = append(toks, &page.Tokens[i])
		}
	}
	if len(toks) == 0 {
		return nil
	}
	unit := medianHeight(toks)
	sort.SliceStable(toks, func(i, j int) bool {
		a, b := toks[i].Box, toks[j].Box
		if a.CenterY() != b.CenterY() {
			return a.CenterY() < b.CenterY()
		}
		return a.X < b.X
	})

	var groups [][]*entity.Token
	var mean float64
	for _, t := range toks {
		n := len(groups)
		if n > 0 && math.Abs(t.Box.CenterY()-mean) <= s.cfg.LineTolerance*unit {
			groups[n-1] = append(groups[n-1], t)
			mean += (t.Box.CenterY() - mean) / float64(len(groups[n-1]))
			continue
		}
		groups = append(groups, []*entity.Token{t})
		mean = t.Box.CenterY()
	}

	out := make([]line, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].Box.X != g[j].Box.X {
				return g[i].Box.X < g[j].Box.X
			}
			return g[i].Box.Y < g[j].Box.Y
		})
		var cells []entity.Cell
		cur := entity.Cell{Tokens: []*entity.Token{g[0]}}
		for _, t := range g[1:] {
			prev := cur.Tokens[len(cur.Tokens)-1]
			if t.Box.X-prev.Box.Right() > s.cfg.CellGapFactor*unit {
				cells = append(cells, cur)
				cur = entity.Cell{}
			}
			cur.Tokens = append(cur.Tokens, t)
		}
		cells = append(cells, cur)

		l := line{Line: entity.Line{Page: page.Number, Cells: cells}, unit: unit}
		l.centerY = l.Box().CenterY()
		out = append(out, l)
	}
	return out
}

// findRuns returns the tabular runs: contiguous tabular lines whose cells line
// up with the run's column anchors. Lines with fewer cells are carried inside
// a run when every cell aligns, so wrapped descriptions stay in the table.
func (s *Segmenter) findRuns(lines []line, pitch map[int]float64) []run {
	var runs []run
	for i := 0; i < len(lines); {
		if !s.tabular(lines[i]) {
			i++
			continue
		}
		var a anchors
		a.add(lines[i])
		last, rows := i, 1
		for j := i + 1; j < len(lines); j++ {
			cur, prev := lines[j], lines[j-1]
			if cur.Page == prev.Page && cur.centerY-prev.centerY > s.cfg.MaxRowGapFactor*pitch[cur.Page] {
				break
			}
			aligned := a.aligned(cur, s.cfg.ColumnTolerance*cur.unit)
			if s.tabular(cur) {
				if aligned < 2 {
					break
				}
				a.add(cur)
				last, rows = j, rows+1
				continue
			}
			if aligned < len(cur.Cells) || cur.Page != lines[last].Page {
				break
			}
		}
		if rows < s.cfg.MinRows {
			i++
			continue
		}
		r := run{start: i, end: last + 1}
		for k := r.start; k < r.end; k++ {
			for _, c := range lines[k].Cells {
				r.tokens += len(c.Tokens)
			}
		}
		runs = append(runs, r)
		i = r.end
	}
	return runs
}

func (s *Segmenter) tabular(l line) bool {
	return len(l.Cells) >= s.cfg.MinColumns
}

// anchors are the left, right and centre edges of every cell seen in a run.
type anchors struct {
	left, right, center []float64
}

func (a *anchors) add(l line) {
	for _, c := range l.Cells {
		b := c.Box()
		a.left = append(a.left, b.X)
		a.right = append(a.right, b.Right())
		a.center = append(a.center, b.CenterX())
	}
}

func (a *anchors) aligned(l line, tol float64) int {
	n := 0
	for _, c := range l.Cells {
		b := c.Box()
		if near(a.left, b.X, tol) || near(a.right, b.Right(), tol) || near(a.center, b.CenterX(), tol) {
			n++
		}
	}
	return n
}

func near(edges []float64, v, tol float64) bool {
	for _, e := range edges {
		if math.Abs(e-v) <= tol {
			return true
		}
	}
	return false
}

// group folds consecutive lines with the same label into regions.
func group(lines []line, label func(int) string) []entity.Region {
	var regions []entity.Region
	for i, l := range lines {
		name := label(i)
		if n := len(regions); n > 0 && regions[n-1].Name == name {
			regions[n-1].Lines = append(regions[n-1].Lines, l.Line)
			continue
		}
		regions = append(regions, entity.Region{Name: name, Lines: []entity.Line{l.Line}})
	}
	return regions
}

// linePitches returns the median vertical distance between consecutive lines per page.
func linePitches(lines []line) map[int]float64 {
	diffs := map[int][]float64{}
	for i := 1; i < len(lines); i++ {
		if lines[i].Page == lines[i-1].Page {
			if d := lines[i].centerY - lines[i-1].centerY; d > 0 {
				diffs[lines[i].Page] = append(diffs[lines[i].Page], d)
			}
		}
	}
	out := map[int]float64{}
	for _, l := range lines {
		if _, ok := out[l.Page]; ok {
			continue
		}
		d := diffs[l.Page]
		if len(d) == 0 {
			out[l.Page] = 2 * l.unit
			continue
		}
		sort.Float64s(d)
		out[l.Page] = d[len(d)/2]
	}
	return out
}

func medianHeight(toks []*entity.Token) float64 {
	hs := make([]float64, 0, len(toks))
	for _, t := range toks {
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

func hasAlnum(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
