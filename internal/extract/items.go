package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// headerScanLines is how far into a table the column header row may sit.
const headerScanLines = 3

var reQuantityUnit = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)\s*([A-Za-z]{1,6})\.?\s*$`)

type column struct {
	rule *Rule
	box  entity.BBox
}

// row holds the tokens assigned to each item field on one line.
type row map[string][]*entity.Token

func (r row) has(fields ...string) bool {
	for _, f := range fields {
		if len(r[f]) > 0 {
			return true
		}
	}
	return false
}

func (e *Extractor) lineItems(regions []entity.Region) []entity.LineItem {
	var lines []entity.Line
	for _, r := range regions {
		lines = append(lines, r.Lines...)
	}
	if len(lines) == 0 {
		return nil
	}

	cols, headerAt := e.detectColumns(lines)
	factor := 1.0
	if cols == nil {
		factor = inferredFactor
	}

	var items []entity.LineItem
	var rows []row
	for i, line := range lines {
		if cols != nil && i <= headerAt {
			continue
		}
		var r row
		if cols != nil {
			r = assignColumns(line, cols)
		} else {
			r = e.inferColumns(line)
		}
		numeric := r.has(constants.ItemQuantity, constants.ItemUnitPrice, constants.ItemAmount)
		switch {
		case numeric:
			rows = append(rows, r)
		case len(rows) > 0 && r.has(constants.ItemDescription, constants.ItemSKU):
			last := rows[len(rows)-1]
			last[constants.ItemDescription] = append(last[constants.ItemDescription], r[constants.ItemSKU]...)
			last[constants.ItemDescription] = append(last[constants.ItemDescription], r[constants.ItemDescription]...)
		}
	}

	for i, r := range rows {
		items = append(items, e.buildItem(i+1, r, factor))
	}
	return items
}

// detectColumns looks for a column header row among the first lines of the
// table. It needs cells naming at least two distinct item fields.
func (e *Extractor) detectColumns(lines []entity.Line) ([]column, int) {
	rules := e.rules.positional()
	for i := 0; i < len(lines) && i < headerScanLines; i++ {
		var cols []column
		used := make(map[string]bool)
		for _, cell := range lines[i].Cells {
			rule := matchHeader(rules, cell.Text())
			if rule == nil || used[rule.Field] {
				continue
			}
			used[rule.Field] = true
			cols = append(cols, column{rule: rule, box: cell.Box()})
		}
		if len(cols) >= 2 {
			e.logger.Debug("extract.items.header", "line", i, "columns", len(cols))
			return cols, i
		}
	}
	return nil, -1
}

// matchHeader picks the rule whose keyword fits the header cell best: an
// exact match beats a contained phrase, longer phrases beat shorter ones.
func matchHeader(rules []*Rule, text string) *Rule {
	norm := normalizeHeader(text)
	if norm == "" {
		return nil
	}
	padded := " " + norm + " "
	var best *Rule
	bestScore := 0
	for _, r := range rules {
		for _, kw := range r.Keywords {
			score := 0
			switch {
			case norm == kw:
				score = 1000 + len(kw)
			case strings.Contains(padded, " "+kw+" "):
				score = len(kw)
			}
			if score > bestScore {
				best, bestScore = r, score
			}
		}
	}
	return best
}

// assignColumns puts each cell under the header it overlaps most, or the
// nearest header when it overlaps none.
func assignColumns(line entity.Line, cols []column) row {
	r := make(row)
	for _, cell := range line.Cells {
		box := cell.Box()
		best, bestOverlap := -1, 0.0
		for i, c := range cols {
			if o := box.HorizontalOverlap(c.box); o > bestOverlap {
				best, bestOverlap = i, o
			}
		}
		if best < 0 {
			bestDist := math.Inf(1)
			for i, c := range cols {
				if d := math.Abs(box.CenterX() - c.box.CenterX()); d < bestDist {
					best, bestDist = i, d
				}
			}
		}
		field := cols[best].rule.Field
		r[field] = append(r[field], cell.Tokens...)
	}
	return r
}

// inferColumns reads a headerless row: trailing numeric cells are amount,
// unit price and quantity from the right; leading text cells are sku and
// description.
func (e *Extractor) inferColumns(line entity.Line) row {
	r := make(row)
	cells := line.Cells
	var numeric []entity.Cell
	for len(cells) > 0 && len(numeric) < 3 {
		last := cells[len(cells)-1]
		if !e.isNumeric(last.Text()) {
			break
		}
		numeric = append(numeric, last)
		cells = cells[:len(cells)-1]
	}
	var order []string
	switch len(numeric) {
	case 3:
		order = []string{constants.ItemAmount, constants.ItemUnitPrice, constants.ItemQuantity}
	case 2:
		order = []string{constants.ItemAmount, constants.ItemQuantity}
	case 1:
		order = []string{constants.ItemAmount}
	}
	for i, cell := range numeric {
		r[order[i]] = cell.Tokens
	}
	switch {
	case len(cells) >= 2:
		r[constants.ItemSKU] = cells[0].Tokens
		for _, c := range cells[1:] {
			r[constants.ItemDescription] = append(r[constants.ItemDescription], c.Tokens...)
		}
	case len(cells) == 1:
		r[constants.ItemDescription] = cells[0].Tokens
	}
	return r
}

func (e *Extractor) isNumeric(text string) bool {
	if m := reQuantityUnit.FindStringSubmatch(text); m != nil {
		_, known := constants.CanonicalizeUOM(m[2])
		return known
	}
	if !strings.ContainsAny(text, "0123456789") {
		return false
	}
	_, err := ParseDecimal(text, e.opts.DecimalSeparator)
	return err == nil
}

func (e *Extractor) buildItem(number int, r row, factor float64) entity.LineItem {
	item := entity.LineItem{Number: number, Fields: make(map[string]entity.ExtractedField)}
	splitQuantityUnit(r)
	for _, rule := range e.rules.positional() {
		tokens := r[rule.Field]
		if len(tokens) == 0 {
			continue
		}
		if _, done := item.Fields[rule.Field]; done {
			continue
		}
		raw := joinTokens(tokens)
		if m := reQuantityUnit.FindStringSubmatch(raw); m != nil {
			switch rule.Field {
			case constants.ItemQuantity:
				raw = m[1]
			case constants.ItemUOM:
				raw = m[2]
			}
		}
		f := e.newField(rule, constants.RegionLineItems, raw, tokens, factor)
		checkItemValue(&f)
		item.Fields[rule.Field] = f
	}
	return item
}

// splitQuantityUnit moves the unit of a "3 ea" quantity into the uom column
// when the table has none of its own.
func splitQuantityUnit(r row) {
	qty := r[constants.ItemQuantity]
	if len(qty) == 0 || len(r[constants.ItemUOM]) > 0 {
		return
	}
	if reQuantityUnit.FindStringSubmatch(joinTokens(qty)) == nil {
		return
	}
	if len(qty) > 1 {
		r[constants.ItemQuantity] = qty[:len(qty)-1]
		r[constants.ItemUOM] = qty[len(qty)-1:]
		return
	}
	// a single token such as "3ea" feeds both fields
	r[constants.ItemUOM] = qty
}

func checkItemValue(f *entity.ExtractedField) {
	if f.Invalid || f.Decimal == nil {
		return
	}
	switch f.Name {
	case constants.ItemQuantity:
		if f.Decimal.Sign() <= 0 {
			f.Invalid, f.NeedsReview = true, true
		}
	case constants.ItemUnitPrice:
		if f.Decimal.Sign() < 0 {
			f.Invalid, f.NeedsReview = true, true
		}
	}
}

func joinTokens(tokens []*entity.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}
