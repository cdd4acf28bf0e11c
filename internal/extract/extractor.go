package extract

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Extractor applies a RuleSet to a layout.
type Extractor struct {
	rules  *RuleSet
	opts   Options
	logger *slog.Logger
}

func NewExtractor(rules *RuleSet, opts Options, logger *slog.Logger) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	if opts.DecimalSeparator == "" {
		opts.DecimalSeparator = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{rules: rules, opts: opts, logger: logger}
}

// Extract resolves header fields and line items. A layout without regions
// fails with ExtractionFailedError; every other outcome returns a record,
// flagging what could not be read cleanly.
func (e *Extractor) Extract(layout entity.Layout) (*entity.PurchaseOrderRecord, error) {
	if len(layout.Regions) == 0 {
		return nil, common.ExtractionFailedError("layout has no regions")
	}

	fields, warnings := e.headerFields(layout)
	rec := &entity.PurchaseOrderRecord{
		Fields:          fields,
		LayoutAmbiguous: layout.Ambiguous,
		Warnings:        warnings,
	}
	if layout.Ambiguous {
		rec.Warnings = append(rec.Warnings, common.Warning{
			Code:    common.WarnLayoutAmbiguous,
			Message: "no line item table found, header fields only",
		})
	} else {
		rec.LineItems = e.lineItems(layout.RegionsNamed(constants.RegionLineItems))
	}

	e.logger.Debug("extract.done",
		"fields", len(rec.Fields),
		"line_items", len(rec.LineItems),
		"flagged", len(rec.FlaggedFields()),
		"ambiguous", layout.Ambiguous)
	return rec, nil
}

// position orders candidates by where they occur in the document.
type position struct {
	line   int
	offset int
}

func (p position) before(o position) bool {
	if p.line != o.line {
		return p.line < o.line
	}
	return p.offset < o.offset
}

type candidate struct {
	field entity.ExtractedField
	rule  *Rule
	pos   position
}

func (e *Extractor) headerFields(layout entity.Layout) (map[string]entity.ExtractedField, []common.Warning) {
	byField := make(map[string][]candidate)
	lineBase := 0
	for _, region := range layout.Regions {
		for _, rule := range e.rules.Rules() {
			if rule.Kind != KindRegex || !rule.AppliesTo(region.Name) {
				continue
			}
			for _, c := range e.match(rule, region, lineBase) {
				byField[rule.Field] = append(byField[rule.Field], c)
			}
		}
		lineBase += len(region.Lines)
	}
	return e.resolve(byField)
}

// match runs one regex rule over a region.
func (e *Extractor) match(rule *Rule, region entity.Region, lineBase int) []candidate {
	var out []candidate
	for li, line := range region.Lines {
		if rule.MaxLine > 0 && li >= rule.MaxLine {
			break
		}
		subjects := []subject{newSubject(line.Cells)}
		if rule.Match == MatchCell {
			subjects = subjects[:0]
			for _, cell := range line.Cells {
				subjects = append(subjects, newSubject([]entity.Cell{cell}))
			}
		}
		for si, subj := range subjects {
			for _, m := range rule.re.FindAllStringSubmatchIndex(subj.text, -1) {
				start, end := m[2], m[3]
				if start < 0 || start == end {
					continue
				}
				raw := strings.TrimSpace(subj.text[start:end])
				tokens := subj.tokensIn(start, end)
				if rule.NextLine {
					if li+1 >= len(region.Lines) {
						continue
					}
					cell := alignedCell(region.Lines[li+1], tokens)
					raw, tokens = cell.Text(), cell.Tokens
				}
				if raw == "" || len(tokens) == 0 {
					continue
				}
				if rule.exclude != nil && rule.exclude.MatchString(raw) {
					continue
				}
				out = append(out, candidate{
					field: e.newField(rule, region.Name, raw, tokens, 1),
					rule:  rule,
					pos:   position{line: lineBase + li, offset: si<<16 | start},
				})
			}
		}
	}
	return out
}

// newField builds and coerces a field. factor scales the rule weight.
func (e *Extractor) newField(rule *Rule, region, raw string, tokens []*entity.Token, factor float64) entity.ExtractedField {
	f := entity.ExtractedField{
		Name:       rule.Field,
		Type:       rule.Type,
		Raw:        raw,
		Confidence: clamp01(rule.Weight * factor * entity.MinConfidence(tokens)),
		Region:     region,
		Rule:       rule.Name,
		Tokens:     tokens,
	}
	coerce(&f, e.opts)
	if f.Confidence < e.opts.ReviewThreshold {
		f.NeedsReview = true
	}
	return f
}

// resolve picks one candidate per field. Fields choose in order of their
// best candidate; a candidate whose tokens another field already claimed
// gives way to the next one. A field left with no free candidate is dropped
// with a FIELD_UNCLAIMED warning.
func (e *Extractor) resolve(byField map[string][]candidate) (map[string]entity.ExtractedField, []common.Warning) {
	fields := make([]string, 0, len(byField))
	for name, cands := range byField {
		sort.SliceStable(cands, func(i, j int) bool { return better(cands[i], cands[j]) })
		fields = append(fields, name)
	}
	sort.Slice(fields, func(i, j int) bool {
		a, b := byField[fields[i]][0], byField[fields[j]][0]
		if a.field.Confidence != b.field.Confidence {
			return a.field.Confidence > b.field.Confidence
		}
		if a.rule.order != b.rule.order {
			return a.rule.order < b.rule.order
		}
		return fields[i] < fields[j]
	})

	claimed := make(map[*entity.Token]string)
	out := make(map[string]entity.ExtractedField, len(fields))
	var warnings []common.Warning
	for _, name := range fields {
		for _, c := range byField[name] {
			if overlaps(claimed, c.field.Tokens) {
				continue
			}
			for _, t := range c.field.Tokens {
				claimed[t] = name
			}
			out[name] = c.field
			break
		}
		if _, ok := out[name]; !ok {
			best := byField[name][0]
			e.logger.Debug("extract.field.unclaimed", "field", name, "best", describe(best))
			warnings = append(warnings, unclaimedWarning(best, claimed))
		}
	}
	return out, warnings
}

func unclaimedWarning(c candidate, claimed map[*entity.Token]string) common.Warning {
	w := common.Warning{Code: common.WarnFieldUnclaimed}
	owner := ""
	for _, t := range c.field.Tokens {
		if name, ok := claimed[t]; ok {
			w.Page, owner = t.Page, name
			break
		}
	}
	w.Message = fmt.Sprintf("%s dropped: %q was already read as %s", c.field.Name, c.field.Raw, owner)
	return w
}

func better(a, b candidate) bool {
	if a.field.Invalid != b.field.Invalid {
		return !a.field.Invalid
	}
	if a.field.Confidence != b.field.Confidence {
		return a.field.Confidence > b.field.Confidence
	}
	if a.rule.order != b.rule.order {
		return a.rule.order < b.rule.order
	}
	return a.pos.before(b.pos)
}

func overlaps(claimed map[*entity.Token]string, tokens []*entity.Token) bool {
	for _, t := range tokens {
		if _, ok := claimed[t]; ok {
			return true
		}
	}
	return false
}

// subject is the text a rule matches against, cells joined by tabs and
// tokens by spaces, with the byte span of every token.
type subject struct {
	text  string
	spans []tokenSpan
}

type tokenSpan struct {
	start, end int
	token      *entity.Token
}

func newSubject(cells []entity.Cell) subject {
	var b strings.Builder
	var spans []tokenSpan
	for ci, cell := range cells {
		if ci > 0 {
			b.WriteByte('\t')
		}
		for ti, t := range cell.Tokens {
			if ti > 0 {
				b.WriteByte(' ')
			}
			start := b.Len()
			b.WriteString(t.Text)
			spans = append(spans, tokenSpan{start: start, end: b.Len(), token: t})
		}
	}
	return subject{text: b.String(), spans: spans}
}

// tokensIn returns the tokens overlapping the byte range [start, end).
func (s subject) tokensIn(start, end int) []*entity.Token {
	var out []*entity.Token
	for _, sp := range s.spans {
		if sp.start < end && sp.end > start {
			out = append(out, sp.token)
		}
	}
	return out
}

// alignedCell picks the cell of line that sits under the anchor tokens.
func alignedCell(line entity.Line, anchor []*entity.Token) entity.Cell {
	var box entity.BBox
	for _, t := range anchor {
		box = box.Union(t.Box)
	}
	best, bestOverlap := 0, 0.0
	for i, cell := range line.Cells {
		if o := box.HorizontalOverlap(cell.Box()); o > bestOverlap {
			best, bestOverlap = i, o
		}
	}
	return line.Cells[best]
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func describe(c candidate) string {
	return fmt.Sprintf("%s=%q (%s, %.2f)", c.field.Name, c.field.Raw, c.rule.Name, c.field.Confidence)
}
