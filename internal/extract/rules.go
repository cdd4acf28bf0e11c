package extract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Kind selects how a rule finds its value.
type Kind string

const (
	KindRegex      Kind = "regex"
	KindPositional Kind = "positional"
)

// Match selects the text a regex rule runs against.
const (
	MatchLine = "line" // cells joined by tabs
	MatchCell = "cell"
)

// Pattern macros usable in rule patterns.
var macros = map[string]string{
	"{amount}": `\(?\s*-?(?:[A-Za-z]{3}\s?)?\p{Sc}?\s?-?\d+(?:[.,'\x{00a0}]\d+| \d{3}\b)*\s*\)?`,
	"{date}": `(?:\d{4}[-/.]\d{1,2}[-/.]\d{1,2}` +
		`|\d{1,2}[-/.]\d{1,2}[-/.](?:\d{4}|\d{2})` +
		`|\d{1,2}(?:st|nd|rd|th)?[\s-]+[A-Za-z]{3,9}\.?[\s-]+\d{2,4}` +
		`|[A-Za-z]{3,9}\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})`,
}

// inferredFactor scales the weight of columns guessed without a header row.
const inferredFactor = 0.75

var defaultRegions = []string{constants.RegionHeader, constants.RegionTotals, constants.RegionFooter}

// Rule is one way of finding a field. Regex rules capture the value with their
// first group; positional rules name line item columns by header keywords.
type Rule struct {
	Name     string           `yaml:"name"`
	Field    string           `yaml:"field"`
	Kind     Kind             `yaml:"kind"`
	Type     entity.FieldType `yaml:"type"`
	Match    string           `yaml:"match"`
	Pattern  string           `yaml:"pattern"`
	Exclude  string           `yaml:"exclude"`
	NextLine bool             `yaml:"next_line"`
	Regions  []string         `yaml:"regions"`
	MaxLine  int              `yaml:"max_line"`
	Keywords []string         `yaml:"keywords"`
	Weight   float64          `yaml:"weight"`

	re      *regexp.Regexp
	exclude *regexp.Regexp
	order   int
}

// AppliesTo reports whether the rule runs in the named region.
func (r *Rule) AppliesTo(region string) bool {
	regions := r.Regions
	if len(regions) == 0 {
		regions = defaultRegions
	}
	for _, name := range regions {
		if name == region {
			return true
		}
	}
	return false
}

// RuleSet holds compiled rules in declaration order.
type RuleSet struct {
	rules   []*Rule
	byField map[string][]*Rule
}

type ruleFile struct {
	Mode  string `yaml:"mode"` // extend | replace
	Rules []Rule `yaml:"rules"`
}

//go:embed default_rules.yaml
var defaultRulesYAML []byte

var loadDefaults = sync.OnceValues(func() (*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(defaultRulesYAML, &f); err != nil {
		return nil, err
	}
	return NewRuleSet(f.Rules)
})

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	rs, err := loadDefaults()
	if err != nil {
		panic(fmt.Sprintf("extract: default rules: %v", err))
	}
	return rs
}

// LoadRules reads a YAML rule file. With mode "replace" the file is the whole
// rule set; otherwise its rules come before the defaults and win ties.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "read rules file", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, common.NewAppError(common.CodeConfig, "parse rules file", err)
	}
	switch f.Mode {
	case "", "extend":
		return NewRuleSet(append(f.Rules, DefaultRules().Definitions()...))
	case "replace":
		return NewRuleSet(f.Rules)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown rules mode %q", f.Mode), common.ErrInvalidInput)
	}
}

// NewRuleSet validates and compiles rules. Declaration order is kept for tie-breaks.
func NewRuleSet(defs []Rule) (*RuleSet, error) {
	rs := &RuleSet{byField: make(map[string][]*Rule)}
	v := common.NewValidator()
	names := make(map[string]bool, len(defs))
	for i := range defs {
		r := defs[i]
		r.order = i
		if r.Kind == "" {
			r.Kind = KindRegex
		}
		if r.Type == "" {
			r.Type = entity.TypeString
		}
		if r.Match == "" {
			r.Match = MatchLine
		}
		key := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			key = r.Name
		}
		v.Field(key+".name", r.Name, common.Required).
			Field(key+".field", r.Field, common.Required, knownField).
			Field(key+".kind", string(r.Kind), common.OneOf(string(KindRegex), string(KindPositional))).
			Field(key+".type", string(r.Type), common.OneOf(string(entity.TypeString), string(entity.TypeDate), string(entity.TypeDecimal), string(entity.TypeInteger))).
			Field(key+".match", r.Match, common.OneOf(MatchLine, MatchCell)).
			Field(key+".weight", r.Weight, common.UnitInterval)
		if r.Weight <= 0 {
			v.Field(key+".weight", r.Weight, mustBe("greater than zero"))
		}
		if names[r.Name] && r.Name != "" {
			v.Field(key+".name", r.Name, mustBe("unique"))
		}
		names[r.Name] = true

		switch r.Kind {
		case KindPositional:
			if !isItemField(r.Field) {
				v.Field(key+".field", r.Field, mustBe("a line item field"))
			}
			if len(r.Keywords) == 0 {
				v.Field(key+".keywords", r.Keywords, mustBe("non-empty"))
			}
			r.Keywords = append([]string(nil), r.Keywords...)
			for j, kw := range r.Keywords {
				r.Keywords[j] = normalizeHeader(kw)
			}
		case KindRegex:
			re, err := compile(r.Pattern)
			switch {
			case err != nil:
				v.Field(key+".pattern", r.Pattern, mustBe("a valid pattern: "+err.Error()))
			case re.NumSubexp() < 1:
				v.Field(key+".pattern", r.Pattern, mustBe("a pattern with a capture group"))
			}
			r.re = re
			if r.Exclude != "" {
				if r.exclude, err = compile(r.Exclude); err != nil {
					v.Field(key+".exclude", r.Exclude, mustBe("a valid pattern: "+err.Error()))
				}
			}
		}
		rule := &r
		rs.rules = append(rs.rules, rule)
		rs.byField[r.Field] = append(rs.byField[r.Field], rule)
	}
	if v.HasErrors() {
		return nil, common.NewAppError(common.CodeConfig, v.ErrorMessage(), common.ErrInvalidInput)
	}
	return rs, nil
}

// Rules returns the compiled rules in declaration order.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}

// ForField returns the rules of one field in declaration order.
func (rs *RuleSet) ForField(field string) []*Rule {
	return rs.byField[field]
}

// Definitions returns copies of the rule definitions, suitable for NewRuleSet.
func (rs *RuleSet) Definitions() []Rule {
	out := make([]Rule, 0, len(rs.rules))
	for _, r := range rs.rules {
		d := *r
		d.Keywords = append([]string(nil), r.Keywords...)
		d.Regions = append([]string(nil), r.Regions...)
		d.re, d.exclude = nil, nil
		out = append(out, d)
	}
	return out
}

func (rs *RuleSet) positional() []*Rule {
	var out []*Rule
	for _, r := range rs.rules {
		if r.Kind == KindPositional {
			out = append(out, r)
		}
	}
	return out
}

func compile(pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	for name, expansion := range macros {
		pattern = strings.ReplaceAll(pattern, name, expansion)
	}
	return regexp.Compile(pattern)
}

var headerFields = map[string]bool{
	constants.FieldPONumber: true, constants.FieldPODate: true, constants.FieldDueDate: true,
	constants.FieldVendorName: true, constants.FieldBuyerName: true, constants.FieldBuyerPhone: true,
	constants.FieldBuyerEmail: true, constants.FieldBuyerAddress: true, constants.FieldShipToName: true,
	constants.FieldShipToAddress: true, constants.FieldPaymentTerms: true, constants.FieldCurrency: true,
	constants.FieldSubtotal: true, constants.FieldTax: true, constants.FieldShipping: true,
	constants.FieldTotal: true, constants.FieldComments: true,
}

func isItemField(name string) bool {
	for _, f := range constants.LineItemFields {
		if f == name {
			return true
		}
	}
	return false
}

func knownField(fieldName string, value interface{}) *common.ValidationError {
	s, _ := value.(string)
	if s == "" || headerFields[s] || isItemField(s) {
		return nil
	}
	return &common.ValidationError{Field: fieldName, Value: value, Message: "is not a known field"}
}

func mustBe(what string) common.ValidationRule {
	return func(fieldName string, value interface{}) *common.ValidationError {
		return &common.ValidationError{Field: fieldName, Value: value, Message: "must be " + what}
	}
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.Trim(s, " :.\t"))), " ")
}
