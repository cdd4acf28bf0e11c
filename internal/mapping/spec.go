package mapping

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Rounding modes.
const (
	RoundHalfUp   = "half_up"
	RoundHalfEven = "half_even"
)

// Spec configures how purchase orders become sales orders and how they are
// exported. Treat it as a value: the mapper and exporter never change it.
type Spec struct {
	SwapParties      bool        `json:"swap_parties"`
	DefaultTaxRate   json.Number `json:"default_tax_rate"`
	Currency         string      `json:"currency"`
	RoundingMode     string      `json:"rounding_mode"`
	Columns          []string    `json:"columns"`
	Layout           string      `json:"layout"`
	SOPrefix         string      `json:"so_prefix"`
	SOStart          int         `json:"so_start"`
	SODate           string      `json:"so_date,omitempty"`
	ReviewThreshold  float64     `json:"review_threshold"`
	DecimalSeparator string      `json:"decimal_separator"`
	DayFirst         bool        `json:"day_first"`
}

func DefaultSpec() Spec {
	return Spec{
		SwapParties:      true,
		DefaultTaxRate:   "0",
		Currency:         "USD",
		RoundingMode:     RoundHalfUp,
		Columns:          append([]string(nil), constants.DefaultColumns...),
		Layout:           constants.LayoutDenormalized,
		SOPrefix:         "SO-",
		SOStart:          1,
		ReviewThreshold:  0.60,
		DecimalSeparator: ".",
	}
}

//go:embed spec.schema.json
var specSchemaJSON []byte

var specSchema = jsonschema.MustCompileString("spec.schema.json", string(specSchemaJSON))

// LoadSpec reads a mapping spec from a .json, .yaml or .yml file. Keys the
// file leaves out keep their DefaultSpec values.
func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, common.NewAppError(common.CodeConfig, "read mapping spec", err)
	}
	return ParseSpec(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ParseSpec decodes a spec document; format is "json" or "yaml".
func ParseSpec(data []byte, format string) (Spec, error) {
	doc := data
	if format != "json" {
		var err error
		if doc, err = yaml.YAMLToJSON(data); err != nil {
			return Spec{}, common.NewAppError(common.CodeConfig, "parse mapping spec", err)
		}
	}
	if len(bytes.TrimSpace(doc)) == 0 || string(bytes.TrimSpace(doc)) == "null" {
		doc = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Spec{}, common.NewAppError(common.CodeConfig, "decode mapping spec", err)
	}
	if err := specSchema.Validate(v); err != nil {
		return Spec{}, common.NewAppError(common.CodeConfig, "mapping spec does not match schema", err)
	}

	spec := DefaultSpec()
	if err := json.Unmarshal(doc, &spec); err != nil {
		return Spec{}, common.NewAppError(common.CodeConfig, "decode mapping spec", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks the rules the schema cannot express.
func (s Spec) Validate() error {
	v := common.NewValidator().
		Field("currency", s.Currency, common.Required, common.CurrencyCode).
		Field("rounding_mode", s.RoundingMode, common.Required, common.OneOf(RoundHalfUp, RoundHalfEven)).
		Field("layout", s.Layout, common.Required, common.OneOf(constants.LayoutDenormalized, constants.LayoutTwoBlock)).
		Field("review_threshold", s.ReviewThreshold, common.UnitInterval).
		Field("decimal_separator", s.DecimalSeparator, common.OneOf(".", ",")).
		Field("so_prefix", s.SOPrefix, common.MaxLength(16))
	if len(s.Columns) == 0 {
		v.Field("columns", s.Columns, common.Required, invalid("must name at least one column"))
	}
	for i, c := range s.Columns {
		if !constants.IsKnownColumn(c) {
			v.Field(fmt.Sprintf("columns[%d]", i), c, invalid("is not a known column"))
		}
	}
	if s.SOStart < 0 {
		v.Field("so_start", s.SOStart, invalid("must not be negative"))
	}
	if rate, err := decimal(string(s.DefaultTaxRate)); err != nil || rate.Negative {
		v.Field("default_tax_rate", s.DefaultTaxRate, invalid("must be a non-negative decimal"))
	}
	if s.SODate != "" {
		if _, err := time.Parse(entity.DateLayout, s.SODate); err != nil {
			v.Field("so_date", s.SODate, invalid("must be a YYYY-MM-DD date"))
		}
	}
	if v.HasErrors() {
		return common.NewAppError(common.CodeConfig, v.ErrorMessage(), common.ErrInvalidInput)
	}
	return nil
}

// OrderDate is the sales order date, zero when SODate is empty.
func (s Spec) OrderDate() time.Time {
	t, _ := time.Parse(entity.DateLayout, s.SODate)
	return t
}

func invalid(message string) common.ValidationRule {
	return func(fieldName string, value interface{}) *common.ValidationError {
		return &common.ValidationError{Field: fieldName, Value: value, Message: message}
	}
}
