package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
)

func TestParseSpecYAML(t *testing.T) {
	spec, err := ParseSpec([]byte(`
swap_parties: false
default_tax_rate: 0.0825
currency: EUR
rounding_mode: half_even
columns: [so_number, po_number, item_sku, quantity, needs_review]
layout: two_block
so_start: 100
so_date: "2024-05-02"
`), "yaml")
	require.NoError(t, err)

	assert.False(t, spec.SwapParties)
	assert.Equal(t, "0.0825", spec.DefaultTaxRate.String())
	assert.Equal(t, "EUR", spec.Currency)
	assert.Equal(t, RoundHalfEven, spec.RoundingMode)
	assert.Equal(t, []string{"so_number", "po_number", "item_sku", "quantity", "needs_review"}, spec.Columns)
	assert.Equal(t, constants.LayoutTwoBlock, spec.Layout)
	assert.Equal(t, 100, spec.SOStart)
	assert.Equal(t, "2024-05-02", spec.OrderDate().Format("2006-01-02"))
	// untouched keys keep their defaults
	assert.Equal(t, "SO-", spec.SOPrefix)
	assert.InDelta(t, 0.6, spec.ReviewThreshold, 1e-9)
}

func TestParseSpecJSONAndEmpty(t *testing.T) {
	spec, err := ParseSpec([]byte(`{"currency": "JPY", "so_prefix": "JP"}`), "json")
	require.NoError(t, err)
	assert.Equal(t, "JPY", spec.Currency)
	assert.Equal(t, "JP", spec.SOPrefix)

	spec, err = ParseSpec(nil, "yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultSpec(), spec)
}

func TestParseSpecRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":      "colour: red\n",
		"rounding":         "rounding_mode: up\n",
		"tax rate range":   "default_tax_rate: 1.5\n",
		"currency pattern": "currency: usd\n",
		"unknown currency": "currency: ZZZ\n",
		"unknown column":   "columns: [po_number, shoe_size]\n",
		"duplicate column": "columns: [po_number, po_number]\n",
		"date format":      "so_date: \"01/02/2024\"\n",
		"not a mapping":    "- a\n- b\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSpec([]byte(doc), "yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidInput))
		})
	}
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.yml")
	require.NoError(t, os.WriteFile(path, []byte("layout: two_block\n"), 0o644))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, constants.LayoutTwoBlock, spec.Layout)

	jsonPath := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"swap_parties": false}`), 0o644))
	spec, err = LoadSpec(jsonPath)
	require.NoError(t, err)
	assert.False(t, spec.SwapParties)

	_, err = LoadSpec(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, common.CodeConfig, common.ErrorCode(err))
}

func TestNewMapperRejectsInvalidSpec(t *testing.T) {
	spec := DefaultSpec()
	spec.RoundingMode = "bankers"
	_, err := NewMapper(spec, nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}
