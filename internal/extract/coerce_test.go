package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/internal/entity"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		raw  string
		sep  string
		want string
	}{
		{"1,234.56", ".", "1234.56"},
		{"1.234,56", ".", "1234.56"},
		{"1 234,56", ".", "1234.56"},
		{"1'234.56", ".", "1234.56"},
		{"$1,234.56", ".", "1234.56"},
		{"€1.234,56", ".", "1234.56"},
		{"USD 99.90", ".", "99.90"},
		{"99,90 EUR", ".", "99.90"},
		{"JPY -1,000", ".", "-1000"},
		{"(12.50)", ".", "-12.50"},
		{"-3", ".", "-3"},
		{"1O.5O", ".", "10.50"},
		{"l2", ".", "12"},
		{"1,234", ".", "1234"},
		{"1.234", ".", "1.234"},
		{"1.234", ",", "1234"},
		{"12,50", ".", "12.50"},
		{"1.234.567", ".", "1234567"},
		{"30.00", ".", "30.00"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDecimal(tt.raw, tt.sep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Text('f'))
		})
	}
}

func TestParseDecimalRejects(t *testing.T) {
	for _, raw := range []string{"", "abc", "1.2.3", "12-34-56", "n/a", "USD99.90", "ABC 10"} {
		_, err := ParseDecimal(raw, ".")
		assert.Error(t, err, raw)
	}
}

func TestParseDecimalLeavesWordsAlone(t *testing.T) {
	for _, raw := range []string{"Tool 10", "Pool 2", "Oil 5", "Bolt M10", "10 Oil", "I5 lOO", "Io5"} {
		_, err := ParseDecimal(raw, ".")
		assert.Error(t, err, raw)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw      string
		dayFirst bool
		want     string
	}{
		{"2024-03-01", false, "2024-03-01"},
		{"2024/3/1", false, "2024-03-01"},
		{"03/01/2024", false, "2024-03-01"},
		{"03/01/2024", true, "2024-01-03"},
		{"25/12/2024", false, "2024-12-25"},
		{"12/25/24", true, "2024-12-25"},
		{"01.03.2024", true, "2024-03-01"},
		{"1 Mar 2024", false, "2024-03-01"},
		{"05-Mar-2024", false, "2024-03-05"},
		{"March 5th, 2024", false, "2024-03-05"},
		{"Mar. 5, 2024", false, "2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDate(tt.raw, tt.dayFirst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Format(entity.DateLayout))
			assert.Equal(t, time.UTC, d.Location())
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, raw := range []string{"2024-02-30", "31/31/2024", "yesterday", "5 Foo 2024", ""} {
		_, err := ParseDate(raw, false)
		assert.Error(t, err, raw)
	}
}

func TestCoerceKeepsRawOnFailure(t *testing.T) {
	f := entity.ExtractedField{Name: "po_date", Type: entity.TypeDate, Raw: "2024-13-45"}
	coerce(&f, DefaultOptions())

	assert.True(t, f.Invalid)
	assert.True(t, f.NeedsReview)
	assert.Equal(t, "2024-13-45", f.Display())
	assert.Equal(t, "2024-13-45", f.Value())
}

func TestCoerceInteger(t *testing.T) {
	f := entity.ExtractedField{Type: entity.TypeInteger, Raw: "1,200"}
	coerce(&f, DefaultOptions())
	require.False(t, f.Invalid)
	assert.Equal(t, int64(1200), f.Int)

	f = entity.ExtractedField{Type: entity.TypeInteger, Raw: "2.5"}
	coerce(&f, DefaultOptions())
	assert.True(t, f.Invalid)
}
