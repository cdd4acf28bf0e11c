package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/testutil"
)

func table(lines ...entity.Line) entity.Layout {
	return entity.Layout{Regions: []entity.Region{
		{Name: constants.RegionHeader, Lines: []entity.Line{line(10, 1, testutil.At(40, "PO#: 55"))}},
		{Name: constants.RegionLineItems, Lines: lines},
	}}
}

func itemValues(li entity.LineItem) map[string]string {
	out := make(map[string]string, len(li.Fields))
	for name, f := range li.Fields {
		out[name] = f.Value()
	}
	return out
}

func extractItems(t *testing.T, lay entity.Layout) []entity.LineItem {
	t.Helper()
	rec, err := NewExtractor(nil, DefaultOptions(), nil).Extract(lay)
	require.NoError(t, err)
	return rec.LineItems
}

func TestItemsContinuationRows(t *testing.T) {
	items := extractItems(t, table(
		line(40, 1, testutil.At(40, "Part #"), testutil.At(120, "Description"), testutil.At(300, "Qty"), testutil.At(360, "Price"), testutil.At(460, "Total")),
		line(54, 1, testutil.At(40, "A-1"), testutil.At(120, "Steel bracket"), testutil.At(300, "4"), testutil.At(360, "2.50"), testutil.At(460, "10.00")),
		line(68, 1, testutil.At(120, "zinc plated, 40mm")),
		line(82, 1, testutil.At(40, "B-2"), testutil.At(120, "Hinge"), testutil.At(300, "2"), testutil.At(360, "7.25"), testutil.At(460, "14.50")),
	))

	require.Len(t, items, 2)
	assert.Equal(t, map[string]string{
		constants.ItemSKU:         "A-1",
		constants.ItemDescription: "Steel bracket zinc plated, 40mm",
		constants.ItemQuantity:    "4",
		constants.ItemUnitPrice:   "2.50",
		constants.ItemAmount:      "10.00",
	}, itemValues(items[0]))
	assert.Equal(t, 2, items[1].Number)
	assert.Equal(t, "Hinge", itemValues(items[1])[constants.ItemDescription])
}

func TestItemsQuantityWithUnit(t *testing.T) {
	items := extractItems(t, table(
		line(40, 1, testutil.At(40, "SKU"), testutil.At(120, "Description"), testutil.At(300, "Qty"), testutil.At(460, "Amount")),
		line(54, 1, testutil.At(40, "X9"), testutil.At(120, "Cable"), testutil.At(300, "3 ea"), testutil.At(460, "9.00")),
		line(68, 1, testutil.At(40, "X10"), testutil.At(120, "Rope"), testutil.At(300, "12m"), testutil.At(460, "6.00")),
	))

	require.Len(t, items, 2)
	assert.Equal(t, "3", itemValues(items[0])[constants.ItemQuantity])
	assert.Equal(t, "ea", itemValues(items[0])[constants.ItemUOM])
	assert.Equal(t, "12", itemValues(items[1])[constants.ItemQuantity])
	assert.Equal(t, "m", itemValues(items[1])[constants.ItemUOM])
	_, hasPrice := items[0].Get(constants.ItemUnitPrice)
	assert.False(t, hasPrice)
}

func TestItemsInferredColumns(t *testing.T) {
	items := extractItems(t, table(
		line(40, 1, testutil.At(40, "SKU-A"), testutil.At(120, "Widget"), testutil.At(300, "3"), testutil.At(360, "10.00"), testutil.At(460, "30.00")),
		line(54, 1, testutil.At(40, "SKU-B"), testutil.At(120, "Gadget"), testutil.At(300, "1"), testutil.At(360, "25.50"), testutil.At(460, "25.50")),
	))

	require.Len(t, items, 2)
	assert.Equal(t, map[string]string{
		constants.ItemSKU:         "SKU-A",
		constants.ItemDescription: "Widget",
		constants.ItemQuantity:    "3",
		constants.ItemUnitPrice:   "10.00",
		constants.ItemAmount:      "30.00",
	}, itemValues(items[0]))
	qty, _ := items[0].Get(constants.ItemQuantity)
	assert.InDelta(t, 0.95*inferredFactor, qty.Confidence, 1e-9)
}

func TestItemsInferredColumnsKeepDescriptionText(t *testing.T) {
	items := extractItems(t, table(
		line(40, 1, testutil.At(40, "A-1"), testutil.At(120, "Pool 2"), testutil.At(300, "4"), testutil.At(460, "10.00")),
		line(54, 1, testutil.At(40, "B-7"), testutil.At(120, "Tool 10"), testutil.At(300, "2"), testutil.At(360, "2.50"), testutil.At(460, "5.00")),
		line(68, 1, testutil.At(40, "C-3"), testutil.At(120, "Oil 5"), testutil.At(300, "2 Box"), testutil.At(460, "8.00")),
	))

	require.Len(t, items, 3)
	assert.Equal(t, map[string]string{
		constants.ItemSKU:         "A-1",
		constants.ItemDescription: "Pool 2",
		constants.ItemQuantity:    "4",
		constants.ItemAmount:      "10.00",
	}, itemValues(items[0]))
	assert.Equal(t, map[string]string{
		constants.ItemSKU:         "B-7",
		constants.ItemDescription: "Tool 10",
		constants.ItemQuantity:    "2",
		constants.ItemUnitPrice:   "2.50",
		constants.ItemAmount:      "5.00",
	}, itemValues(items[1]))
	assert.Equal(t, "Oil 5", itemValues(items[2])[constants.ItemDescription])
	assert.Equal(t, "2", itemValues(items[2])[constants.ItemQuantity])
	assert.Equal(t, "Box", itemValues(items[2])[constants.ItemUOM])
}

func TestIsNumeric(t *testing.T) {
	e := NewExtractor(nil, DefaultOptions(), nil)
	for text, want := range map[string]bool{
		"10.00":   true,
		"1O.5O":   true,
		"3 ea":    true,
		"12m":     true,
		"Pool 2":  false,
		"Tool 10": false,
		"2 Pools": false,
		"SKU-A":   false,
	} {
		assert.Equal(t, want, e.isNumeric(text), text)
	}
}

func TestItemsRejectNonPositiveQuantity(t *testing.T) {
	items := extractItems(t, table(
		line(40, 1, testutil.At(40, "Item"), testutil.At(120, "Description"), testutil.At(300, "Qty"), testutil.At(360, "Unit Price"), testutil.At(460, "Amount")),
		line(54, 1, testutil.At(40, "Z1"), testutil.At(120, "Refund"), testutil.At(300, "0"), testutil.At(360, "5.00"), testutil.At(460, "0.00")),
		line(68, 1, testutil.At(40, "Z2"), testutil.At(120, "Credit"), testutil.At(300, "1"), testutil.At(360, "(5.00)"), testutil.At(460, "(5.00)")),
	))

	require.Len(t, items, 2)
	qty, _ := items[0].Get(constants.ItemQuantity)
	assert.True(t, qty.Invalid)
	assert.True(t, qty.NeedsReview)
	assert.Equal(t, "0", qty.Display())

	price, _ := items[1].Get(constants.ItemUnitPrice)
	assert.True(t, price.Invalid)
	assert.Equal(t, "(5.00)", price.Display())
}

func TestMatchHeader(t *testing.T) {
	rules := DefaultRules().positional()
	tests := map[string]string{
		"Unit Price":     constants.ItemUnitPrice,
		"Qty":            constants.ItemQuantity,
		"Item #":         constants.ItemSKU,
		"Item":           constants.ItemSKU,
		"Line Total":     constants.ItemAmount,
		"UOM":            constants.ItemUOM,
		"Description:":   constants.ItemDescription,
		"Product Code":   constants.ItemSKU,
		"Extended Price": constants.ItemAmount,
	}
	for text, field := range tests {
		r := matchHeader(rules, text)
		if assert.NotNil(t, r, text) {
			assert.Equal(t, field, r.Field, text)
		}
	}
	assert.Nil(t, matchHeader(rules, "Notes"))
}
