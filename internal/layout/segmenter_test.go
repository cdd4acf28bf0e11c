package layout

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/testutil"
)

func regionNames(l entity.Layout) []string {
	out := make([]string, 0, len(l.Regions))
	for _, r := range l.Regions {
		out = append(out, r.Name)
	}
	return out
}

func lineTexts(r entity.Region) []string {
	out := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, l.Text())
	}
	return out
}

func TestSegmentPurchaseOrder(t *testing.T) {
	s := NewSegmenter(DefaultConfig(), nil)
	layout := s.Segment(testutil.PO1001())

	assert.False(t, layout.Ambiguous)
	require.Equal(t, []string{constants.RegionHeader, constants.RegionLineItems, constants.RegionTotals}, regionNames(layout))

	header := layout.Regions[0]
	assert.Len(t, header.Lines, 8)
	require.Len(t, header.Lines[1].Cells, 2)
	assert.Equal(t, "PO#: 1001", header.Lines[1].Cells[1].Text())

	items := layout.Regions[1]
	assert.Equal(t, []string{
		"Item Description Qty Unit Price Amount",
		"SKU-A Widget 3 10.00 30.00",
		"SKU-B Gadget 1 25.50 25.50",
	}, lineTexts(items))
	assert.Len(t, items.Lines[0].Cells, 5)

	assert.Equal(t, []string{"Subtotal: 55.50", "Total: 55.50"}, lineTexts(layout.Regions[2]))
}

func TestSegmentReferencesRecoveredTokens(t *testing.T) {
	rec := testutil.PO1001()
	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)

	tok := layout.Regions[0].Lines[0].Cells[0].Tokens[0]
	assert.Same(t, &rec.Pages[0].Tokens[0], tok)
}

func TestSegmentHeaderOnly(t *testing.T) {
	rec := testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "ACME Retail Corp"), testutil.At(400, "PO#: 77")).
		Line(testutil.At(40, "Please ship 3 widgets")).
		Page())

	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)
	assert.True(t, layout.Ambiguous)
	require.Equal(t, []string{constants.RegionHeader}, regionNames(layout))
	assert.Len(t, layout.Regions[0].Lines, 2)
}

func TestSegmentNoLines(t *testing.T) {
	rec := testutil.Recovered(testutil.NewPage(1).Line(testutil.At(40, "--- ... ***")).Page(), testutil.NewPage(2).Page())
	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)
	assert.Empty(t, layout.Regions)
	assert.False(t, layout.Ambiguous)
}

func TestSegmentLargestTableWins(t *testing.T) {
	rec := testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "Ref"), testutil.At(200, "Dept"), testutil.At(360, "Contact")).
		Line(testutil.At(40, "A1"), testutil.At(200, "Ops"), testutil.At(360, "Jo")).
		Blank(4).
		Line(testutil.At(40, "SKU"), testutil.At(200, "Description"), testutil.At(360, "Qty"), testutil.At(460, "Price")).
		Line(testutil.At(40, "X-1"), testutil.At(200, "Bolt pack"), testutil.At(360, "10"), testutil.At(460, "1.00")).
		Line(testutil.At(40, "X-2"), testutil.At(200, "Nut pack"), testutil.At(360, "20"), testutil.At(460, "2.00")).
		Blank(1).
		Line(testutil.At(360, "Total"), testutil.At(460, "50.00")).
		Page())

	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)
	assert.Equal(t, []string{constants.RegionFooter, constants.RegionLineItems, constants.RegionTotals}, regionNames(layout))
}

func TestSegmentEqualTablesPreferEarlier(t *testing.T) {
	rec := testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "a"), testutil.At(200, "b"), testutil.At(360, "c")).
		Line(testutil.At(40, "d"), testutil.At(200, "e"), testutil.At(360, "f")).
		Blank(4).
		Line(testutil.At(40, "g"), testutil.At(200, "h"), testutil.At(360, "i")).
		Line(testutil.At(40, "j"), testutil.At(200, "k"), testutil.At(360, "l")).
		Page())

	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)
	assert.Equal(t, []string{constants.RegionLineItems, constants.RegionFooter}, regionNames(layout))
}

func TestSegmentKeepsWrappedDescriptions(t *testing.T) {
	rec := testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "Item"), testutil.At(120, "Description"), testutil.At(300, "Qty"), testutil.At(360, "Price")).
		Line(testutil.At(40, "SKU-A"), testutil.At(120, "Widget, blue"), testutil.At(300, "3"), testutil.At(360, "10.00")).
		Line(testutil.At(120, "with mounting kit")).
		Line(testutil.At(40, "SKU-B"), testutil.At(120, "Gadget"), testutil.At(300, "1"), testutil.At(360, "25.50")).
		Line(testutil.At(120, "Thank you for your business")).
		Page())

	layout := NewSegmenter(DefaultConfig(), nil).Segment(rec)
	require.Equal(t, []string{constants.RegionLineItems, constants.RegionTotals}, regionNames(layout))
	assert.Len(t, layout.Regions[0].Lines, 4)
}

func TestSegmentTableAcrossPages(t *testing.T) {
	p1 := testutil.NewPage(1).
		Line(testutil.At(40, "Item"), testutil.At(120, "Description"), testutil.At(300, "Qty"), testutil.At(360, "Price")).
		Line(testutil.At(40, "SKU-A"), testutil.At(120, "Widget"), testutil.At(300, "3"), testutil.At(360, "10.00"))
	p2 := testutil.NewPage(2).
		Line(testutil.At(40, "SKU-B"), testutil.At(120, "Gadget"), testutil.At(300, "1"), testutil.At(360, "25.50")).
		Line(testutil.At(360, "Total"), testutil.At(420, "55.50"))

	layout := NewSegmenter(DefaultConfig(), nil).Segment(testutil.Recovered(p2.Page(), p1.Page()))
	require.Equal(t, []string{constants.RegionLineItems, constants.RegionTotals}, regionNames(layout))
	items := layout.Regions[0]
	require.Len(t, items.Lines, 3)
	assert.Equal(t, 2, items.Lines[2].Page)
}

func TestSegmentDeterministic(t *testing.T) {
	want := NewSegmenter(DefaultConfig(), nil).Segment(testutil.PO1001())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		rec := testutil.PO1001()
		toks := rec.Pages[0].Tokens
		rng.Shuffle(len(toks), func(a, b int) { toks[a], toks[b] = toks[b], toks[a] })

		got := NewSegmenter(DefaultConfig(), nil).Segment(rec)
		require.Equal(t, regionNames(want), regionNames(got))
		for k := range want.Regions {
			assert.Equal(t, lineTexts(want.Regions[k]), lineTexts(got.Regions[k]))
		}
	}
}
