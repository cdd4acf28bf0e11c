package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
)

func TestNewRawDocument(t *testing.T) {
	data := []byte("%PDF-1.4\n%%EOF\n")
	doc, err := NewRawDocument("po.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, doc.Format)
	assert.Len(t, doc.ContentHash, 64)

	// the document keeps its own copy
	data[0] = 'X'
	assert.Equal(t, byte('%'), doc.Bytes()[0])

	again, err := NewRawDocument("renamed.pdf", []byte("%PDF-1.4\n%%EOF\n"))
	require.NoError(t, err)
	assert.Equal(t, doc.ID, again.ID)
}

func TestNewRawDocumentRejects(t *testing.T) {
	_, err := NewRawDocument("empty.pdf", nil)
	assert.Error(t, err)

	_, err = NewRawDocument("notes.txt", []byte("just some text"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
}

func TestFieldDisplay(t *testing.T) {
	f := ExtractedField{Name: "po_number", Type: TypeString, Raw: "PO-1OO1", Text: "PO-1001", Confidence: 0.4, NeedsReview: true}
	assert.Equal(t, "PO-1OO1", f.Display())
	f.NeedsReview = false
	assert.Equal(t, "PO-1001", f.Display())

	bad := ExtractedField{Name: "quantity", Type: TypeDecimal, Raw: "three", Invalid: true, NeedsReview: true}
	assert.False(t, bad.Typed())
	assert.Equal(t, "three", bad.Value())
}

func TestBBoxUnion(t *testing.T) {
	a := BBox{X: 10, Y: 10, Width: 5, Height: 5}
	b := BBox{X: 20, Y: 0, Width: 5, Height: 5}
	assert.Equal(t, BBox{X: 10, Y: 0, Width: 15, Height: 15}, a.Union(b))
	assert.Equal(t, a, BBox{}.Union(a))
	assert.Equal(t, 0.0, a.HorizontalOverlap(b))
}
