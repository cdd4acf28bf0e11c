package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/export"
	"github.com/joseph-ayodele/po2so/internal/extract"
	"github.com/joseph-ayodele/po2so/internal/ingest"
	"github.com/joseph-ayodele/po2so/internal/layout"
	"github.com/joseph-ayodele/po2so/internal/mapping"
	"github.com/joseph-ayodele/po2so/internal/ocr"
	"github.com/joseph-ayodele/po2so/internal/testutil"
)

// stubRecovery serves canned token streams by filename and hands anything
// else to next.
type stubRecovery struct {
	pages map[string]func() *entity.Recovered
	next  ocr.TextRecovery
}

func (s stubRecovery) Recover(ctx context.Context, doc *entity.RawDocument) (*entity.Recovered, error) {
	if build, ok := s.pages[doc.Filename]; ok {
		return build(), nil
	}
	if s.next != nil {
		return s.next.Recover(ctx, doc)
	}
	return nil, fmt.Errorf("no stub for %s", doc.Filename)
}

// blockingRecovery waits for the deadline.
type blockingRecovery struct{}

func (blockingRecovery) Recover(ctx context.Context, _ *entity.RawDocument) (*entity.Recovered, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// lateRecovery returns a good record only once the deadline has passed.
type lateRecovery struct{ build func() *entity.Recovered }

func (r lateRecovery) Recover(ctx context.Context, _ *entity.RawDocument) (*entity.Recovered, error) {
	<-ctx.Done()
	return r.build(), nil
}

// lateExtractor holds extraction until wait closes.
type lateExtractor struct {
	inner extract.FieldExtractor
	wait  <-chan struct{}
}

func (x lateExtractor) Extract(lay entity.Layout) (*entity.PurchaseOrderRecord, error) {
	<-x.wait
	return x.inner.Extract(lay)
}

// blankEngine never finds any text.
type blankEngine struct{}

func (blankEngine) Name() string { return "blank" }

func (blankEngine) Recognize(context.Context, image.Image) (ocr.Recognition, error) {
	return ocr.Recognition{}, nil
}

func pdfDocument(t *testing.T, name string) *entity.RawDocument {
	t.Helper()
	doc, err := entity.NewRawDocument(name, []byte("%PDF-1.4\n% "+name+"\n%%EOF\n"))
	require.NoError(t, err)
	return doc
}

func blankPNG(t *testing.T, name string) *entity.RawDocument {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(0, 0, color.Gray{Y: 254})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	doc, err := entity.NewRawDocument(name, buf.Bytes())
	require.NoError(t, err)
	return doc
}

// lowConfidencePO is PO#1001 with the order number recognized at 0.4.
func lowConfidencePO() *entity.Recovered {
	at := testutil.At
	page := testutil.NewPage(1).
		Line(at(40, "ACME Retail Corp"), at(400, "PURCHASE ORDER")).
		Confidence(0.4).
		Line(at(400, "PO#: 1001")).
		Confidence(1).
		Line(at(400, "Date: 2024-03-01")).
		Blank(1).
		Line(at(40, "Vendor: Widget Works Ltd")).
		Blank(1).
		Line(at(40, "Item"), at(120, "Description"), at(300, "Qty"), at(360, "Unit Price"), at(460, "Amount")).
		Line(at(40, "SKU-A"), at(120, "Widget"), at(300, "3"), at(360, "10.00"), at(460, "30.00")).
		Line(at(40, "SKU-B"), at(120, "Gadget"), at(300, "1"), at(360, "25.50"), at(460, "25.50")).
		Blank(1).
		Line(at(360, "Total:"), at(460, "55.50"))
	return testutil.Recovered(page.Page())
}

// symbolsOnly has tokens but nothing the segmenter can keep.
func symbolsOnly() *entity.Recovered {
	return testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "----- ***** -----")).
		Line(testutil.At(40, "===== ##### =====")).
		Page())
}

// headerOnly has no line items.
func headerOnly() *entity.Recovered {
	return testutil.Recovered(testutil.NewPage(1).
		Line(testutil.At(40, "ACME Retail Corp"), testutil.At(400, "PO#: 2002")).
		Line(testutil.At(40, "Vendor: Widget Works Ltd")).
		Page())
}

func newProcessor(t *testing.T, recovery ocr.TextRecovery, mutate func(*mapping.Spec)) *Processor {
	t.Helper()
	spec := mapping.DefaultSpec()
	spec.SODate = "2024-04-01"
	if mutate != nil {
		mutate(&spec)
	}
	mapper, err := mapping.NewMapper(spec, nil)
	require.NoError(t, err)
	opts := extract.DefaultOptions()
	opts.ReviewThreshold = spec.ReviewThreshold
	return NewProcessor(
		recovery,
		layout.NewSegmenter(layout.DefaultConfig(), nil),
		extract.NewExtractor(nil, opts, nil),
		mapper,
		nil,
	)
}

func exportCSV(t *testing.T, opts export.Options, results []Result) string {
	t.Helper()
	exp, err := export.NewExporter(opts, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, exp.Write(&buf, export.FormatCSV, SalesOrders(results)))
	return buf.String()
}

func TestProcessPurchaseOrder1001(t *testing.T) {
	rec := stubRecovery{pages: map[string]func() *entity.Recovered{"po-1001.pdf": testutil.PO1001}}
	proc := newProcessor(t, rec, nil)

	res := proc.Process(context.Background(), pdfDocument(t, "po-1001.pdf"), 0)
	require.NoError(t, res.Err)
	require.NotNil(t, res.PurchaseOrder)

	report := res.Report
	assert.Equal(t, constants.StatusConverted, report.Status)
	assert.Equal(t, "po-1001.pdf", report.Filename)
	assert.Equal(t, "pdf-text", report.Method)
	assert.Zero(t, report.Flagged)
	assert.Positive(t, report.Resolved)

	so := report.SalesOrder
	require.NotNil(t, so)
	assert.Equal(t, "SO-000001", so.SONumber)
	assert.Equal(t, "ACME Retail Corp", so.Customer.Name)
	assert.Equal(t, "Widget Works Ltd", so.Vendor.Name)
	assert.Equal(t, "55.50", so.OrderTotal.Text('f'))
	assert.Equal(t, "po-1001.pdf", so.SourceFile)

	want := "po_number,vendor_name,customer_name,item_sku,description,quantity,unit_price,extended_price,order_total,needs_review\n" +
		"1001,Widget Works Ltd,ACME Retail Corp,SKU-A,Widget,3,10.00,30.00,55.50,false\n" +
		"1001,Widget Works Ltd,ACME Retail Corp,SKU-B,Gadget,1,25.50,25.50,55.50,false\n"
	assert.Equal(t, want, exportCSV(t, export.Options{}, []Result{res}))
}

func TestProcessLowConfidenceFieldNeedsReview(t *testing.T) {
	rec := stubRecovery{pages: map[string]func() *entity.Recovered{"low.pdf": lowConfidencePO}}
	proc := newProcessor(t, rec, func(s *mapping.Spec) { s.ReviewThreshold = 0.6 })

	res := proc.Process(context.Background(), pdfDocument(t, "low.pdf"), 0)
	require.NoError(t, res.Err)
	assert.Equal(t, constants.StatusNeedsReview, res.Report.Status)
	assert.Contains(t, res.Report.FlaggedFields, constants.ColPONumber)

	opts := export.Options{Columns: []string{constants.ColPONumber, constants.ColItemSKU, constants.ColNeedsReview, constants.ColReviewFields}}
	want := "po_number,item_sku,needs_review,review_fields\n" +
		"1001,SKU-A,true,po_number\n" +
		"1001,SKU-B,true,po_number\n"
	assert.Equal(t, want, exportCSV(t, opts, []Result{res}))
}

func TestProcessZeroRegionsFailsExtraction(t *testing.T) {
	rec := stubRecovery{pages: map[string]func() *entity.Recovered{"noise.pdf": symbolsOnly}}
	proc := newProcessor(t, rec, nil)

	res := proc.Process(context.Background(), pdfDocument(t, "noise.pdf"), 0)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, common.ErrExtractionFailed))
	assert.Nil(t, res.PurchaseOrder)
	assert.Nil(t, res.Report.SalesOrder)
	assert.Equal(t, constants.StatusFailed, res.Report.Status)
	assert.NotEmpty(t, res.Report.Error)
}

func TestProcessWithoutLineItemsIsIncomplete(t *testing.T) {
	rec := stubRecovery{pages: map[string]func() *entity.Recovered{"header.pdf": headerOnly}}
	proc := newProcessor(t, rec, nil)

	res := proc.Process(context.Background(), pdfDocument(t, "header.pdf"), 0)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, common.ErrIncompleteMapping))
	require.NotNil(t, res.PurchaseOrder)
	assert.True(t, res.Report.LayoutAmbiguous)
	assert.Nil(t, res.Report.SalesOrder)
	assert.Positive(t, res.Report.Resolved)
}

func TestBatchBlankDocumentDoesNotStopOthers(t *testing.T) {
	rec := stubRecovery{
		pages: map[string]func() *entity.Recovered{
			"a.pdf": testutil.PO1001,
			"c.pdf": testutil.PO1001,
		},
		next: ocr.NewExtractor(common.OCRConfig{}, blankEngine{}, nil),
	}
	batch := NewBatch(newProcessor(t, rec, nil), nil, WithWorkers(3))

	docs := []*entity.RawDocument{pdfDocument(t, "a.pdf"), blankPNG(t, "blank.png"), pdfDocument(t, "c.pdf")}
	results := batch.Run(context.Background(), docs)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, common.ErrUnreadableDocument))
	assert.Equal(t, constants.StatusFailed, results[1].Report.Status)
	assert.Equal(t, "blank.png", results[1].Report.Filename)
	assert.NoError(t, results[2].Err)

	// numbering follows input position, so the failed document leaves a gap
	assert.Equal(t, "SO-000001", results[0].Report.SalesOrder.SONumber)
	assert.Equal(t, "SO-000003", results[2].Report.SalesOrder.SONumber)
	assert.Len(t, SalesOrders(results), 2)
}

func TestBatchResultsInInputOrder(t *testing.T) {
	pages := map[string]func() *entity.Recovered{}
	var docs []*entity.RawDocument
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("po-%02d.pdf", i)
		pages[name] = testutil.PO1001
		if i%4 == 3 {
			pages[name] = symbolsOnly
		}
		docs = append(docs, pdfDocument(t, name))
	}
	batch := NewBatch(newProcessor(t, stubRecovery{pages: pages}, nil), nil, WithWorkers(5))

	results := batch.Run(context.Background(), docs)
	require.Len(t, results, len(docs))
	for i, r := range results {
		assert.Equal(t, docs[i].Filename, r.Report.Filename)
		if i%4 == 3 {
			assert.True(t, errors.Is(r.Err, common.ErrExtractionFailed), r.Report.Filename)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("SO-%06d", i+1), r.Report.SalesOrder.SONumber)
	}
}

func TestBatchIsDeterministic(t *testing.T) {
	pages := map[string]func() *entity.Recovered{
		"a.pdf": testutil.PO1001,
		"b.pdf": lowConfidencePO,
	}
	run := func() string {
		batch := NewBatch(newProcessor(t, stubRecovery{pages: pages}, nil), nil, WithWorkers(2))
		results := batch.Run(context.Background(), []*entity.RawDocument{pdfDocument(t, "a.pdf"), pdfDocument(t, "b.pdf")})
		opts := export.Options{Columns: append(append([]string(nil), constants.DefaultColumns...), constants.ColSONumber, constants.ColReviewFields)}
		return exportCSV(t, opts, results)
	}
	first := run()
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, run())
	}
}

func TestBatchProcessTimeout(t *testing.T) {
	batch := NewBatch(newProcessor(t, blockingRecovery{}, nil), nil, WithProcessTimeout(20*time.Millisecond))

	start := time.Now()
	results := batch.Run(context.Background(), []*entity.RawDocument{pdfDocument(t, "slow.pdf")})
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, common.ErrUnreadableDocument))
	assert.True(t, errors.Is(results[0].Err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessDeadlineInLaterStagesIsUnreadable(t *testing.T) {
	tests := []struct {
		name  string
		stage string
		build func(t *testing.T, ctx context.Context) *Processor
	}{
		{
			name:  "deadline before extract",
			stage: "extract",
			build: func(t *testing.T, _ context.Context) *Processor {
				return newProcessor(t, lateRecovery{build: testutil.PO1001}, nil)
			},
		},
		{
			name:  "deadline before map",
			stage: "map",
			build: func(t *testing.T, ctx context.Context) *Processor {
				rec := stubRecovery{pages: map[string]func() *entity.Recovered{"po.pdf": testutil.PO1001}}
				p := newProcessor(t, rec, nil)
				p.Extract.Extractor = lateExtractor{inner: p.Extract.Extractor, wait: ctx.Done()}
				return p
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			res := tt.build(t, ctx).Process(ctx, pdfDocument(t, "po.pdf"), 1)
			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, common.ErrUnreadableDocument)
			assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
			assert.Equal(t, constants.StatusFailed, res.Report.Status)
			assert.Contains(t, res.Report.Error, tt.stage+" timed out")
		})
	}
}

func TestBatchRunIngested(t *testing.T) {
	rec := stubRecovery{pages: map[string]func() *entity.Recovered{"a.pdf": testutil.PO1001}}
	batch := NewBatch(newProcessor(t, rec, nil), nil)

	missing := common.UnsupportedFormatError("notes.txt: content type text/plain")
	loaded := []ingest.Result{
		{SourcePath: "notes.txt", Err: missing},
		{SourcePath: "a.pdf", Document: pdfDocument(t, "a.pdf")},
		{SourcePath: "copy-of-a.pdf", Deduplicated: true},
	}
	results := batch.RunIngested(context.Background(), loaded)
	require.Len(t, results, 2)

	assert.True(t, errors.Is(results[0].Err, common.ErrUnsupportedFormat))
	assert.Equal(t, "notes.txt", results[0].Report.Filename)
	assert.Equal(t, constants.StatusFailed, results[0].Report.Status)

	require.NoError(t, results[1].Err)
	assert.Equal(t, "SO-000001", results[1].Report.SalesOrder.SONumber)
}

func TestBatchOptions(t *testing.T) {
	b := NewBatch(nil, nil, WithWorkers(0), WithProcessTimeout(-time.Second))
	assert.Equal(t, 4, b.workers)
	assert.Equal(t, 2*time.Minute, b.timeout)

	b = NewBatch(nil, nil, WithWorkers(8), WithProcessTimeout(time.Second))
	assert.Equal(t, 8, b.workers)
	assert.Equal(t, time.Second, b.timeout)

	assert.Empty(t, b.Run(context.Background(), nil))
}
