package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/common"
	"github.com/joseph-ayodele/po2so/internal/entity"
	"github.com/joseph-ayodele/po2so/internal/ingest"
)

// Batch fans documents out to a fixed pool of workers. Each document gets its
// own timeout and results come back in input order.
type Batch struct {
	proc    *Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
}

type Option func(*Batch)

func WithWorkers(n int) Option {
	return func(b *Batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(b *Batch) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func NewBatch(proc *Processor, logger *slog.Logger, opts ...Option) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Batch{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

type job struct {
	index int
	doc   *entity.RawDocument
}

// Run processes every document. A document's sequence number is its index
// in docs, so SO numbers do not depend on scheduling.
func (b *Batch) Run(ctx context.Context, docs []*entity.RawDocument) []Result {
	start := time.Now()
	if common.BatchIDFromContext(ctx) == "" {
		ctx = common.WithBatchID(ctx, uuid.NewString())
	}
	logger := common.LoggerWithContext(ctx, b.logger)

	results := make([]Result, len(docs))
	jobs := make(chan job)

	workers := min(b.workers, len(docs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				docCtx, cancel := context.WithTimeout(ctx, b.timeout)
				results[j.index] = b.proc.Process(docCtx, j.doc, j.index)
				cancel()
			}
			logger.Debug("pipeline.worker.stopped", "worker_id", workerID)
		}(i + 1)
	}

	for i, doc := range docs {
		jobs <- job{index: i, doc: doc}
	}
	close(jobs)
	wg.Wait()

	var failed, review int
	for _, r := range results {
		switch r.Report.Status {
		case constants.StatusFailed:
			failed++
		case constants.StatusNeedsReview:
			review++
		}
	}
	logger.Info("pipeline.batch.done",
		"documents", len(docs),
		"workers", workers,
		"failed", failed,
		"needs_review", review,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return results
}

// RunIngested runs the loaded documents and reports ingest failures as failed
// results in their original position. Duplicates are skipped.
func (b *Batch) RunIngested(ctx context.Context, loaded []ingest.Result) []Result {
	var (
		docs  []*entity.RawDocument
		slots []int
	)
	out := make([]Result, 0, len(loaded))
	for _, l := range loaded {
		switch {
		case l.Deduplicated:
			continue
		case l.Err != nil || l.Document == nil:
			err := l.Err
			if err == nil {
				err = common.UnreadableDocumentError(l.SourcePath+": no document loaded", nil)
			}
			out = append(out, Result{
				Report: &entity.ConversionReport{
					Filename: l.SourcePath,
					Status:   constants.StatusFailed,
					Error:    err.Error(),
				},
				Err: err,
			})
		default:
			slots = append(slots, len(out))
			docs = append(docs, l.Document)
			out = append(out, Result{})
		}
	}
	for i, r := range b.Run(ctx, docs) {
		out[slots[i]] = r
	}
	return out
}

// SalesOrders collects the converted orders in result order.
func SalesOrders(results []Result) []*entity.SalesOrderRecord {
	out := make([]*entity.SalesOrderRecord, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Report != nil && r.Report.SalesOrder != nil {
			out = append(out, r.Report.SalesOrder)
		}
	}
	return out
}
