package ingest

import (
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	Document     *entity.RawDocument
	Deduplicated bool
	Err          error
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

func (s *DirStats) add(o DirStats) {
	s.Scanned += o.Scanned
	s.Matched += o.Matched
	s.Succeeded += o.Succeeded
	s.Deduplicated += o.Deduplicated
	s.Failed += o.Failed
}

// Documents returns the loaded documents in ingest order, skipping failures and duplicates.
func Documents(results []Result) []*entity.RawDocument {
	out := make([]*entity.RawDocument, 0, len(results))
	for _, r := range results {
		if r.Err != nil || r.Deduplicated || r.Document == nil {
			continue
		}
		out = append(out, r.Document)
	}
	return out
}
