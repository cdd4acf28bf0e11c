package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/po2so/constants"
	"github.com/joseph-ayodele/po2so/internal/entity"
)

// Loader reads purchase order files from the local filesystem into RawDocuments.
// Content already seen by this Loader is reported as deduplicated. Not safe for concurrent use.
type Loader struct {
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	SkipHidden  bool

	logger *slog.Logger
	seen   map[string]*entity.RawDocument
}

func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		SkipHidden: true,
		logger:     logger,
		seen:       make(map[string]*entity.RawDocument),
	}
}

func (l *Loader) allowed(ext string) bool {
	ext = constants.NormalizeExt(ext)
	if l.AllowedExts == nil {
		return AllowedExt(ext)
	}
	_, ok := l.AllowedExts[ext]
	return ok
}

// LoadPath reads a single file, sniffs its format and hashes its content.
func (l *Loader) LoadPath(ctx context.Context, path string) (Result, error) {
	out := Result{SourcePath: path}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	data, err := os.ReadFile(abs)
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}
	doc, err := entity.NewRawDocument(filepath.Base(abs), data)
	if err != nil {
		return out, err
	}

	if prev, ok := l.seen[doc.ContentHash]; ok {
		l.logger.Info("ingest.dedup", "path", abs, "duplicate_of", prev.Filename, "hash", doc.ContentHash)
		out.Document = prev
		out.Deduplicated = true
		return out, nil
	}
	l.seen[doc.ContentHash] = doc
	out.Document = doc

	l.logger.Debug("ingest.ok", "path", abs, "document_id", doc.ID, "format", doc.Format, "mime", doc.MIME, "bytes", doc.Size())
	return out, nil
}

// LoadDirectory walks root, filters by extension, skips hidden entries if requested,
// and calls LoadPath for each file. Returns per-file results + aggregate stats.
func (l *Loader) LoadDirectory(ctx context.Context, root string) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr})
			stats.Failed++
			return nil
		}
		if l.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !l.allowed(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := l.LoadPath(ctx, path)
		if err != nil {
			l.logger.Warn("ingest.file.failed", "path", path, "error", err)
			r.Err = err
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Load accepts a mix of file and directory paths, in order.
// Explicit file paths bypass the extension filter; their content decides the format.
func (l *Loader) Load(ctx context.Context, paths []string) ([]Result, DirStats, error) {
	var results []Result
	var stats DirStats
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			results = append(results, Result{SourcePath: p, Err: err})
			stats.Scanned++
			stats.Failed++
			continue
		}
		if info.IsDir() {
			rs, st, err := l.LoadDirectory(ctx, p)
			results = append(results, rs...)
			stats.add(st)
			if err != nil {
				return results, stats, err
			}
			continue
		}

		stats.Scanned++
		stats.Matched++
		r, err := l.LoadPath(ctx, p)
		if err != nil {
			l.logger.Warn("ingest.file.failed", "path", p, "error", err)
			r.Err = err
			stats.Failed++
		} else {
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
		}
		results = append(results, r)
	}
	l.logger.Info("ingest.done",
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
