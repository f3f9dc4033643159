package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// Sink receives each discovered file; async.ProcessorQueue enqueue wraps into one.
type Sink func(ctx context.Context, path string) error

type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// SweepDirectory walks root once, skipping hidden entries, and hands every
// eligible file to sink. A nil deduper disables content deduplication.
func SweepDirectory(ctx context.Context, root string, dedup *Deduper, sink Sink, logger *slog.Logger) ([]FileResult, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Eligible(path) {
			return nil
		}
		stats.Matched++

		res := FileResult{Path: path}
		if dedup != nil {
			hash, dup, err := dedup.Check(path)
			if err != nil {
				res.Err = err.Error()
				results = append(results, res)
				stats.Failed++
				return nil
			}
			res.HashHex, res.Deduplicated = hash, dup
			if dup {
				results = append(results, res)
				stats.Deduplicated++
				return nil
			}
		}
		if err := sink(ctx, path); err != nil {
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		return nil
	})

	logger.Info("ingest.sweep.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
