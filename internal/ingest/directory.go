package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImportDirectory walks root and imports every matching file. A failing file
// is recorded and the walk continues.
func (im *Importer) ImportDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !im.allowed(path) {
			return nil
		}
		stats.Matched++

		res, err := im.ImportFile(ctx, path)
		if err != nil {
			res.Err = err.Error()
			results = append(results, res)
			stats.Failed++
			im.log.Warn("ingest.file.failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		results = append(results, res)
		stats.Succeeded++
		if res.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	im.log.Info("ingest.directory.done",
		zap.String("root", root),
		zap.Uint32("scanned", stats.Scanned),
		zap.Uint32("matched", stats.Matched),
		zap.Uint32("succeeded", stats.Succeeded),
		zap.Uint32("deduplicated", stats.Deduplicated),
		zap.Uint32("failed", stats.Failed))
	return results, stats, nil
}
