// Package ingest imports resume files from local directories, once or by
// watching them, and hands each file to the upload intake.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	svcingest "github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
)

// Uploader is the intake the importer feeds.
type Uploader interface {
	UploadResume(ctx context.Context, req svcingest.UploadRequest) (svcingest.UploadResult, error)
}

// FileResult is the per-file import outcome.
type FileResult struct {
	Path         string
	JobID        uuid.UUID
	CandidateID  uuid.UUID
	Deduplicated bool
	HashHex      string
	Err          string
}

// DirStats summarizes a directory import.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Importer uploads files for one vacancy. Files with identical content are
// uploaded once per Importer.
type Importer struct {
	uploader  Uploader
	vacancyID uuid.UUID
	exts      map[string]struct{}
	log       *zap.Logger

	mu   sync.Mutex
	seen map[string]FileResult
}

// NewImporter accepts files whose extension is in exts, or pdf, docx and txt
// when exts is empty.
func NewImporter(up Uploader, vacancyID uuid.UUID, log *zap.Logger, exts ...string) *Importer {
	return &Importer{
		uploader:  up,
		vacancyID: vacancyID,
		exts:      extSet(exts),
		log:       logger.OrNop(log),
		seen:      map[string]FileResult{},
	}
}

// ImportFile uploads one file and enqueues its ingestion job.
func (im *Importer) ImportFile(ctx context.Context, path string) (FileResult, error) {
	res := FileResult{Path: path}
	if !im.allowed(path) {
		return res, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)
	res.HashHex = hex.EncodeToString(sum[:])

	im.mu.Lock()
	prev, dup := im.seen[res.HashHex]
	im.mu.Unlock()
	if dup {
		prev.Path = path
		prev.Deduplicated = true
		im.log.Info("ingest.file.duplicate", zap.String("path", path), zap.String("job_id", prev.JobID.String()))
		return prev, nil
	}

	out, err := im.uploader.UploadResume(ctx, svcingest.UploadRequest{
		VacancyID: im.vacancyID.String(),
		Filename:  filepath.Base(path),
		Data:      data,
	})
	if err != nil {
		return res, err
	}
	res.JobID = out.JobID
	res.CandidateID = out.CandidateID
	res.Deduplicated = out.Deduplicated

	im.mu.Lock()
	im.seen[res.HashHex] = res
	im.mu.Unlock()
	im.log.Info("ingest.file.imported",
		zap.String("path", path),
		zap.String("job_id", res.JobID.String()),
		zap.String("candidate_id", res.CandidateID.String()))
	return res, nil
}
