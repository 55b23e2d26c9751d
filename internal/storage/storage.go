// Package storage keeps resume blobs in an S3-compatible object store.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
)

// ObjectStore is the blob contract used by intake and the pipeline.
// Failures are *common.AppError values classified as NOT_FOUND or STORAGE_UNAVAILABLE.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ResumeKey returns a fresh object key for one upload of a candidate's resume.
func ResumeKey(candidateID uuid.UUID, ext string) string {
	ext = constants.NormalizeExt(ext)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("resumes/%s/%s.%s", candidateID, uuid.New(), ext)
}

// ValidKey rejects empty keys and path traversal.
func ValidKey(key string) bool {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
