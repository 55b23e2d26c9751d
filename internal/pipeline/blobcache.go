package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// BlobCache keeps downloaded resumes on local disk between the download and
// extraction stages, and across reruns of the same job.
type BlobCache struct {
	dir string
}

func NewBlobCache(dir string) *BlobCache {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "hiring-pipeline-blobs")
	}
	return &BlobCache{dir: dir}
}

// path derives the file name from the job and its blob key so a rerun
// pointing at a new blob never reads stale bytes.
func (c *BlobCache) path(jobID uuid.UUID, blobKey string) string {
	sum := sha256.Sum256([]byte(blobKey))
	return filepath.Join(c.dir, jobID.String()+"-"+hex.EncodeToString(sum[:8]))
}

func (c *BlobCache) Put(jobID uuid.UUID, blobKey string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create blob cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".blob-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	return os.Rename(tmp.Name(), c.path(jobID, blobKey))
}

// Get reports false when nothing is cached for the job and key.
func (c *BlobCache) Get(jobID uuid.UUID, blobKey string) ([]byte, bool, error) {
	b, err := os.ReadFile(c.path(jobID, blobKey))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *BlobCache) Remove(jobID uuid.UUID, blobKey string) error {
	err := os.Remove(c.path(jobID, blobKey))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
