package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcingest "github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
)

type fakeUploader struct {
	mu    sync.Mutex
	reqs  []svcingest.UploadRequest
	fails map[string]bool
}

func (f *fakeUploader) UploadResume(_ context.Context, req svcingest.UploadRequest) (svcingest.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[req.Filename] {
		return svcingest.UploadResult{}, errors.New("store unavailable")
	}
	f.reqs = append(f.reqs, req)
	return svcingest.UploadResult{
		EnqueueResult: svcingest.EnqueueResult{JobID: uuid.New()},
		CandidateID:   uuid.New(),
	}, nil
}

func (f *fakeUploader) filenames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.reqs {
		out = append(out, r.Filename)
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestImportDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "Ada Lovelace")
	writeFile(t, filepath.Join(root, "b.docx"), "not really a docx")
	writeFile(t, filepath.Join(root, "c.png"), "image")
	writeFile(t, filepath.Join(root, "f.txt"), "Grace Hopper")
	writeFile(t, filepath.Join(root, ".hidden", "d.txt"), "hidden")
	writeFile(t, filepath.Join(root, "sub", "e.txt"), "Ada Lovelace")

	up := &fakeUploader{fails: map[string]bool{"f.txt": true}}
	vacancyID := uuid.New()
	im := NewImporter(up, vacancyID, nil)

	results, stats, err := im.ImportDirectory(context.Background(), root, true)
	require.NoError(t, err)

	assert.Equal(t, DirStats{Scanned: 5, Matched: 4, Succeeded: 3, Deduplicated: 1, Failed: 1}, stats)
	assert.Equal(t, []string{"a.txt", "b.docx"}, up.filenames())
	require.Len(t, results, 4)

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	assert.Equal(t, "store unavailable", byName["f.txt"].Err)
	assert.True(t, byName["e.txt"].Deduplicated)
	assert.Equal(t, byName["a.txt"].JobID, byName["e.txt"].JobID)
	assert.Equal(t, byName["a.txt"].HashHex, byName["e.txt"].HashHex)
	assert.Len(t, byName["a.txt"].HashHex, 64)

	up.mu.Lock()
	assert.Equal(t, vacancyID.String(), up.reqs[0].VacancyID)
	assert.Equal(t, []byte("Ada Lovelace"), up.reqs[0].Data)
	up.mu.Unlock()
}

func TestImportDirectory_IncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".hidden", "d.txt"), "hidden")
	up := &fakeUploader{}

	_, stats, err := NewImporter(up, uuid.New(), nil).ImportDirectory(context.Background(), root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Succeeded)
}

func TestImportDirectory_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.pdf"), "b")
	up := &fakeUploader{}

	_, stats, err := NewImporter(up, uuid.New(), nil, ".PDF").ImportDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Matched)
	assert.Equal(t, []string{"b.pdf"}, up.filenames())
}

func TestImportDirectory_MissingRoot(t *testing.T) {
	im := NewImporter(&fakeUploader{}, uuid.New(), nil)
	_, _, err := im.ImportDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), true)
	require.Error(t, err)

	_, _, err = im.ImportDirectory(context.Background(), " ", true)
	require.Error(t, err)
}

func TestImportFile_RejectsExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	writeFile(t, path, "x")
	_, err := NewImporter(&fakeUploader{}, uuid.New(), nil).ImportFile(context.Background(), path)
	require.Error(t, err)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.txt"), "already here")

	up := &fakeUploader{}
	im := NewImporter(up, uuid.New(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- im.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true, Debounce: 50 * time.Millisecond})
	}()

	require.Eventually(t, func() bool { return len(up.filenames()) == 1 }, 5*time.Second, 20*time.Millisecond)

	writeFile(t, filepath.Join(root, "new.txt"), "Barbara Liskov")
	writeFile(t, filepath.Join(root, "ignored.png"), "image")
	require.Eventually(t, func() bool { return len(up.filenames()) == 2 }, 5*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []string{"existing.txt", "new.txt"}, up.filenames())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_NoRoots(t *testing.T) {
	err := NewImporter(&fakeUploader{}, uuid.New(), nil).Watch(context.Background(), WatchConfig{})
	require.Error(t, err)
}
