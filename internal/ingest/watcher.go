package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // import files already present before watching
	SkipHidden  bool
	// Debounce coalesces the create/write bursts of a file being copied in.
	Debounce time.Duration
}

// Watch imports files as they appear under cfg.Roots until ctx ends.
func (im *Importer) Watch(ctx context.Context, cfg WatchConfig) error {
	if len(cfg.Roots) == 0 {
		return errors.New("no roots provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		im.log.Error("ingest.watch.create_failed", zap.Error(err))
		return err
	}
	defer func() { _ = w.Close() }()

	for _, root := range cfg.Roots {
		if err := im.addTree(w, root, cfg.SkipHidden); err != nil {
			im.log.Error("ingest.watch.add_root_failed", zap.String("root", root), zap.Error(err))
			return err
		}
	}
	if cfg.InitialScan {
		for _, root := range cfg.Roots {
			if _, _, err := im.ImportDirectory(ctx, root, cfg.SkipHidden); err != nil {
				return err
			}
		}
	}
	im.log.Info("ingest.watch.started", zap.Strings("roots", cfg.Roots))

	pending := map[string]time.Time{}
	tick := time.NewTicker(cfg.Debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			im.log.Info("ingest.watch.stopped")
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if cfg.SkipHidden && IsHidden(e.Name) {
				continue
			}
			if e.Has(fsnotify.Create) {
				if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
					if err := im.addTree(w, e.Name, cfg.SkipHidden); err != nil {
						im.log.Warn("ingest.watch.add_dir_failed", zap.String("path", e.Name), zap.Error(err))
					}
					continue
				}
			}
			if im.allowed(e.Name) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)) {
				pending[e.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.log.Warn("ingest.watch.error", zap.Error(err))
		case now := <-tick.C:
			for path, last := range pending {
				if now.Sub(last) < cfg.Debounce {
					continue
				}
				delete(pending, path)
				if _, err := os.Stat(path); err != nil {
					continue
				}
				if _, err := im.ImportFile(ctx, path); err != nil {
					im.log.Warn("ingest.file.failed", zap.String("path", path), zap.Error(err))
				}
			}
		}
	}
}

func (im *Importer) addTree(w *fsnotify.Watcher, root string, skipHidden bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
