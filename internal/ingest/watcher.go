package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	InitialScan bool     // if true, walk roots and emit existing files
	Debounce    time.Duration
}

// Watch emits paths of allowed files created or written under the roots until
// ctx is done. Bursts of events for the same path are coalesced by Debounce.
func (i *Ingestor) Watch(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		i.logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && i.allowed(filepath.Ext(path)) && !IsHidden(path) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			i.logger.Error("failed to add root directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				i.logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		var timer *time.Timer
		var fire <-chan time.Time
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						if err := w.Add(e.Name); err != nil {
							i.logger.Warn("failed to watch new directory", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if IsHidden(e.Name) || !i.allowed(filepath.Ext(e.Name)) {
					continue
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(cfg.Debounce)
				fire = timer.C
			case <-fire:
				fire = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				i.logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
