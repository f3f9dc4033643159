package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots    []string      // directories to watch (recursive)
	Debounce time.Duration // coalesce rapid create/write bursts per file
	Logger   *slog.Logger
}

// StartWatcher emits the path of every eligible file that is created, written
// or renamed into a root, once it has been quiet for cfg.Debounce. Both channels
// close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}
	for _, r := range cfg.Roots {
		if err := addTree(w, r); err != nil {
			logger.Error("ingest.watch.add_failed", "root", r, "error", err)
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
				logger.Warn("ingest.watch.close_failed", "error", err)
			}
		}()

		pending := map[string]time.Time{}
		tick := time.NewTicker(tickFor(cfg.Debounce))
		defer tick.Stop()

		flush := func(now time.Time, force bool) {
			for p, last := range pending {
				if !force && now.Sub(last) < cfg.Debounce {
					continue
				}
				delete(pending, p)
				select {
				case evCh <- p:
				case <-ctx.Done():
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					if st, err := os.Stat(e.Name); err == nil && st.IsDir() && !IsHidden(e.Name) {
						if err := addTree(w, e.Name); err != nil {
							logger.Warn("ingest.watch.add_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !Eligible(e.Name) {
					continue
				}
				pending[e.Name] = time.Now()
				if cfg.Debounce <= 0 {
					flush(time.Now(), true)
				}
			case now := <-tick.C:
				flush(now, false)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && IsHidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func tickFor(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return time.Second
	}
	if t := debounce / 4; t > 10*time.Millisecond {
		return t
	}
	return 10 * time.Millisecond
}
