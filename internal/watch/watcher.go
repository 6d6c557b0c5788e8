// Package watch monitors drop directories for new archives.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Allowed extensions for discovery (lowercase, without '.').
var defaultExts = map[string]struct{}{
	"zip": {},
}

type Config struct {
	Roots        []string // directories to watch (recursive)
	AllowedExts  map[string]struct{}
	IgnoreSuffix string        // paths ending in this are never emitted
	InitialScan  bool          // if true, walk roots and emit existing files
	Debounce     time.Duration // coalesce rapid update/rename bursts
}

// Start watches the configured roots and emits paths of archives to process.
// Both channels close when ctx is done.
func Start(ctx context.Context, cfg Config, logger *zap.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = defaultExts
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", zap.Error(err))
		return nil, nil, err
	}

	// Add roots recursively
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && eligible(path, cfg) {
				select {
				case evCh <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", zap.String("root", r), zap.Error(err))
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer w.Close()

		var timer *time.Timer
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-w.Events:
				// A created directory needs its own watch.
				if e.Op&fsnotify.Create == fsnotify.Create {
					tryAddDir(w, e.Name)
				}

				if eligible(e.Name, cfg) && (e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename)) != 0 {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, sendPending)
					} else {
						sendPending()
					}
				}
			case err := <-w.Errors:
				logger.Error("watcher error", zap.Error(err))
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func eligible(path string, cfg Config) bool {
	if cfg.IgnoreSuffix != "" && strings.HasSuffix(path, cfg.IgnoreSuffix) {
		return false
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := cfg.AllowedExts[ext]
	return ok
}

func tryAddDir(w *fsnotify.Watcher, path string) {
	// Best-effort: non-directories fail to add and that is fine.
	_ = w.Add(path)
}
