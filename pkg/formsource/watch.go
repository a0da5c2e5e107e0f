package formsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 300 * time.Millisecond

type watchConfig struct {
	logger   *zap.Logger
	debounce time.Duration
	onReload func(ids []string, err error)
}

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(cfg *watchConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(cfg *watchConfig) {
		if d > 0 {
			cfg.debounce = d
		}
	}
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(ids []string, err error)) WatchOption {
	return func(cfg *watchConfig) {
		cfg.onReload = fn
	}
}

// Watch reloads the store from dir whenever a definition file is written,
// created, renamed or removed, until ctx is done. A failed reload keeps the
// previous definitions.
func (s *Store) Watch(ctx context.Context, dir string, opts ...WatchOption) error {
	cfg := watchConfig{logger: zap.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("formsource: watch %s: %w", dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("formsource: create watcher: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return fmt.Errorf("formsource: watch %s: %w", abs, err)
	}

	reloads := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isDefinitionFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(cfg.debounce, func() {
					select {
					case reloads <- struct{}{}:
					default:
					}
				})
			case <-reloads:
				err := s.Reload(os.DirFS(abs))
				ids := s.IDs()
				if err != nil {
					cfg.logger.Warn("form reload failed", zap.String("dir", abs), zap.Error(err))
				} else {
					cfg.logger.Info("forms reloaded", zap.String("dir", abs), zap.Strings("forms", ids))
				}
				if cfg.onReload != nil {
					cfg.onReload(ids, err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				cfg.logger.Warn("form watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
