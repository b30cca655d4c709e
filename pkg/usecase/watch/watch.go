package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

// DefaultDebounce collapses bursts of writes into one reload
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is called after each successful reload with the new record count
type ReloadFunc func(ctx context.Context, count int) error

// UseCase reloads a record store whenever its source file changes
type UseCase struct {
	path     string
	store    *record.Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload ReloadFunc
}

// Option is a functional option for UseCase
type Option func(*UseCase)

func WithDebounce(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.debounce = d
	}
}

// WithOnReload runs fn after each reload. Its error is logged.
func WithOnReload(fn ReloadFunc) Option {
	return func(uc *UseCase) {
		uc.onReload = fn
	}
}

// New starts watching the directory of path. The directory is watched
// instead of the file so that atomic replacement by rename is seen.
func New(path string, store *record.Store, opts ...Option) (*UseCase, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create file watcher")
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, goerr.Wrap(err, "failed to watch directory", goerr.V("dir", dir))
	}

	uc := &UseCase{
		path:     filepath.Clean(path),
		store:    store,
		watcher:  watcher,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc, nil
}

// Run handles file events until ctx is canceled
func (u *UseCase) Run(ctx context.Context) error {
	logger := logging.From(ctx)
	logger.Info("watching record source", "path", u.path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-u.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != u.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("record source changed", "op", event.Op.String())
			pending = time.After(u.debounce)

		case <-pending:
			pending = nil
			u.reload(ctx)

		case err, ok := <-u.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}

func (u *UseCase) reload(ctx context.Context) {
	logger := logging.From(ctx)

	records, err := u.store.Reload(ctx)
	if err != nil {
		logger.Warn("failed to reload records, keeping previous set", "error", err)
		return
	}
	logger.Info("records reloaded", "count", len(records))

	if u.onReload == nil {
		return
	}
	if err := u.onReload(ctx, len(records)); err != nil {
		logger.Warn("reload hook failed", "error", err)
	}
}

func (u *UseCase) Close() error {
	if err := u.watcher.Close(); err != nil {
		return goerr.Wrap(err, "failed to close file watcher")
	}
	return nil
}
