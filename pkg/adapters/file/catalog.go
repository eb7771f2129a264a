package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/railyard/internal/catalog"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// CatalogLoader implements ports.CatalogLoader and ports.Watchable for a
// single YAML or JSON catalog file.
type CatalogLoader struct {
	Path     string
	debounce time.Duration
	logger   *slog.Logger
}

// CatalogOption configures a CatalogLoader.
type CatalogOption func(*CatalogLoader)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) CatalogOption {
	return func(l *CatalogLoader) {
		l.debounce = d
	}
}

// WithLogger sets the logger used by the watcher.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(l *CatalogLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewCatalogLoader creates a loader for the catalog file at path.
func NewCatalogLoader(path string, opts ...CatalogOption) *CatalogLoader {
	l := &CatalogLoader{Path: path, debounce: DefaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and builds the catalog.
func (l *CatalogLoader) Load(ctx context.Context) (*domain.Catalog, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", l.Path, err)
	}
	cat, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}
	if cat.ID == "" {
		cat.ID = trimExt(filepath.Base(l.Path))
	}
	return cat, nil
}

// Watch implements ports.Watchable. The parent directory is watched so that
// atomic replace-on-save (rename over the file) is seen as well.
func (l *CatalogLoader) Watch(ctx context.Context) (<-chan string, error) {
	abs, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start catalog watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs || evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				timer = time.After(l.debounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("Catalog watcher error", "path", abs, "err", err)
			case <-timer:
				timer = nil
				select {
				case ch <- filepath.Base(abs):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
