// Package loam loads a component catalog from a Loam repository: a directory
// of Markdown, YAML or JSON documents, one component per document.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/railyard/internal/catalog"
	"github.com/aretw0/railyard/pkg/domain"
)

// Loader adapts a Loam repository to ports.CatalogLoader and ports.Watchable.
type Loader struct {
	Repo    *loam.TypedRepository[catalog.Entry]
	id      string
	widthMm float64
}

// Option configures the Loader.
type Option func(*Loader)

// WithCatalogID sets the track system id of the catalog.
func WithCatalogID(id string) Option {
	return func(l *Loader) {
		l.id = id
	}
}

// WithWidth sets the catalog gauge envelope.
func WithWidth(widthMm float64) Option {
	return func(l *Loader) {
		l.widthMm = widthMm
	}
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[catalog.Entry], opts ...Option) *Loader {
	l := &Loader{Repo: repo}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load lists every document and builds the catalog. A document without an
// explicit id is named after its file; two documents resolving to the same id
// are rejected.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	entries := make([]catalog.Entry, 0, len(docs))
	for _, doc := range docs {
		e := doc.Data
		if e.ID == "" {
			e.ID = trimExtension(doc.ID)
		}
		if existing, ok := seen[e.ID]; ok {
			return nil, fmt.Errorf("collision detected: component '%s' is defined in both '%s' and '%s'", e.ID, existing, doc.ID)
		}
		seen[e.ID] = doc.ID
		if e.Name == "" {
			content := doc.Content
			if content == "" {
				// List returns metadata only; the body needs a Get.
				full, err := l.Repo.Get(ctx, doc.ID)
				if err != nil {
					return nil, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
				}
				content = full.Content
			}
			e.Name = title(content)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	return catalog.Build(catalog.Document{ID: l.id, WidthMm: l.widthMm, Components: entries})
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// title returns the first non-empty line of a Markdown body, without heading marks.
func title(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
