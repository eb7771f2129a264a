package railyard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/railyard/internal/catalog"
	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/runtime"
	"github.com/aretw0/railyard/internal/snap"
	"github.com/aretw0/railyard/pkg/adapters/file"
	loamAdapter "github.com/aretw0/railyard/pkg/adapters/loam"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/ports"
	"github.com/aretw0/railyard/pkg/session"
)

// DragPreview is the non-committed result of dragging an item.
type DragPreview = runtime.DragPreview

// Engine is the high-level entry point for the Railyard library.
// It owns the catalog, caches component geometry and runs the layout operations.
type Engine struct {
	runtime     *runtime.Engine
	provider    *geometry.Provider
	loader      ports.CatalogLoader
	hooks       domain.LifecycleHooks
	tolerance   *snap.Tolerance
	runtimeOpts []runtime.EngineOption
	logger      *slog.Logger
	Name        string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithCatalogLoader injects a custom CatalogLoader, bypassing the default file/Loam detection.
func WithCatalogLoader(l ports.CatalogLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTolerance overrides the snap window (8mm / 15° by default).
func WithTolerance(distanceMm, angleDeg float64) Option {
	return func(e *Engine) {
		e.tolerance = &snap.Tolerance{DistanceMm: distanceMm, AngleDeg: angleDeg}
	}
}

// WithStrictInvariants makes the engine panic on a broken layout invariant.
func WithStrictInvariants() Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStrictInvariants())
	}
}

// New loads the catalog and initializes the engine.
// A catalog path ending in .yaml, .yml or .json is read as a single file; any
// other path is opened as a Loam repository with one component per document.
// If WithCatalogLoader is provided, catalogPath may be empty.
func New(ctx context.Context, catalogPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.loader == nil {
		if catalogPath == "" {
			return nil, fmt.Errorf("catalogPath is required when no custom loader is provided")
		}
		loader, name, err := defaultLoader(catalogPath, eng.logger)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
		eng.Name = name
	} else if catalogPath != "" {
		eng.Name = trimExt(filepath.Base(catalogPath))
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("catalog", eng.Name)
	}

	cat, err := eng.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	for _, err := range catalog.Check(cat) {
		eng.logger.Warn("Catalog definition will use a fallback", "err", err)
	}

	eng.provider = geometry.NewProvider(cat, geometry.WithLogger(eng.logger))

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	if eng.tolerance != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTolerance(*eng.tolerance))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(eng.provider, runtimeOpts...)

	return eng, nil
}

func defaultLoader(path string, logger *slog.Logger) (ports.CatalogLoader, string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path: %w", err)
	}
	name := trimExt(filepath.Base(absPath))

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yaml", ".yml", ".json":
		return file.NewCatalogLoader(absPath, file.WithLogger(logger)), name, nil
	}

	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		return nil, "", fmt.Errorf("catalog path %q is neither a catalog file nor a directory", path)
	}

	// Read-only: the engine never writes catalog documents.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize loam: %w", err)
	}
	typedRepo := loam.NewTypedRepository[catalog.Entry](repo)
	return loamAdapter.New(typedRepo, loamAdapter.WithCatalogID(name)), name, nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Catalog returns the catalog currently in use.
func (e *Engine) Catalog() *domain.Catalog {
	return e.provider.Catalog()
}

// Reload reads the catalog again and drops every cached geometry. On failure
// the previous catalog stays in use.
func (e *Engine) Reload(ctx context.Context) error {
	cat, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	for _, err := range catalog.Check(cat) {
		e.logger.Warn("Catalog definition will use a fallback", "err", err)
	}
	e.provider.Reset(cat)
	e.logger.Info("Catalog reloaded", "components", len(cat.Components))
	return nil
}

// Watch reloads the catalog whenever the loader reports a change and forwards
// the name of the changed source. Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		for name := range events {
			if err := e.Reload(ctx); err != nil {
				e.logger.Error("Catalog reload failed, keeping previous catalog", "source", name, "err", err)
				continue
			}
			select {
			case out <- name:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Loader returns the underlying CatalogLoader used by the engine.
func (e *Engine) Loader() ports.CatalogLoader {
	return e.loader
}

// NewController starts an interactive editing session on layout.
func (e *Engine) NewController(layout domain.Layout) *session.Controller {
	return session.NewController(e.runtime, layout)
}

// PlaceItem adds a new item of componentID at pose.
func (e *Engine) PlaceItem(ctx context.Context, layout domain.Layout, componentID string, pose domain.Pose) (domain.Layout, domain.PlacedItem, error) {
	return e.runtime.PlaceItem(ctx, layout, componentID, pose)
}

// PreviewDrag computes the snapped drop position of a dragged item without committing it.
func (e *Engine) PreviewDrag(ctx context.Context, layout domain.Layout, itemID string, tentative domain.Pose) (*runtime.DragPreview, error) {
	return e.runtime.PreviewDrag(ctx, layout, itemID, tentative)
}

// CommitDrag applies a drag preview, creating the snapped connection if any.
func (e *Engine) CommitDrag(ctx context.Context, layout domain.Layout, preview *runtime.DragPreview) (domain.Layout, error) {
	return e.runtime.CommitDrag(ctx, layout, preview)
}

// Rotate turns the connected group of itemID by deltaDeg.
func (e *Engine) Rotate(ctx context.Context, layout domain.Layout, itemID string, deltaDeg float64) (domain.Layout, error) {
	return e.runtime.Rotate(ctx, layout, itemID, deltaDeg)
}

// ConnectEndpoints aligns two endpoints and connects them.
func (e *Engine) ConnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) (domain.Layout, error) {
	return e.runtime.ConnectEndpoints(ctx, layout, a, b)
}

// DisconnectEndpoints removes the connection between a and b, if any.
func (e *Engine) DisconnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) domain.Layout {
	return e.runtime.DisconnectEndpoints(ctx, layout, a, b)
}

// DeleteItem removes an item and its connections.
func (e *Engine) DeleteItem(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error) {
	return e.runtime.DeleteItem(ctx, layout, itemID)
}

// ToggleGrounded flips the grounded flag of an item.
func (e *Engine) ToggleGrounded(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error) {
	return e.runtime.ToggleGrounded(ctx, layout, itemID)
}

// Geometry returns the local geometry of a catalog component.
func (e *Engine) Geometry(componentID string) (domain.ComponentGeometry, error) {
	return e.runtime.Geometry(componentID)
}

// WorldConnectors returns the connectors of a placed item in world space.
func (e *Engine) WorldConnectors(item domain.PlacedItem) (map[string]domain.Connector, error) {
	return e.runtime.WorldConnectors(item)
}

// WorldPath returns the drawable path of a placed item in world space.
func (e *Engine) WorldPath(item domain.PlacedItem) (domain.PathDescriptor, error) {
	return e.runtime.WorldPath(item)
}
