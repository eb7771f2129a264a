package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/railyard/internal/geometry"
	"github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/snap"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/google/uuid"
)

// alignmentEpsilon is the largest residual accepted after an alignment before
// it is reported as a diagnostic.
const alignmentEpsilon = 1e-6

// Engine runs the layout operations. Every operation takes a layout value and
// returns a new one; the engine itself holds no layout state.
type Engine struct {
	geometries geometry.Source
	detector   snap.Detector
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	strict     bool
	newID      func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTolerance overrides the snap window.
func WithTolerance(tol snap.Tolerance) EngineOption {
	return func(e *Engine) {
		e.detector.Tolerance = tol
	}
}

// WithStrictInvariants makes a broken connection invariant panic instead of
// being logged. Meant for development and tests.
func WithStrictInvariants() EngineOption {
	return func(e *Engine) {
		e.strict = true
	}
}

// WithIDGenerator replaces the item id generator (uuid by default).
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates an engine over a geometry source.
func NewEngine(geometries geometry.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		geometries: geometries,
		detector:   snap.Detector{Tolerance: snap.DefaultTolerance()},
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance returns the snap window in use.
func (e *Engine) Tolerance() snap.Tolerance {
	return e.detector.Tolerance
}

// DragPreview is the non-committed result of dragging an item.
type DragPreview struct {
	ItemID    string       `json:"itemId"`
	Tentative domain.Pose  `json:"tentative"`
	Pose      domain.Pose  `json:"pose"`
	Snap      *snap.Result `json:"snap,omitempty"`
	// Layout is the layout with the dragged group moved to Pose, for display only.
	Layout domain.Layout `json:"layout"`
}

// PlaceItem adds a new item of the given component at pose.
func (e *Engine) PlaceItem(ctx context.Context, layout domain.Layout, componentID string, pose domain.Pose) (domain.Layout, domain.PlacedItem, error) {
	if _, err := e.geometries.Geometry(componentID); err != nil {
		return layout, domain.PlacedItem{}, err
	}
	item := domain.PlacedItem{ID: e.newID(), ComponentID: componentID}.WithPose(pose)

	next := layout.Clone()
	next.Items = append(next.Items, item)
	e.logger.Debug("Item placed", "layout", layout.ID, "item", item.ID, "component", componentID)
	return next, item, nil
}

// PreviewDrag computes where the dragged item's group would end up if released
// at tentative, snapping to the best candidate. The input layout is not modified.
func (e *Engine) PreviewDrag(ctx context.Context, layout domain.Layout, itemID string, tentative domain.Pose) (*DragPreview, error) {
	if _, ok := layout.Item(itemID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	preview := &DragPreview{ItemID: itemID, Tentative: tentative, Pose: tentative}
	if res, ok := e.detector.Detect(layout, e.geometries, itemID, tentative); ok {
		preview.Pose = res.Pose
		preview.Snap = res
	}

	moved, err := MoveGroup(layout, itemID, preview.Pose)
	if err != nil {
		return nil, err
	}
	preview.Layout = moved

	if preview.Snap != nil && e.hooks.OnSnap != nil {
		e.hooks.OnSnap(ctx, &domain.SnapEvent{
			EventBase:    e.event(domain.EventSnap, layout.ID),
			Moving:       preview.Snap.Moving,
			Target:       preview.Snap.Target,
			DistanceMm:   preview.Snap.DistanceMm,
			AngleDiffDeg: preview.Snap.AngleDiffDeg,
		})
	}
	return preview, nil
}

// CommitDrag applies a preview to layout: the dragged group moves to the
// previewed pose and the snapped connection, if any, is created.
func (e *Engine) CommitDrag(ctx context.Context, layout domain.Layout, preview *DragPreview) (domain.Layout, error) {
	if preview == nil {
		return layout, domain.ErrNoPendingDrag
	}

	moved, err := MoveGroup(layout, preview.ItemID, preview.Pose)
	if err != nil {
		return layout, err
	}
	e.moved(ctx, moved, preview.ItemID, preview.Pose.RotationDeg-itemRotation(layout, preview.ItemID))

	next := moved
	if s := preview.Snap; s != nil {
		next, err = graph.Connect(moved, s.Moving, s.Target, e.geometries)
		if err != nil {
			return layout, err
		}
		e.verifyAlignment(ctx, next, s.Moving, s.Target)
		e.connected(ctx, next.ID, domain.Connection{A: s.Moving, B: s.Target})
	}

	e.checkInvariants(next)
	return next, nil
}

// Rotate turns the group of itemID by deltaDeg around the item's own origin.
func (e *Engine) Rotate(ctx context.Context, layout domain.Layout, itemID string, deltaDeg float64) (domain.Layout, error) {
	item, ok := layout.Item(itemID)
	if !ok {
		return layout, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	pose := item.Pose()
	pose.RotationDeg += deltaDeg

	next, err := MoveGroup(layout, itemID, pose)
	if err != nil {
		return layout, err
	}
	e.moved(ctx, next, itemID, deltaDeg)
	return next, nil
}

// ConnectEndpoints aligns the two endpoints and connects them. The side chosen
// by ChooseMoving moves as a group onto the other. When neither side may move
// (both grounded, or both already in one group) the endpoints are connected in
// place only if they are already within the snap window.
func (e *Engine) ConnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) (domain.Layout, error) {
	// Validate against the current layout first so a rejected connect never moves anything.
	if _, err := graph.Connect(layout, a, b, e.geometries); err != nil {
		return layout, err
	}

	moving, fixed, bothGrounded := ChooseMoving(layout, a, b)
	if bothGrounded || graph.SameGroup(layout, a.ItemID, b.ItemID) {
		return e.connectInPlace(ctx, layout, a, b)
	}

	local, err := e.localConnector(layout, moving)
	if err != nil {
		return layout, err
	}
	target, err := e.worldConnector(layout, fixed)
	if err != nil {
		return layout, err
	}
	movingItem, _ := layout.Item(moving.ItemID)
	pose := snap.Align(local, movingItem.Pose(), target)

	moved, err := MoveGroup(layout, moving.ItemID, pose)
	if err != nil {
		return layout, err
	}
	e.moved(ctx, moved, moving.ItemID, pose.RotationDeg-movingItem.RotationDeg)

	next, err := graph.Connect(moved, a, b, e.geometries)
	if err != nil {
		return layout, err
	}
	e.verifyAlignment(ctx, next, moving, fixed)
	e.connected(ctx, next.ID, domain.Connection{A: a, B: b})
	e.checkInvariants(next)
	return next, nil
}

func (e *Engine) connectInPlace(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) (domain.Layout, error) {
	wa, err := e.worldConnector(layout, a)
	if err != nil {
		return layout, err
	}
	wb, err := e.worldConnector(layout, b)
	if err != nil {
		return layout, err
	}
	dist, angle := geometry.Distance(wa, wb), geometry.AntiParallelDiff(wa, wb)
	if !e.detector.Tolerance.Accepts(dist, angle) {
		return layout, &graph.ConnectionError{
			A: a, B: b, Reason: graph.ReasonMisaligned,
			Detail: fmt.Sprintf("neither side can move and endpoints are %.3fmm / %.3f° apart", dist, angle),
		}
	}

	next, err := graph.Connect(layout, a, b, e.geometries)
	if err != nil {
		return layout, err
	}
	e.connected(ctx, next.ID, domain.Connection{A: a, B: b})
	e.checkInvariants(next)
	return next, nil
}

// DisconnectEndpoints removes the connection between a and b, if any.
func (e *Engine) DisconnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) domain.Layout {
	next := graph.Disconnect(layout, a, b)
	if len(next.Connections) < len(layout.Connections) {
		e.disconnected(ctx, next.ID, domain.Connection{A: a, B: b})
	}
	return next
}

// DeleteItem removes an item and every connection that references it.
func (e *Engine) DeleteItem(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error) {
	if _, ok := layout.Item(itemID); !ok {
		return layout, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	next := graph.RemoveItem(layout, itemID)
	for _, c := range layout.Connections {
		if c.Involves(itemID) {
			e.disconnected(ctx, next.ID, c)
		}
	}
	e.checkInvariants(next)
	return next, nil
}

// ToggleGrounded flips the grounded flag of an item.
func (e *Engine) ToggleGrounded(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error) {
	i := layout.ItemIndex(itemID)
	if i < 0 {
		return layout, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	next := layout.Clone()
	next.Items[i].IsGrounded = !next.Items[i].IsGrounded
	e.logger.Debug("Grounding toggled", "layout", layout.ID, "item", itemID, "grounded", next.Items[i].IsGrounded)
	return next, nil
}

// Geometry returns the local geometry of a catalog component.
func (e *Engine) Geometry(componentID string) (domain.ComponentGeometry, error) {
	return e.geometries.Geometry(componentID)
}

// WorldConnectors returns the connectors of a placed item in world space.
func (e *Engine) WorldConnectors(item domain.PlacedItem) (map[string]domain.Connector, error) {
	g, err := e.geometries.Geometry(item.ComponentID)
	if err != nil {
		return nil, err
	}
	return geometry.WorldConnectors(g, item.Pose()), nil
}

// WorldPath returns the drawable path of a placed item in world space.
func (e *Engine) WorldPath(item domain.PlacedItem) (domain.PathDescriptor, error) {
	g, err := e.geometries.Geometry(item.ComponentID)
	if err != nil {
		return nil, err
	}
	return g.Path.Transform(item.Pose()), nil
}

func (e *Engine) localConnector(layout domain.Layout, ref domain.EndpointRef) (domain.Connector, error) {
	item, ok := layout.Item(ref.ItemID)
	if !ok {
		return domain.Connector{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, ref.ItemID)
	}
	g, err := e.geometries.Geometry(item.ComponentID)
	if err != nil {
		return domain.Connector{}, err
	}
	c, ok := g.Connector(ref.ConnectorKey)
	if !ok {
		return domain.Connector{}, &graph.ConnectionError{A: ref, B: ref, Reason: graph.ReasonUnknownConnector}
	}
	return c, nil
}

func (e *Engine) worldConnector(layout domain.Layout, ref domain.EndpointRef) (domain.Connector, error) {
	c, err := e.localConnector(layout, ref)
	if err != nil {
		return domain.Connector{}, err
	}
	item, _ := layout.Item(ref.ItemID)
	return geometry.ToWorld(c, item.Pose()), nil
}

// verifyAlignment reports connections whose endpoints do not coincide after an
// alignment. The operation still commits.
func (e *Engine) verifyAlignment(ctx context.Context, layout domain.Layout, moving, fixed domain.EndpointRef) {
	wm, err := e.worldConnector(layout, moving)
	if err != nil {
		return
	}
	wf, err := e.worldConnector(layout, fixed)
	if err != nil {
		return
	}
	dist, angle := geometry.Distance(wm, wf), geometry.AntiParallelDiff(wm, wf)
	if dist <= alignmentEpsilon && math.Abs(angle) <= alignmentEpsilon {
		return
	}

	err = fmt.Errorf("%w: %s to %s off by %gmm / %g°", domain.ErrToleranceExceeded, moving, fixed, dist, angle)
	e.logger.Warn("Inexact alignment", "layout", layout.ID, "moving", moving.String(), "fixed", fixed.String(),
		"distance_mm", dist, "angle_deg", angle)
	if e.hooks.OnDiagnostic != nil {
		e.hooks.OnDiagnostic(ctx, &domain.DiagnosticEvent{
			EventBase:   e.event(domain.EventDiagnostic, layout.ID),
			Err:         err,
			Message:     err.Error(),
			DeviationMm: dist,
		})
	}
}

func (e *Engine) checkInvariants(layout domain.Layout) {
	err := graph.CheckConsistency(layout)
	if err == nil {
		return
	}
	if e.strict {
		panic(fmt.Sprintf("railyard: broken layout invariant: %v", err))
	}
	e.logger.Error("Broken layout invariant", "layout", layout.ID, "error", err)
}

func (e *Engine) moved(ctx context.Context, layout domain.Layout, pivotID string, delta float64) {
	members := graph.ConnectedGroup(layout, pivotID)
	e.logger.Debug("Group moved", "layout", layout.ID, "pivot", pivotID, "members", len(members), "delta_deg", delta)
	if e.hooks.OnMove != nil {
		e.hooks.OnMove(ctx, &domain.MoveEvent{
			EventBase:        e.event(domain.EventMove, layout.ID),
			PivotID:          pivotID,
			Members:          members,
			DeltaRotationDeg: delta,
		})
	}
}

func (e *Engine) connected(ctx context.Context, layoutID string, c domain.Connection) {
	e.logger.Debug("Endpoints connected", "layout", layoutID, "a", c.A.String(), "b", c.B.String())
	if e.hooks.OnConnect != nil {
		e.hooks.OnConnect(ctx, &domain.ConnectionEvent{EventBase: e.event(domain.EventConnect, layoutID), Connection: c})
	}
}

func (e *Engine) disconnected(ctx context.Context, layoutID string, c domain.Connection) {
	e.logger.Debug("Endpoints disconnected", "layout", layoutID, "a", c.A.String(), "b", c.B.String())
	if e.hooks.OnDisconnect != nil {
		e.hooks.OnDisconnect(ctx, &domain.ConnectionEvent{EventBase: e.event(domain.EventDisconnect, layoutID), Connection: c})
	}
}

func (e *Engine) event(t domain.EventType, layoutID string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, LayoutID: layoutID}
}

func itemRotation(layout domain.Layout, itemID string) float64 {
	it, _ := layout.Item(itemID)
	return it.RotationDeg
}

// IsRejection reports whether err is an expected, user-facing rejection rather
// than an internal failure.
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrIncompatibleConnection) ||
		errors.Is(err, domain.ErrGrounded) ||
		errors.Is(err, domain.ErrItemNotFound) ||
		errors.Is(err, domain.ErrComponentNotFound) ||
		errors.Is(err, domain.ErrNoPendingDrag)
}
