package session

import (
	"context"
	"fmt"

	"github.com/aretw0/railyard/internal/runtime"
	"github.com/aretw0/railyard/pkg/domain"
)

// Controller drives one layout from an interactive editor. It holds the
// committed layout, the selected item and at most one pending drag preview.
//
// A Controller is not safe for concurrent use: editor events are expected to
// be delivered one at a time.
type Controller struct {
	engine   *runtime.Engine
	layout   domain.Layout
	selected string
	pending  *runtime.DragPreview
}

// NewController starts editing layout with engine.
func NewController(engine *runtime.Engine, layout domain.Layout) *Controller {
	return &Controller{engine: engine, layout: layout.Clone()}
}

// Layout returns the committed layout. Pending previews are not part of it.
func (c *Controller) Layout() domain.Layout {
	return c.layout.Clone()
}

// Selected returns the selected item id, or "" when nothing is selected.
func (c *Controller) Selected() string {
	return c.selected
}

// Pending returns the pending drag preview, if any.
func (c *Controller) Pending() *runtime.DragPreview {
	return c.pending
}

// Select makes itemID the selected item. An empty id clears the selection.
func (c *Controller) Select(itemID string) error {
	if itemID != "" {
		if _, ok := c.layout.Item(itemID); !ok {
			return fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
		}
	}
	c.selected = itemID
	return nil
}

// Place drops a new catalog component at pose and selects it.
func (c *Controller) Place(ctx context.Context, componentID string, pose domain.Pose) (domain.PlacedItem, error) {
	next, item, err := c.engine.PlaceItem(ctx, c.layout, componentID, pose)
	if err != nil {
		return domain.PlacedItem{}, err
	}
	c.commit(next)
	c.selected = item.ID
	return item, nil
}

// PreviewDrag recomputes the pending preview for dragging itemID to tentative.
// The committed layout is never touched. A grounded group yields no preview
// and the previous one is dropped.
func (c *Controller) PreviewDrag(ctx context.Context, itemID string, tentative domain.Pose) (*runtime.DragPreview, error) {
	preview, err := c.engine.PreviewDrag(ctx, c.layout, itemID, tentative)
	if err != nil {
		c.pending = nil
		return nil, err
	}
	c.pending = preview
	return preview, nil
}

// CommitDrag applies the pending preview. It fails with domain.ErrNoPendingDrag
// when there is nothing to commit.
func (c *Controller) CommitDrag(ctx context.Context) (domain.Layout, error) {
	if c.pending == nil {
		return c.Layout(), domain.ErrNoPendingDrag
	}
	next, err := c.engine.CommitDrag(ctx, c.layout, c.pending)
	c.pending = nil
	if err != nil {
		return c.Layout(), err
	}
	c.commit(next)
	return c.Layout(), nil
}

// CancelDrag discards the pending preview.
func (c *Controller) CancelDrag() {
	c.pending = nil
}

// RotateSelected rotates the group of the selected item by deltaDeg.
func (c *Controller) RotateSelected(ctx context.Context, deltaDeg float64) (domain.Layout, error) {
	if c.selected == "" {
		return c.Layout(), fmt.Errorf("%w: nothing selected", domain.ErrItemNotFound)
	}
	return c.apply(c.engine.Rotate(ctx, c.layout, c.selected, deltaDeg))
}

// ConnectSelectedEndpoints aligns and connects a and b. b is treated as the
// endpoint the user selected last.
func (c *Controller) ConnectSelectedEndpoints(ctx context.Context, a, b domain.EndpointRef) (domain.Layout, error) {
	return c.apply(c.engine.ConnectEndpoints(ctx, c.layout, a, b))
}

// DisconnectSelectedEndpoints removes the connection between a and b, if any.
func (c *Controller) DisconnectSelectedEndpoints(ctx context.Context, a, b domain.EndpointRef) domain.Layout {
	c.commit(c.engine.DisconnectEndpoints(ctx, c.layout, a, b))
	return c.Layout()
}

// DeleteItem removes an item and its connections.
func (c *Controller) DeleteItem(ctx context.Context, itemID string) (domain.Layout, error) {
	next, err := c.engine.DeleteItem(ctx, c.layout, itemID)
	if err != nil {
		return c.Layout(), err
	}
	if c.selected == itemID {
		c.selected = ""
	}
	c.commit(next)
	return c.Layout(), nil
}

// ToggleGrounded flips the grounded flag of itemID.
func (c *Controller) ToggleGrounded(ctx context.Context, itemID string) (domain.Layout, error) {
	return c.apply(c.engine.ToggleGrounded(ctx, c.layout, itemID))
}

func (c *Controller) apply(next domain.Layout, err error) (domain.Layout, error) {
	if err != nil {
		return c.Layout(), err
	}
	c.commit(next)
	return c.Layout(), nil
}

// commit installs next. Any pending preview was computed against the old
// layout and is dropped.
func (c *Controller) commit(next domain.Layout) {
	c.layout = next
	c.pending = nil
}
