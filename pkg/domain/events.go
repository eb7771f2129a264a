package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSnap       EventType = "snap"
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventMove       EventType = "move"
	EventDiagnostic EventType = "diagnostic"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	LayoutID  string    `json:"layout_id"`
}

// SnapEvent is emitted when a drag preview resolves to a snap candidate.
type SnapEvent struct {
	EventBase
	Moving       EndpointRef `json:"moving"`
	Target       EndpointRef `json:"target"`
	DistanceMm   float64     `json:"distance_mm"`
	AngleDiffDeg float64     `json:"angle_diff_deg"`
}

// ConnectionEvent is emitted when a connection is created or removed.
type ConnectionEvent struct {
	EventBase
	Connection Connection `json:"connection"`
}

// MoveEvent is emitted when a connected group is moved or rotated.
type MoveEvent struct {
	EventBase
	PivotID          string   `json:"pivot_id"`
	Members          []string `json:"members"`
	DeltaRotationDeg float64  `json:"delta_rotation_deg"`
}

// DiagnosticEvent reports a non-fatal anomaly (fallback geometry, inexact alignment).
type DiagnosticEvent struct {
	EventBase
	Err         error   `json:"-"`
	Message     string  `json:"message"`
	DeviationMm float64 `json:"deviation_mm,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnSnap       func(context.Context, *SnapEvent)
	OnConnect    func(context.Context, *ConnectionEvent)
	OnDisconnect func(context.Context, *ConnectionEvent)
	OnMove       func(context.Context, *MoveEvent)
	OnDiagnostic func(context.Context, *DiagnosticEvent)
}
