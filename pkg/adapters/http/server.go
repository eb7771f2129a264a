// Package http exposes layout editing over a JSON HTTP API with a
// server-sent event stream of layout diffs.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/internal/graph"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/metrics"
	"github.com/aretw0/railyard/internal/validator"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine defines the layout operations and catalog access the server needs.
// *railyard.Engine implements it.
type Engine interface {
	Catalog() *domain.Catalog
	Geometry(componentID string) (domain.ComponentGeometry, error)
	PlaceItem(ctx context.Context, layout domain.Layout, componentID string, pose domain.Pose) (domain.Layout, domain.PlacedItem, error)
	PreviewDrag(ctx context.Context, layout domain.Layout, itemID string, tentative domain.Pose) (*railyard.DragPreview, error)
	CommitDrag(ctx context.Context, layout domain.Layout, preview *railyard.DragPreview) (domain.Layout, error)
	Rotate(ctx context.Context, layout domain.Layout, itemID string, deltaDeg float64) (domain.Layout, error)
	ConnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) (domain.Layout, error)
	DisconnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) domain.Layout
	DeleteItem(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error)
	ToggleGrounded(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error)
}

// Server holds the handlers of the API.
type Server struct {
	Engine   Engine
	Sessions *session.Manager
	Streams  *StreamManager

	apiVersion string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics counts requests and serves the registry on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewHandler creates the HTTP handler. It fails if the embedded OpenAPI
// document does not validate.
func NewHandler(ctx context.Context, engine Engine, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}

	server := &Server{
		Engine:     engine,
		Sessions:   sessions,
		apiVersion: spec.Info.Version,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if server.metrics != nil {
		r.Use(server.observe)
		r.Method(http.MethodGet, "/metrics", server.metrics.Handler())
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/catalog", server.GetCatalog)
	r.Get("/catalog/{componentID}/geometry", server.GetComponentGeometry)

	r.Route("/layouts", func(r chi.Router) {
		r.Get("/", server.ListLayouts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetLayout)
			r.Put("/", server.PutLayout)
			r.Delete("/", server.DeleteLayout)
			r.Post("/items", server.PlaceItem)
			r.Delete("/items/{itemID}", server.DeleteItem)
			r.Post("/items/{itemID}/ground", server.ToggleGrounded)
			r.Post("/drag/preview", server.PreviewDrag)
			r.Post("/drag/commit", server.CommitDrag)
			r.Post("/rotate", server.Rotate)
			r.Post("/connect", server.Connect)
			r.Post("/disconnect", server.Disconnect)
			r.Get("/events", server.SubscribeEvents)
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveRequest(r.Method+" "+route, status)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "railyard-http",
		"version":     strings.TrimSpace(railyard.Version),
		"api_version": s.apiVersion,
	})
}

// GetCatalog handles GET /catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Catalog())
}

type geometryResponse struct {
	domain.ComponentGeometry
	PathD string `json:"pathD"`
}

// GetComponentGeometry handles GET /catalog/{componentID}/geometry.
func (s *Server) GetComponentGeometry(w http.ResponseWriter, r *http.Request) {
	g, err := s.Engine.Geometry(chi.URLParam(r, "componentID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, geometryResponse{ComponentGeometry: g, PathD: g.Path.String()})
}

// ListLayouts handles GET /layouts.
func (s *Server) ListLayouts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetLayout handles GET /layouts/{id}.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	layout, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// PutLayout handles PUT /layouts/{id}: the whole layout is validated against
// the catalog and stored, replacing any previous version.
func (s *Server) PutLayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var layout domain.Layout
	if !s.decode(w, r, &layout) {
		return
	}
	layout.ID = id
	cat := s.Engine.Catalog()
	if layout.TrackSystem == "" && cat != nil {
		layout.TrackSystem = cat.ID
	}
	if layout.Items == nil {
		layout.Items = []domain.PlacedItem{}
	}
	if layout.Connections == nil {
		layout.Connections = []domain.Connection{}
	}

	if err := validator.ValidateLayout(layout, cat); err != nil {
		s.fail(w, r, err)
		return
	}

	var previous *domain.Layout
	err := s.Sessions.WithLock(r.Context(), id, func(ctx context.Context) error {
		if old, err := s.Sessions.Store().Load(ctx, id); err == nil {
			previous = old
		}
		return s.Sessions.Store().Save(ctx, id, &layout)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.broadcast(previous, &layout)
	writeJSON(w, http.StatusOK, layout)
}

// DeleteLayout handles DELETE /layouts/{id}.
func (s *Server) DeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type placeRequest struct {
	ComponentID string      `json:"componentId"`
	Pose        domain.Pose `json:"pose"`
}

// PlaceItem handles POST /layouts/{id}/items. The layout is created when it
// does not exist yet.
func (s *Server) PlaceItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body placeRequest
	if !s.decode(w, r, &body) {
		return
	}
	if _, err := s.Sessions.LoadOrCreate(r.Context(), id, s.trackSystem()); err != nil {
		s.fail(w, r, err)
		return
	}
	layout, err := s.update(r.Context(), id, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		next, _, err := s.Engine.PlaceItem(ctx, l, body.ComponentID, body.Pose)
		return next, err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, layout)
}

// DeleteItem handles DELETE /layouts/{id}/items/{itemID}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		return s.Engine.DeleteItem(ctx, l, itemID)
	})
}

// ToggleGrounded handles POST /layouts/{id}/items/{itemID}/ground.
func (s *Server) ToggleGrounded(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		return s.Engine.ToggleGrounded(ctx, l, itemID)
	})
}

type dragRequest struct {
	ItemID string      `json:"itemId"`
	Pose   domain.Pose `json:"pose"`
}

// PreviewDrag handles POST /layouts/{id}/drag/preview. Nothing is saved.
func (s *Server) PreviewDrag(w http.ResponseWriter, r *http.Request) {
	var body dragRequest
	if !s.decode(w, r, &body) {
		return
	}
	layout, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	preview, err := s.Engine.PreviewDrag(r.Context(), layout, body.ItemID, body.Pose)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// CommitDrag handles POST /layouts/{id}/drag/commit. The preview is computed
// again against the stored layout so a stale client preview cannot be applied.
func (s *Server) CommitDrag(w http.ResponseWriter, r *http.Request) {
	var body dragRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		preview, err := s.Engine.PreviewDrag(ctx, l, body.ItemID, body.Pose)
		if err != nil {
			return l, err
		}
		return s.Engine.CommitDrag(ctx, l, preview)
	})
}

type rotateRequest struct {
	ItemID   string  `json:"itemId"`
	DeltaDeg float64 `json:"deltaDeg"`
}

// Rotate handles POST /layouts/{id}/rotate.
func (s *Server) Rotate(w http.ResponseWriter, r *http.Request) {
	var body rotateRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		return s.Engine.Rotate(ctx, l, body.ItemID, body.DeltaDeg)
	})
}

type endpointPair struct {
	A domain.EndpointRef `json:"a"`
	B domain.EndpointRef `json:"b"`
}

// Connect handles POST /layouts/{id}/connect.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var body endpointPair
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		return s.Engine.ConnectEndpoints(ctx, l, body.A, body.B)
	})
}

// Disconnect handles POST /layouts/{id}/disconnect.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	var body endpointPair
	if !s.decode(w, r, &body) {
		return
	}
	s.mutate(w, r, func(ctx context.Context, l domain.Layout) (domain.Layout, error) {
		return s.Engine.DisconnectEndpoints(ctx, l, body.A, body.B), nil
	})
}

// SubscribeEvents handles GET /layouts/{id}/events (SSE). Every committed
// change of the layout is sent as one LayoutDiff message.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	layoutID := chi.URLParam(r, "id")
	s.logger.Info("SSE: Subscribing to layout updates", "layout", layoutID)

	ch, cancel := s.Streams.Subscribe(layoutID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "layout", layoutID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

type mutation func(ctx context.Context, l domain.Layout) (domain.Layout, error)

// update runs fn under the layout lock and broadcasts the resulting diff.
func (s *Server) update(ctx context.Context, id string, fn mutation) (domain.Layout, error) {
	var before domain.Layout
	after, err := s.Sessions.Update(ctx, id, func(l domain.Layout) (domain.Layout, error) {
		before = l
		return fn(ctx, l)
	})
	if err != nil {
		return after, err
	}
	s.broadcast(&before, &after)
	return after, nil
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn mutation) {
	layout, err := s.update(r.Context(), chi.URLParam(r, "id"), fn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (s *Server) broadcast(before, after *domain.Layout) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	bytes, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("Diff encode failed", "layout", after.ID, "err", err)
		return
	}
	s.Streams.Broadcast(after.ID, string(bytes))
}

func (s *Server) trackSystem() string {
	if cat := s.Engine.Catalog(); cat != nil {
		return cat.ID
	}
	return ""
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorResponse struct {
	Error   string   `json:"error"`
	Reason  string   `json:"reason,omitempty"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	resp := errorResponse{Error: err.Error()}

	var connErr *graph.ConnectionError
	if errors.As(err, &connErr) {
		resp.Reason = string(connErr.Reason)
	}
	for _, e := range validator.ValidationErrors(err) {
		resp.Details = append(resp.Details, e.Error())
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, resp)
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrLayoutNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrComponentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIncompatibleConnection),
		errors.Is(err, domain.ErrGrounded),
		errors.Is(err, domain.ErrNoPendingDrag):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDanglingReference),
		errors.Is(err, domain.ErrInvalidLayout):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
