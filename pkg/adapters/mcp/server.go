package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/railyard"
	"github.com/aretw0/railyard/internal/logging"
	"github.com/aretw0/railyard/internal/presentation/graph"
	"github.com/aretw0/railyard/internal/presentation/tui"
	"github.com/aretw0/railyard/pkg/domain"
	"github.com/aretw0/railyard/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const catalogURI = "railyard://catalog"

// Engine defines what the MCP server needs from Railyard.
type Engine interface {
	Catalog() *domain.Catalog
	Geometry(componentID string) (domain.ComponentGeometry, error)
	PlaceItem(ctx context.Context, layout domain.Layout, componentID string, pose domain.Pose) (domain.Layout, domain.PlacedItem, error)
	PreviewDrag(ctx context.Context, layout domain.Layout, itemID string, tentative domain.Pose) (*railyard.DragPreview, error)
	CommitDrag(ctx context.Context, layout domain.Layout, preview *railyard.DragPreview) (domain.Layout, error)
	Rotate(ctx context.Context, layout domain.Layout, itemID string, deltaDeg float64) (domain.Layout, error)
	ConnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) (domain.Layout, error)
	DisconnectEndpoints(ctx context.Context, layout domain.Layout, a, b domain.EndpointRef) domain.Layout
	ToggleGrounded(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error)
	DeleteItem(ctx context.Context, layout domain.Layout, itemID string) (domain.Layout, error)
}

// PlaceArgs are the arguments of place_item.
type PlaceArgs struct {
	LayoutID    string  `json:"layout_id"`
	ComponentID string  `json:"component_id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	RotationDeg float64 `json:"rotation_deg"`
}

// MoveArgs are the arguments of move_item.
type MoveArgs struct {
	LayoutID    string  `json:"layout_id"`
	ItemID      string  `json:"item_id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	RotationDeg float64 `json:"rotation_deg"`
}

// RotateArgs are the arguments of rotate_item.
type RotateArgs struct {
	LayoutID string  `json:"layout_id"`
	ItemID   string  `json:"item_id"`
	DeltaDeg float64 `json:"delta_deg"`
}

// ConnectArgs are the arguments of connect_endpoints and disconnect_endpoints.
// Endpoints use the "item:connector" form.
type ConnectArgs struct {
	LayoutID string `json:"layout_id"`
	A        string `json:"a"`
	B        string `json:"b"`
}

// ItemArgs address a single item of a layout.
type ItemArgs struct {
	LayoutID string `json:"layout_id"`
	ItemID   string `json:"item_id"`
}

// LayoutArgs address a layout.
type LayoutArgs struct {
	LayoutID string `json:"layout_id"`
}

// LayoutResponse is returned by every mutating tool.
type LayoutResponse struct {
	Layout domain.Layout      `json:"layout" jsonschema_description:"The layout after the operation"`
	Item   *domain.PlacedItem `json:"item,omitempty" jsonschema_description:"The item created or moved, when there is one"`
	// Snapped names the endpoint pair joined by a move, as "moving=target".
	Snapped string `json:"snapped,omitempty" jsonschema_description:"Endpoint pair joined by a snapping move"`
}

// Server wraps a Railyard engine and layout sessions as an MCP server.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("railyard-mcp", strings.TrimSpace(railyard.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_components",
		mcp.WithDescription("List the components of the loaded track catalog."),
	), s.handleListComponents)

	s.mcpServer.AddTool(mcp.NewTool("component_geometry",
		mcp.WithDescription("Get the local connectors and path of a catalog component."),
		mcp.WithString("component_id", mcp.Required(), mcp.Description("Catalog component ID, e.g. G231")),
	), s.handleComponentGeometry)

	s.mcpServer.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Get a layout by ID."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithOutputSchema[domain.Layout](),
	), mcp.NewStructuredToolHandler(s.handleGetLayout))

	s.mcpServer.AddTool(mcp.NewTool("place_item",
		mcp.WithDescription("Place a catalog component on a layout. The layout is created when missing."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("component_id", mcp.Required(), mcp.Description("Catalog component ID")),
		mcp.WithNumber("x", mcp.Description("World X in millimetres")),
		mcp.WithNumber("y", mcp.Description("World Y in millimetres")),
		mcp.WithNumber("rotation_deg", mcp.Description("Rotation in degrees, counter-clockwise")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handlePlaceItem))

	s.mcpServer.AddTool(mcp.NewTool("move_item",
		mcp.WithDescription("Drag an item and its group to a pose, snapping to a free endpoint within tolerance."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Item to drag")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Tentative world X in millimetres")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Tentative world Y in millimetres")),
		mcp.WithNumber("rotation_deg", mcp.Description("Tentative rotation in degrees")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleMoveItem))

	s.mcpServer.AddTool(mcp.NewTool("rotate_item",
		mcp.WithDescription("Rotate an item and its group about the item origin."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Item to rotate")),
		mcp.WithNumber("delta_deg", mcp.Required(), mcp.Description("Rotation delta in degrees")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleRotateItem))

	s.mcpServer.AddTool(mcp.NewTool("connect_endpoints",
		mcp.WithDescription("Connect two aligned endpoints, written as item:connector."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("a", mcp.Required(), mcp.Description("First endpoint, e.g. 0b6f:end")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second endpoint, e.g. 71c2:start")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleConnect))

	s.mcpServer.AddTool(mcp.NewTool("disconnect_endpoints",
		mcp.WithDescription("Remove the connection between two endpoints. Unconnected pairs are ignored."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("a", mcp.Required(), mcp.Description("First endpoint, e.g. 0b6f:end")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second endpoint, e.g. 71c2:start")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleDisconnect))

	s.mcpServer.AddTool(mcp.NewTool("toggle_grounded",
		mcp.WithDescription("Pin or unpin an item. A group with a grounded item cannot be moved or rotated."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Item to pin or unpin")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleToggleGrounded))

	s.mcpServer.AddTool(mcp.NewTool("delete_item",
		mcp.WithDescription("Delete an item and every connection touching it."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("Item to delete")),
		mcp.WithOutputSchema[LayoutResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeleteItem))

	s.mcpServer.AddTool(mcp.NewTool("layout_report",
		mcp.WithDescription("Summarize a layout as Markdown: groups, items and free endpoints."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
	), s.handleLayoutReport)

	s.mcpServer.AddTool(mcp.NewTool("layout_graph",
		mcp.WithDescription("Render the connection graph of a layout as a Mermaid diagram."),
		mcp.WithString("layout_id", mcp.Required(), mcp.Description("Layout ID")),
	), s.handleLayoutGraph)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(catalogURI, "Track Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Catalog())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      catalogURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) handleListComponents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(s.engine.Catalog().Components)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleComponentGeometry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	componentID := request.GetString("component_id", "")
	g, err := s.engine.Geometry(componentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.Marshal(g)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetLayout(ctx context.Context, request mcp.CallToolRequest, args LayoutArgs) (domain.Layout, error) {
	return s.sessions.Load(ctx, args.LayoutID)
}

func (s *Server) handlePlaceItem(ctx context.Context, request mcp.CallToolRequest, args PlaceArgs) (LayoutResponse, error) {
	if _, err := s.sessions.LoadOrCreate(ctx, args.LayoutID, s.engine.Catalog().ID); err != nil {
		return LayoutResponse{}, err
	}

	var placed domain.PlacedItem
	pose := domain.Pose{X: args.X, Y: args.Y, RotationDeg: args.RotationDeg}
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		next, item, err := s.engine.PlaceItem(ctx, l, args.ComponentID, pose)
		placed = item
		return next, err
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	s.logger.Debug("item placed", "layout", args.LayoutID, "item", placed.ID, "component", placed.ComponentID)
	return LayoutResponse{Layout: layout, Item: &placed}, nil
}

func (s *Server) handleMoveItem(ctx context.Context, request mcp.CallToolRequest, args MoveArgs) (LayoutResponse, error) {
	var snapped string
	tentative := domain.Pose{X: args.X, Y: args.Y, RotationDeg: args.RotationDeg}
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		preview, err := s.engine.PreviewDrag(ctx, l, args.ItemID, tentative)
		if err != nil {
			return l, err
		}
		if preview.Snap != nil {
			snapped = preview.Snap.Moving.String() + "=" + preview.Snap.Target.String()
		}
		return s.engine.CommitDrag(ctx, l, preview)
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	resp := LayoutResponse{Layout: layout, Snapped: snapped}
	if it, ok := layout.Item(args.ItemID); ok {
		resp.Item = &it
	}
	return resp, nil
}

func (s *Server) handleRotateItem(ctx context.Context, request mcp.CallToolRequest, args RotateArgs) (LayoutResponse, error) {
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		return s.engine.Rotate(ctx, l, args.ItemID, args.DeltaDeg)
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	resp := LayoutResponse{Layout: layout}
	if it, ok := layout.Item(args.ItemID); ok {
		resp.Item = &it
	}
	return resp, nil
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest, args ConnectArgs) (LayoutResponse, error) {
	a, err := domain.ParseEndpointRef(args.A)
	if err != nil {
		return LayoutResponse{}, err
	}
	b, err := domain.ParseEndpointRef(args.B)
	if err != nil {
		return LayoutResponse{}, err
	}
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		return s.engine.ConnectEndpoints(ctx, l, a, b)
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	return LayoutResponse{Layout: layout}, nil
}

func (s *Server) handleDisconnect(ctx context.Context, request mcp.CallToolRequest, args ConnectArgs) (LayoutResponse, error) {
	a, err := domain.ParseEndpointRef(args.A)
	if err != nil {
		return LayoutResponse{}, err
	}
	b, err := domain.ParseEndpointRef(args.B)
	if err != nil {
		return LayoutResponse{}, err
	}
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		return s.engine.DisconnectEndpoints(ctx, l, a, b), nil
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	return LayoutResponse{Layout: layout}, nil
}

func (s *Server) handleToggleGrounded(ctx context.Context, request mcp.CallToolRequest, args ItemArgs) (LayoutResponse, error) {
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		return s.engine.ToggleGrounded(ctx, l, args.ItemID)
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	resp := LayoutResponse{Layout: layout}
	if it, ok := layout.Item(args.ItemID); ok {
		resp.Item = &it
	}
	return resp, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, request mcp.CallToolRequest, args ItemArgs) (LayoutResponse, error) {
	layout, err := s.sessions.Update(ctx, args.LayoutID, func(l domain.Layout) (domain.Layout, error) {
		return s.engine.DeleteItem(ctx, l, args.ItemID)
	})
	if err != nil {
		return LayoutResponse{}, err
	}
	return LayoutResponse{Layout: layout}, nil
}

func (s *Server) handleLayoutReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout, err := s.sessions.Load(ctx, request.GetString("layout_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := tui.LayoutReport(layout, s.engine)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) handleLayoutGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout, err := s.sessions.Load(ctx, request.GetString("layout_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(layout, s.engine.Catalog(), nil)), nil
}
