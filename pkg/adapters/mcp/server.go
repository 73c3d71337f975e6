package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/internal/presentation/graph"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "openstars://graph"

// Concierge is the subset of the orchestrator the MCP tools drive.
type Concierge interface {
	Open(ctx context.Context, id string) (uint64, error)
	ChoiceMade(ctx context.Context, id, choiceID string) (orchestrator.Receipt, error)
	ChooseOption(ctx context.Context, id string, messageID int64, choiceID string) (orchestrator.Receipt, error)
	TextSubmitted(ctx context.Context, id, text string) (orchestrator.Receipt, error)
	Snapshot(id string) (*domain.Session, error)
	Timeline(id string) ([]domain.Message, error)
	Graph() []domain.Edge
}

// SessionView is the unified response of the session tools.
type SessionView struct {
	Session  *domain.Session       `json:"session" jsonschema_description:"Current snapshot of the conversation"`
	Messages []domain.Message      `json:"messages" jsonschema_description:"Timeline appended so far"`
	Receipt  *orchestrator.Receipt `json:"receipt,omitempty" jsonschema_description:"Outcome of the submitted event"`
}

type startArgs struct {
	SessionID string `json:"session_id"`
}

type chooseArgs struct {
	SessionID string `json:"session_id"`
	ChoiceID  string `json:"choice_id"`
	MessageID int64  `json:"message_id"`
}

type textArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// Server exposes the concierge as an MCP server.
type Server struct {
	concierge Concierge
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(c Concierge, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		concierge: c,
		mcpServer: server.NewMCPServer("openstars-mcp", version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Open a conversation with Star. Reopening an existing id restarts it under a new generation."),
		mcp.WithString("session_id", mcp.Description("Session id to (re)open; a new one is generated when omitted")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Select one of the options Star is currently offering."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("choice_id", mcp.Required(), mcp.Description("Option id, e.g. founder or pay")),
		mcp.WithNumber("message_id", mcp.Description("Message the option belongs to (optional)")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("submit_text",
		mcp.WithDescription("Answer Star's current question with free text."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The answer")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSubmitText))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the current snapshot and timeline of a conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the dialogue graph as a Mermaid flowchart."),
		mcp.WithString("session_id", mcp.Description("Highlight the path of this session (optional)")),
	), s.handleGetGraph)
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (SessionView, error) {
	id := args.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	gen, err := s.concierge.Open(ctx, id)
	if err != nil {
		return SessionView{}, fmt.Errorf("open failed: %w", err)
	}
	return s.view(id, &orchestrator.Receipt{Generation: gen})
}

func (s *Server) handleChoose(ctx context.Context, _ mcp.CallToolRequest, args chooseArgs) (SessionView, error) {
	if args.SessionID == "" || args.ChoiceID == "" {
		return SessionView{}, errors.New("session_id and choice_id are required")
	}
	var (
		receipt orchestrator.Receipt
		err     error
	)
	if args.MessageID > 0 {
		receipt, err = s.concierge.ChooseOption(ctx, args.SessionID, args.MessageID, args.ChoiceID)
	} else {
		receipt, err = s.concierge.ChoiceMade(ctx, args.SessionID, args.ChoiceID)
	}
	if err != nil {
		return SessionView{}, fmt.Errorf("choose failed: %w", err)
	}
	return s.view(args.SessionID, &receipt)
}

func (s *Server) handleSubmitText(ctx context.Context, _ mcp.CallToolRequest, args textArgs) (SessionView, error) {
	if args.SessionID == "" {
		return SessionView{}, errors.New("session_id is required")
	}
	receipt, err := s.concierge.TextSubmitted(ctx, args.SessionID, args.Text)
	if err != nil {
		s.logger.Warn("MCP submit_text: input rejected", "session_id", args.SessionID, "size", len(args.Text), "err", err)
		return SessionView{}, fmt.Errorf("submit failed: %w", err)
	}
	return s.view(args.SessionID, &receipt)
}

func (s *Server) handleGetSession(_ context.Context, _ mcp.CallToolRequest, args startArgs) (SessionView, error) {
	return s.view(args.SessionID, nil)
}

func (s *Server) handleGetGraph(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var overlay *graph.Overlay
	if id := request.GetString("session_id", ""); id != "" {
		snap, err := s.concierge.Snapshot(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
		}
		overlay = graph.OverlayFor(snap)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(s.concierge.Graph(), overlay)), nil
}

func (s *Server) view(id string, receipt *orchestrator.Receipt) (SessionView, error) {
	snap, err := s.concierge.Snapshot(id)
	if err != nil {
		return SessionView{}, fmt.Errorf("snapshot failed: %w", err)
	}
	msgs, err := s.concierge.Timeline(id)
	if err != nil {
		return SessionView{}, fmt.Errorf("timeline failed: %w", err)
	}
	return SessionView{Session: snap, Messages: msgs, Receipt: receipt}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Dialogue Graph",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.concierge.Graph(), nil),
			},
		}, nil
	})
}
