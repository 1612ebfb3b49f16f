// Package mcp exposes an intake engine as a Model Context Protocol server
// so agent hosts can run guided intake conversations as tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meridianhealth/intake"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/session"
)

// StartResponse is the structured result of the start_session tool.
type StartResponse struct {
	SessionID string `json:"session_id" jsonschema_description:"Identifier of the new session"`
	NodeID    string `json:"node_id" jsonschema_description:"The entry node of the conversation"`
	Prompt    string `json:"prompt" jsonschema_description:"The first question to show the subject"`
}

// TurnResponse is the structured result of the send_message tool.
type TurnResponse struct {
	Response   string         `json:"response" jsonschema_description:"The assistant's reply for this turn"`
	Source     string         `json:"source" jsonschema_description:"How the reply was produced: generated, fallback, or controller"`
	NextState  string         `json:"next_state" jsonschema_description:"The node the conversation moved to"`
	IsTerminal bool           `json:"is_terminal" jsonschema_description:"Whether the conversation has ended"`
	RedFlags   []string       `json:"red_flags,omitempty" jsonschema_description:"IDs of red flags raised this turn"`
	Context    map[string]any `json:"context,omitempty" jsonschema_description:"The accumulated session context after this turn"`
}

// SummaryResponse is the structured result of the get_summary tool.
type SummaryResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status" jsonschema_description:"Session status: active, completed, or abandoned"`
	NodeID    string `json:"node_id" jsonschema_description:"The session's current node"`
	Turns     int    `json:"turns" jsonschema_description:"Number of completed turns"`
	Summary   string `json:"summary" jsonschema_description:"Transcript of the recent conversation"`
}

// Server wraps an intake engine and exposes it over MCP.
type Server struct {
	engine    *intake.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates the MCP server and registers the intake tools.
func NewServer(engine *intake.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("intake-mcp", intake.Version),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE transport and
// shuts down gracefully when the context is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening", "transport", "sse", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
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
	startTool := mcp.NewTool("start_session",
		mcp.WithDescription("Start a new guided intake conversation for a subject and return the first question."),
		mcp.WithString("subject_id", mcp.Required(), mcp.Description("Identifier of the person taking the intake")),
		mcp.WithOutputSchema[StartResponse](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStartSession))

	messageTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send the subject's answer for the current question and advance the conversation."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to advance")),
		mcp.WithString("input", mcp.Required(), mcp.Description("The subject's answer")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(messageTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	summaryTool := mcp.NewTool("get_summary",
		mcp.WithDescription("Get the status and recent transcript of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to summarize")),
		mcp.WithOutputSchema[SummaryResponse](),
	)
	s.mcpServer.AddTool(summaryTool, mcp.NewStructuredToolHandler(s.handleGetSummary))

	abandonTool := mcp.NewTool("abandon_session",
		mcp.WithDescription("Abandon an active session without completing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to abandon")),
	)
	s.mcpServer.AddTool(abandonTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := request.GetString("session_id", "")
		if err := s.engine.Abandon(ctx, sessionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("abandon failed: %v", err)), nil
		}
		return mcp.NewToolResultText("session abandoned"), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full conversation graph definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.graphNodes())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleStartSession(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StartResponse, error) {
	subjectID, _ := args["subject_id"].(string)
	if subjectID == "" {
		return StartResponse{}, fmt.Errorf("subject_id is required")
	}

	start, err := s.engine.StartSession(ctx, subjectID)
	if err != nil {
		return StartResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return StartResponse{
		SessionID: start.SessionID,
		NodeID:    start.Node.ID,
		Prompt:    start.Prompt,
	}, nil
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (TurnResponse, error) {
	sessionID, _ := args["session_id"].(string)
	input, _ := args["input"].(string)
	if sessionID == "" {
		return TurnResponse{}, fmt.Errorf("session_id is required")
	}

	result, err := s.engine.ProcessTurn(ctx, sessionID, input)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}

	resp := TurnResponse{
		Response:   result.Response,
		Source:     result.Source,
		NextState:  result.NextState,
		IsTerminal: result.IsTerminal,
	}
	if result.Reasoning != nil {
		for _, f := range result.Reasoning.RedFlags {
			resp.RedFlags = append(resp.RedFlags, f.ID)
		}
	}
	if merged, err := s.engine.Context(ctx, sessionID); err == nil {
		resp.Context = merged
	} else {
		s.logger.Warn("failed to load session context for tool result",
			"session_id", sessionID,
			"err", err,
		)
	}
	return resp, nil
}

func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SummaryResponse, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return SummaryResponse{}, fmt.Errorf("session_id is required")
	}

	sess, err := s.engine.Session(ctx, sessionID)
	if err != nil {
		return SummaryResponse{}, fmt.Errorf("load failed: %w", err)
	}
	steps, err := s.engine.Steps(ctx, sessionID)
	if err != nil {
		return SummaryResponse{}, fmt.Errorf("load steps failed: %w", err)
	}

	return SummaryResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		NodeID:    sess.CurrentNodeID,
		Turns:     len(steps),
		Summary:   session.BuildConversationSummary(steps, len(steps)),
	}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("intake://graph", "Conversation Graph Definition",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.graphNodes())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "intake://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) graphNodes() []*domain.Node {
	nodes := s.engine.Graph().Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}
