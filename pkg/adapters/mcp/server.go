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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// Resource URIs.
const (
	TreeURI  = "canopy://tree"
	GraphURI = "canopy://graph"
)

// TransitionResult is the structured output of change_state.
type TransitionResult struct {
	From    string `json:"from" jsonschema_description:"State before the transition"`
	To      string `json:"to" jsonschema_description:"Requested target state"`
	Current string `json:"current" jsonschema_description:"State after the call returned"`
	Pending bool   `json:"pending,omitempty" jsonschema_description:"True while an asynchronous transition is still running"`
}

// Server wraps a machine and exposes it as an MCP Server.
type Server struct {
	machine   ports.Machine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(m ports.Machine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		machine:   m,
		mcpServer: server.NewMCPServer("canopy-mcp", strings.TrimSpace(canopy.Version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
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
	s.mcpServer.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List every state of the machine with its parent and children, in assembly order."),
	), s.handleListStates)

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Describe one state: parent, children and whether it has suspendable hooks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("State ID")),
	), s.handleGetState)

	s.mcpServer.AddTool(mcp.NewTool("current_state",
		mcp.WithDescription("Return the ID of the current state and its ancestors."),
	), s.handleCurrentState)

	changeTool := mcp.NewTool("change_state",
		mcp.WithDescription("Transition the machine to a target state, running exit and enter hooks along the way."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target state ID")),
		mcp.WithBoolean("async", mcp.Description("Await suspendable hooks in the background instead of running synchronous hooks")),
		mcp.WithOutputSchema[TransitionResult](),
	)
	s.mcpServer.AddTool(changeTool, mcp.NewStructuredToolHandler(s.handleChangeState))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the state tree as a Mermaid flowchart with the current branch highlighted."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.mermaid()), nil
	})
}

func (s *Server) handleListStates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(graph.Snapshot(s.machine))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if !s.machine.StateExists(id) {
		return mcp.NewToolResultError(fmt.Sprintf("state not found: %q", id)), nil
	}
	jsonBytes, err := json.Marshal(s.machine.StateInfo(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCurrentState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current := s.machine.CurrentStateID()
	if current == "" {
		return mcp.NewToolResultText("the machine has not entered any state yet"), nil
	}

	chain := []string{current}
	for p := s.machine.StateInfo(current).Parent; p != ""; p = s.machine.StateInfo(p).Parent {
		chain = append(chain, p)
	}
	return mcp.NewToolResultText(strings.Join(chain, " < ")), nil
}

func (s *Server) handleChangeState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TransitionResult, error) {
	target, _ := args["target"].(string)
	async, _ := args["async"].(bool)

	if !s.machine.StateExists(target) {
		return TransitionResult{}, fmt.Errorf("state not found: %q", target)
	}

	res := TransitionResult{From: s.machine.CurrentStateID(), To: target}
	if async {
		future := s.machine.ChangeStateAsync(ctx, target)
		if future.IsComplete() {
			if _, err := future.Await(); err != nil {
				return TransitionResult{}, fmt.Errorf("change_state failed: %w", err)
			}
		}
		res.Pending = !future.IsComplete()
	} else if err := s.machine.ChangeState(target); err != nil {
		return TransitionResult{}, fmt.Errorf("change_state failed: %w", err)
	}

	res.Current = s.machine.CurrentStateID()
	s.logger.Debug("MCP change_state", "from", res.From, "to", res.To, "async", async)
	return res, nil
}

func (s *Server) mermaid() string {
	return graph.GenerateMermaid(graph.Snapshot(s.machine), &graph.GraphOverlay{CurrentState: s.machine.CurrentStateID()})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "State Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(struct {
			Current string             `json:"current"`
			States  []domain.StateInfo `json:"states"`
		}{
			Current: s.machine.CurrentStateID(),
			States:  graph.Snapshot(s.machine),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "State Tree (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     s.mermaid(),
			},
		}, nil
	})
}
