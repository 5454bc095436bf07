package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

// TransitionRequest is the body of POST /transitions.
type TransitionRequest struct {
	Target string `json:"target"`
	Async  bool   `json:"async,omitempty"`
}

// TransitionResponse is returned by POST /transitions.
type TransitionResponse struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Pending bool   `json:"pending,omitempty"`
}

// CurrentResponse is returned by GET /current.
type CurrentResponse struct {
	Current string `json:"current"`
}

// Server exposes a machine over HTTP.
type Server struct {
	Machine ports.Machine
	Streams *StreamManager

	logger      *slog.Logger
	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request failures and dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server and subscribes it to m so that GET /events
// streams transitions. Call Close to unsubscribe.
func NewServer(m ports.Machine, opts ...Option) *Server {
	s := &Server{
		Machine: m,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	s.unsubscribe = m.Subscribe(func(from, to string) {
		payload, err := json.Marshal(domain.NewTransitionEvent("", from, to))
		if err != nil {
			s.logger.Error("encode transition event", "error", err)
			return
		}
		s.Streams.Broadcast(string(payload))
	})
	return s
}

// NewHandler creates a new HTTP handler for the machine.
func NewHandler(m ports.Machine, opts ...Option) http.Handler {
	return NewServer(m, opts...).Handler()
}

// Close detaches the server from the machine.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/states", s.ListStates)
	r.Get("/states/{id}", s.GetState)
	r.Get("/current", s.GetCurrent)
	r.Post("/transitions", s.PostTransition)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "canopy-http",
		"version": strings.TrimSpace(canopy.Version),
		"states":  len(s.Machine.AllStates()),
	})
}

// ListStates handles the GET /states request.
func (s *Server) ListStates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, graph.Snapshot(s.Machine))
}

// GetState handles the GET /states/{id} request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.Machine.StateExists(id) {
		http.Error(w, fmt.Sprintf("State not found: %s", id), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Machine.StateInfo(id))
}

// GetCurrent handles the GET /current request.
func (s *Server) GetCurrent(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, CurrentResponse{Current: s.Machine.CurrentStateID()})
}

// PostTransition handles the POST /transitions request.
// Asynchronous transitions answer 202 as soon as they started.
func (s *Server) PostTransition(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Target == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostTransition: Invalid request body", "error", err)
		return
	}
	if !s.Machine.StateExists(body.Target) {
		http.Error(w, fmt.Sprintf("State not found: %s", body.Target), http.StatusNotFound)
		return
	}

	from := s.Machine.CurrentStateID()
	if body.Async {
		future := s.Machine.ChangeStateAsync(r.Context(), body.Target)
		if future.IsComplete() {
			if _, err := future.Await(); err != nil {
				s.transitionError(w, err)
				return
			}
		}
		s.writeJSON(w, http.StatusAccepted, TransitionResponse{From: from, To: body.Target, Pending: !future.IsComplete()})
		return
	}

	if err := s.Machine.ChangeState(body.Target); err != nil {
		s.transitionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TransitionResponse{From: from, To: s.Machine.CurrentStateID()})
}

func (s *Server) transitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTransitionInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUnknownState):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNotAssembled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, fmt.Sprintf("Transition error: %v", err), http.StatusInternalServerError)
		s.logger.Error("PostTransition failed", "error", err)
	}
}

// GetGraph handles the GET /graph request: a Mermaid flowchart with the
// current branch highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	overlay := &graph.GraphOverlay{CurrentState: s.Machine.CurrentStateID()}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(graph.GenerateMermaid(graph.Snapshot(s.Machine), overlay))); err != nil {
		s.logger.Error("GetGraph response write failed", "error", err)
	}
}

// SubscribeEvents handles the GET /events request (SSE): one event per completed transition.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
