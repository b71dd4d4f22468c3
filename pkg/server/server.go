package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boralio/leadbot/pkg/model"
	"github.com/boralio/leadbot/pkg/usecase/conversation"
	"github.com/boralio/leadbot/pkg/utils/logging"
)

// ChatService runs one conversational turn.
type ChatService interface {
	Chat(ctx context.Context, input conversation.ChatInput) (*conversation.ChatOutput, error)
}

// Server is the HTTP front of the chatbot. It owns conversation histories
// per session; the underlying use case stays stateless.
type Server struct {
	chat     ChatService
	sessions *sessionStore
	metrics  *Metrics
	mux      *http.ServeMux
}

func New(chat ChatService) *Server {
	s := &Server{
		chat:     chat,
		sessions: newSessionStore(),
		metrics:  newMetrics(),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatSource struct {
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt,omitempty"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

type chatResponse struct {
	Message   string       `json:"message"`
	SessionID string       `json:"session_id"`
	Sources   []chatSource `json:"sources,omitempty"`
	Qualified bool         `json:"qualified"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sessionID := model.SessionID(req.SessionID)
	if sessionID == "" {
		sessionID = model.NewSessionID()
	}

	sess := s.sessions.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	started := time.Now()
	out, err := s.chat.Chat(r.Context(), conversation.ChatInput{
		SessionID: sessionID,
		Message:   req.Message,
		History:   sess.history,
	})
	s.metrics.TurnDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		s.metrics.TurnsTotal.WithLabelValues("error").Inc()
		logger.Error("chat turn failed", "error", err, "session_id", sessionID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate response"})
		return
	}

	s.metrics.TurnsTotal.WithLabelValues("ok").Inc()
	if out.Qualified {
		s.metrics.QualifiedLeads.Inc()
	}
	if out.Lead != nil {
		s.metrics.Notifications.Inc()
	}

	sess.history = out.History

	resp := chatResponse{
		Message:   out.Reply,
		SessionID: string(sessionID),
		Qualified: out.Qualified,
	}
	for _, src := range out.Sources {
		resp.Sources = append(resp.Sources, chatSource{
			Title:      src.Record.Title,
			Excerpt:    src.Record.Excerpt,
			URL:        src.Record.URL,
			Similarity: src.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
