// Package server provides the HTTP inbound surface: channel webhooks,
// outcome callbacks, health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nfadel/souqchat-go/internal/chat"
	"github.com/nfadel/souqchat-go/internal/metrics"
	"github.com/nfadel/souqchat-go/internal/models"
)

// OutcomeRecorder closes conversations with a terminal classification.
// The orchestrator satisfies it.
type OutcomeRecorder interface {
	CompleteConversation(ctx context.Context, tenant, conversation, participant string, kind models.OutcomeKind) error
}

// Server wires the dispatcher and orchestrator to HTTP.
type Server struct {
	dispatcher *chat.Dispatcher
	outcomes   OutcomeRecorder
	collector  *metrics.Collector
	logger     *slog.Logger
	http       *http.Server
}

// New creates the HTTP server bound to addr.
func New(addr string, dispatcher *chat.Dispatcher, outcomes OutcomeRecorder, collector *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		outcomes:   outcomes,
		collector:  collector,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Get("/healthz", s.handleHealth)
	r.Get("/metricsz", s.handleMetrics)
	// The channel path segment is opaque: the core makes no assumption
	// about the transport behind the webhook.
	r.Post("/hooks/{channel}/messages", s.handleMessage)
	r.Post("/hooks/{channel}/outcomes", s.handleOutcome)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

// handleMessage accepts one customer message and enqueues it for its
// conversation's worker. Replies are delivered asynchronously through
// the channel layer, so acceptance is 202.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg chat.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg.Tenant == "" || msg.Conversation == "" || msg.Participant == "" || strings.TrimSpace(msg.Text) == "" {
		writeError(w, http.StatusBadRequest, "tenant, conversation_id, participant_id and text are required")
		return
	}

	if err := s.dispatcher.Submit(msg); err != nil {
		s.logger.Warn("message rejected", "conversation", msg.Conversation, "error", err)
		writeError(w, http.StatusTooManyRequests, "conversation busy, retry later")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type outcomeRequest struct {
	Tenant       string `json:"tenant"`
	Conversation string `json:"conversation_id"`
	Participant  string `json:"participant_id"`
	Kind         string `json:"kind"`
}

// handleOutcome records a conversation's terminal classification for
// the pattern learning engine.
func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	kind := models.OutcomeKind(req.Kind)
	switch kind {
	case models.OutcomePurchase, models.OutcomeSatisfied, models.OutcomeAbandoned, models.OutcomeEscalated:
	default:
		writeError(w, http.StatusBadRequest, "unknown outcome kind")
		return
	}

	if err := s.outcomes.CompleteConversation(r.Context(), req.Tenant, req.Conversation, req.Participant, kind); err != nil {
		s.logger.Error("recording outcome failed", "conversation", req.Conversation, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record outcome")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
