package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/internal/presentation/graph"
	"github.com/aretw0/openstars/pkg/domain"
	"github.com/aretw0/openstars/pkg/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Concierge is the conversation host the API drives.
type Concierge interface {
	Open(ctx context.Context, id string) (uint64, error)
	ChoiceMade(ctx context.Context, id, choiceID string) (orchestrator.Receipt, error)
	ChooseOption(ctx context.Context, id string, messageID int64, choiceID string) (orchestrator.Receipt, error)
	TextSubmitted(ctx context.Context, id, text string) (orchestrator.Receipt, error)
	Snapshot(id string) (*domain.Session, error)
	Timeline(id string) ([]domain.Message, error)
	Subscribe(id string) (<-chan orchestrator.MessageAppended, func())
	Sessions() []string
	Graph() []domain.Edge
}

// Server serves the conversation API.
type Server struct {
	concierge Concierge
	logger    *slog.Logger
	metrics   http.Handler
	version   string
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the handler mounted on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler creates the HTTP handler for c.
func NewHandler(c Concierge, opts ...Option) http.Handler {
	s := &Server{
		concierge: c,
		logger:    logging.NewNop(),
		metrics:   promhttp.Handler(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Post("/open", s.OpenSession)
			r.Post("/choices", s.Choose)
			r.Post("/messages", s.SubmitText)
			r.Get("/timeline", s.GetTimeline)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type sessionResponse struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
}

type choiceRequest struct {
	ChoiceID  string `json:"choice_id"`
	MessageID int64  `json:"message_id,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	gen, err := s.concierge.Open(r.Context(), id)
	if err != nil {
		s.fail(w, "CreateSession", id, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Generation: gen})
}

// OpenSession handles POST /sessions/{id}/open. Reopening restarts the
// conversation under a new generation.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gen, err := s.concierge.Open(r.Context(), id)
	if err != nil {
		s.fail(w, "OpenSession", id, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Generation: gen})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": s.concierge.Sessions()})
}

// Choose handles POST /sessions/{id}/choices.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ChoiceID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Choose: invalid request body", "session_id", id, "err", err)
		return
	}

	var (
		receipt orchestrator.Receipt
		err     error
	)
	if body.MessageID > 0 {
		receipt, err = s.concierge.ChooseOption(r.Context(), id, body.MessageID, body.ChoiceID)
	} else {
		receipt, err = s.concierge.ChoiceMade(r.Context(), id, body.ChoiceID)
	}
	if err != nil {
		s.fail(w, "Choose", id, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// SubmitText handles POST /sessions/{id}/messages.
func (s *Server) SubmitText(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body textRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SubmitText: invalid request body", "session_id", id, "err", err)
		return
	}

	receipt, err := s.concierge.TextSubmitted(r.Context(), id, body.Text)
	if err != nil {
		s.fail(w, "SubmitText", id, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.concierge.Snapshot(id)
	if err != nil {
		s.fail(w, "GetSession", id, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetTimeline handles GET /sessions/{id}/timeline. The optional "after"
// query parameter returns only messages with a greater id.
func (s *Server) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "Invalid after parameter", http.StatusBadRequest)
			return
		}
		after = n
	}

	msgs, err := s.concierge.Timeline(id)
	if err != nil {
		s.fail(w, "GetTimeline", id, err)
		return
	}
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID > after {
			out = append(out, m)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetGraph handles GET /graph. With ?session=<id> the path of that session
// is highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.Overlay
	if id := r.URL.Query().Get("session"); id != "" {
		snap, err := s.concierge.Snapshot(id)
		if err != nil {
			s.fail(w, "GetGraph", id, err)
			return
		}
		overlay = graph.OverlayFor(snap)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.concierge.Graph(), overlay))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "openstars-http",
		"version": s.version,
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE). Every appended
// message is sent as a "message" event whose id is "<generation>-<message id>".
//
// A client that reconnects with Last-Event-ID (or ?last_event_id=) first
// receives the messages it missed. When the session was restarted since, the
// whole current timeline is replayed.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.concierge.Snapshot(id); err != nil {
		s.fail(w, "SubscribeEvents", id, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.concierge.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: subscribed", "session_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")

	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get("last_event_id")
	}
	var sent cursor
	if lastEventID != "" {
		sent = s.replay(w, id, lastEventID)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if sent.covers(ev) {
				continue
			}
			s.writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// cursor is the newest message a stream has already delivered.
type cursor struct {
	generation uint64
	messageID  int64
}

func (c cursor) covers(ev orchestrator.MessageAppended) bool {
	return ev.Generation < c.generation || (ev.Generation == c.generation && ev.Message.ID <= c.messageID)
}

// replay writes the messages appended after lastEventID and returns the
// position it reached.
func (s *Server) replay(w http.ResponseWriter, id, lastEventID string) cursor {
	snap, err := s.concierge.Snapshot(id)
	if err != nil {
		return cursor{}
	}
	msgs, err := s.concierge.Timeline(id)
	if err != nil {
		s.logger.Warn("SSE: replay failed", "session_id", id, "err", err)
		return cursor{}
	}

	after := int64(0)
	if gen, msgID, ok := parseEventID(lastEventID); !ok {
		s.logger.Warn("SSE: bad Last-Event-ID", "session_id", id, "last_event_id", lastEventID)
	} else if gen == 0 || gen == snap.Generation {
		after = msgID
	}

	sent := cursor{generation: snap.Generation, messageID: after}
	for _, msg := range msgs {
		if msg.ID <= after {
			continue
		}
		s.writeEvent(w, orchestrator.MessageAppended{SessionID: id, Generation: snap.Generation, Message: msg})
		sent.messageID = msg.ID
	}
	s.logger.Info("SSE: replayed", "session_id", id, "generation", snap.Generation, "after", after)
	return sent
}

func (s *Server) writeEvent(w http.ResponseWriter, ev orchestrator.MessageAppended) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("SSE: encode failed", "session_id", ev.SessionID, "err", err)
		return
	}
	fmt.Fprintf(w, "event: message\nid: %d-%d\ndata: %s\n\n", ev.Generation, ev.Message.ID, payload)
}

// parseEventID reads "<generation>-<message id>". A bare message id is
// accepted with generation 0, meaning the current one.
func parseEventID(v string) (uint64, int64, bool) {
	genPart, msgPart, found := strings.Cut(v, "-")
	if !found {
		msgID, err := strconv.ParseInt(v, 10, 64)
		return 0, msgID, err == nil && msgID >= 0
	}
	gen, err := strconv.ParseUint(genPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	msgID, err := strconv.ParseInt(msgPart, 10, 64)
	if err != nil || msgID < 0 {
		return 0, 0, false
	}
	return gen, msgID, true
}

// fail maps err onto a status code.
func (s *Server) fail(w http.ResponseWriter, op, id string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "session_id", id, "err", err)
	} else {
		s.logger.Warn(op+" refused", "session_id", id, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrInputTooLarge), errors.Is(err, orchestrator.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
