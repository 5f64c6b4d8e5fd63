package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:generate go tool oapi-codegen -package http -generate types,chi-server,spec -o api.gen.go ../../../api/openapi.yaml

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Pipeline is the part of freelingo.Pipeline the server triggers.
type Pipeline interface {
	EndSession(ctx context.Context, userID string) freelingo.Result
}

// Server exposes the end-of-session trigger and session seeding over HTTP.
type Server struct {
	Pipeline Pipeline
	Sessions *session.Manager
	Streams  *StreamManager
	Gatherer prometheus.Gatherer
	logger   *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are registered on the pipeline.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithGatherer serves the gatherer's metrics on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for a pipeline and its session manager.
// Requests to the API routes are validated against the embedded OpenAPI document.
func NewHandler(pipeline Pipeline, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	server := &Server{
		Pipeline: pipeline,
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.Streams == nil {
		server.Streams = NewStreamManager()
	}

	validator, err := newRequestValidator(server.logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(validator.Middleware)

	// Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "err", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))
	}

	handler := HandlerFromMux(server, r)
	return enableCORS(handler), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Freelingo API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Health{Status: "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	info := Info{
		App:     "freelingo-http",
		Version: strings.TrimSpace(freelingo.Version),
	}
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		info.ApiVersion = &swagger.Info.Version
	}
	s.writeJSON(w, http.StatusOK, info)
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	users, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", http.StatusInternalServerError, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	s.writeJSON(w, http.StatusOK, SessionList{Users: users})
}

// GetSession handles the GET /sessions/{userID} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, userID UserID) {
	record, err := s.Sessions.Load(r.Context(), userID)
	if err != nil {
		s.fail(w, "GetSession", statusOf(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// PutSession handles the PUT /sessions/{userID} request.
// It replaces the stored record, which seeds a session for a later end-session call.
func (s *Server) PutSession(w http.ResponseWriter, r *http.Request, userID UserID) {
	var body PutSessionJSONRequestBody
	if !s.decode(w, r, "PutSession", &body) {
		return
	}

	record := domain.NewSessionRecord(userID)
	if body.KnownWords != nil {
		record.KnownWords = *body.KnownWords
	}
	if body.DialogueHistory != nil {
		record.DialogueHistory = *body.DialogueHistory
	}
	if err := s.Sessions.Save(r.Context(), record); err != nil {
		s.fail(w, "PutSession", http.StatusInternalServerError, err)
		return
	}

	saved, err := s.Sessions.Load(r.Context(), userID)
	if err != nil {
		s.fail(w, "PutSession", http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// DeleteSession handles the DELETE /sessions/{userID} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request, userID UserID) {
	if err := s.Sessions.Delete(r.Context(), userID); err != nil {
		s.fail(w, "DeleteSession", http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendMessages handles the POST /sessions/{userID}/messages request.
func (s *Server) AppendMessages(w http.ResponseWriter, r *http.Request, userID UserID) {
	var body AppendMessagesJSONRequestBody
	if !s.decode(w, r, "AppendMessages", &body) {
		return
	}
	if err := s.Sessions.AppendMessages(r.Context(), userID, body.Messages...); err != nil {
		s.fail(w, "AppendMessages", http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EndSession handles the POST /sessions/{userID}/end request.
// A run that did not validate is still a 200: the learner sees the notice.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request, userID UserID) {
	res := s.Pipeline.EndSession(r.Context(), userID)
	if res.Err != nil {
		s.fail(w, "EndSession", statusOf(res.Err), res.Err)
		return
	}
	if res.State == nil {
		s.fail(w, "EndSession", http.StatusInternalServerError, errors.New("run returned no state"))
		return
	}

	resp := EndSessionResponse{
		Available: res.Available,
		Run:       *res.State,
	}
	if res.Notice != "" {
		resp.Notice = &res.Notice
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// SubscribeEvents handles the GET /sessions/{userID}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, userID UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(userID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to run events", "user_id", userID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "user_id", userID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, msg.Data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

// decode reads a body the validator has already checked against the schema.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn(op+": Invalid request body", "err", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, op string, status int, err error) {
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
		return
	}
	s.logger.Warn(op+" rejected", "err", err, "status", status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, freelingo.ErrNoSessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
