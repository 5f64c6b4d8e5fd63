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

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SessionsURI is the resource listing every stored user id.
const SessionsURI = "freelingo://sessions"

// EndSessionResult mirrors the HTTP end-session response.
type EndSessionResult struct {
	Available bool                  `json:"available" jsonschema_description:"True only when the referee accepted the chain"`
	Notice    string                `json:"notice,omitempty" jsonschema_description:"Learner-facing message when the result is unavailable"`
	Run       *domain.WorkflowState `json:"run" jsonschema_description:"The terminal run record"`
}

// SessionList is the result of list_sessions.
type SessionList struct {
	Users []string `json:"users" jsonschema_description:"User ids with a stored session"`
}

// AppendResult is the result of append_messages.
type AppendResult struct {
	Appended int `json:"appended" jsonschema_description:"Number of messages added to the dialogue history"`
}

// UserArgs selects a session.
type UserArgs struct {
	UserID string `json:"user_id"`
}

// PutSessionArgs replaces a stored session.
type PutSessionArgs struct {
	UserID          string           `json:"user_id"`
	KnownWords      []domain.Word    `json:"known_words,omitempty"`
	DialogueHistory []domain.Message `json:"dialogue_history,omitempty"`
}

// AppendMessagesArgs extends a session's dialogue history.
type AppendMessagesArgs struct {
	UserID   string           `json:"user_id"`
	Messages []domain.Message `json:"messages"`
}

// Pipeline is the part of freelingo.Pipeline the MCP tools trigger.
type Pipeline interface {
	EndSession(ctx context.Context, userID string) freelingo.Result
}

// Server exposes the end-of-session pipeline and session seeding as MCP tools.
type Server struct {
	pipeline  Pipeline
	sessions  *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger. Under stdio it must not write to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(pipeline Pipeline, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		pipeline:  pipeline,
		sessions:  sessions,
		mcpServer: server.NewMCPServer("freelingo-mcp", strings.TrimSpace(freelingo.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server, for mounting on another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
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
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
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

		s.logger.Info("MCP Server shutting down")
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

var (
	wordItem = map[string]any{
		"type":     "object",
		"required": []string{"word"},
		"properties": map[string]any{
			"word":        map[string]any{"type": "string"},
			"translation": map[string]any{"type": "string"},
			"example":     map[string]any{"type": "string"},
		},
	}
	messageItem = map[string]any{
		"type":     "object",
		"required": []string{"role", "text"},
		"properties": map[string]any{
			"role": map[string]any{"type": "string", "enum": []string{string(domain.RoleAI), string(domain.RoleLearner)}},
			"text": map[string]any{"type": "string"},
		},
	}
)

func (s *Server) registerTools() {
	// TOOL: end_session
	s.mcpServer.AddTool(mcp.NewTool("end_session",
		mcp.WithDescription("Run the end-of-session pipeline for a learner: feedback, plan, new words, checked by the referee."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("The learner whose session ends")),
		mcp.WithOutputSchema[EndSessionResult](),
	), mcp.NewStructuredToolHandler(s.handleEndSession))

	// TOOL: get_session
	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Read a learner's stored session record."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("The learner id")),
		mcp.WithOutputSchema[domain.SessionRecord](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	// TOOL: put_session
	s.mcpServer.AddTool(mcp.NewTool("put_session",
		mcp.WithDescription("Replace a learner's stored session with the given known words and dialogue."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("The learner id")),
		mcp.WithArray("known_words", mcp.Description("Vocabulary the learner already knows"), mcp.Items(wordItem)),
		mcp.WithArray("dialogue_history", mcp.Description("The conversation so far, oldest first"), mcp.Items(messageItem)),
		mcp.WithOutputSchema[domain.SessionRecord](),
	), mcp.NewStructuredToolHandler(s.handlePutSession))

	// TOOL: append_messages
	s.mcpServer.AddTool(mcp.NewTool("append_messages",
		mcp.WithDescription("Append messages to a learner's dialogue history, starting a session if none exists."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("The learner id")),
		mcp.WithArray("messages", mcp.Required(), mcp.Description("Messages to append, oldest first"), mcp.Items(messageItem)),
		mcp.WithOutputSchema[AppendResult](),
	), mcp.NewStructuredToolHandler(s.handleAppendMessages))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the learners with a stored session."),
		mcp.WithOutputSchema[SessionList](),
	), mcp.NewStructuredToolHandler(s.handleListSessions))
}

func (s *Server) handleEndSession(ctx context.Context, request mcp.CallToolRequest, args UserArgs) (EndSessionResult, error) {
	if args.UserID == "" {
		return EndSessionResult{}, errors.New("user_id is required")
	}
	res := s.pipeline.EndSession(ctx, args.UserID)
	if res.Err != nil {
		s.logger.Warn("MCP end_session: no run", "user_id", args.UserID, "err", res.Err)
		return EndSessionResult{}, fmt.Errorf("end session: %w", res.Err)
	}
	return EndSessionResult{
		Available: res.Available,
		Notice:    res.Notice,
		Run:       res.State,
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args UserArgs) (*domain.SessionRecord, error) {
	if args.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	return s.sessions.Load(ctx, args.UserID)
}

func (s *Server) handlePutSession(ctx context.Context, request mcp.CallToolRequest, args PutSessionArgs) (*domain.SessionRecord, error) {
	if args.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	if err := checkWords(args.KnownWords); err != nil {
		return nil, err
	}
	if err := checkMessages(args.DialogueHistory); err != nil {
		return nil, err
	}

	record := domain.NewSessionRecord(args.UserID)
	if args.KnownWords != nil {
		record.KnownWords = args.KnownWords
	}
	if args.DialogueHistory != nil {
		record.DialogueHistory = args.DialogueHistory
	}
	if err := s.sessions.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s.sessions.Load(ctx, args.UserID)
}

func (s *Server) handleAppendMessages(ctx context.Context, request mcp.CallToolRequest, args AppendMessagesArgs) (AppendResult, error) {
	if args.UserID == "" {
		return AppendResult{}, errors.New("user_id is required")
	}
	if len(args.Messages) == 0 {
		return AppendResult{}, errors.New("messages must not be empty")
	}
	if err := checkMessages(args.Messages); err != nil {
		return AppendResult{}, err
	}
	if err := s.sessions.AppendMessages(ctx, args.UserID, args.Messages...); err != nil {
		return AppendResult{}, fmt.Errorf("append messages: %w", err)
	}
	return AppendResult{Appended: len(args.Messages)}, nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (SessionList, error) {
	users, err := s.sessions.List(ctx)
	if err != nil {
		return SessionList{}, fmt.Errorf("list sessions: %w", err)
	}
	if users == nil {
		users = []string{}
	}
	return SessionList{Users: users}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: freelingo://sessions
	s.mcpServer.AddResource(mcp.NewResource(SessionsURI, "Stored Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := s.handleListSessions(ctx, mcp.CallToolRequest{}, nil)
		if err != nil {
			return nil, err
		}
		jsonBytes, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      SessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func checkWords(words []domain.Word) error {
	for i, w := range words {
		if strings.TrimSpace(w.Word) == "" {
			return fmt.Errorf("known word %d: empty word", i)
		}
	}
	return nil
}

func checkMessages(msgs []domain.Message) error {
	for i, m := range msgs {
		if !m.Role.IsValid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return nil
}
