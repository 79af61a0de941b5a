// Package server routes inbound dispatch requests to action handlers.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"comment-notifier/pkg/comment"
)

// internalHeader is the marker a trusted co-located caller must set.
// Its presence is the only authentication; the function is not reachable
// by end-user traffic.
const internalHeader = "X-Notify-Internal"

// Avatars resolves commenter avatars.
type Avatars interface {
	Resolve(ctx context.Context, c *comment.Comment, cfg comment.Config)
	LookupQQ(ctx context.Context, id string) (string, error)
}

// Spam classifies comments.
type Spam interface {
	Classify(ctx context.Context, c *comment.Comment, cfg comment.Config) *bool
}

// Notifier runs the notification fan-out.
type Notifier interface {
	Dispatch(ctx context.Context, c, parent *comment.Comment, cfg comment.Config)
}

// Mailer sends the connectivity-test mail.
type Mailer interface {
	Test(ctx context.Context, cfg comment.Config, to string) error
}

// Transport is the resettable SMTP handle.
type Transport interface {
	Reset()
}

// Server handles HTTP requests.
type Server struct {
	avatars   Avatars
	spam      Spam
	notifier  Notifier
	mailer    Mailer
	transport Transport
	logger    *slog.Logger
}

// Config holds server wiring.
type Config struct {
	Avatars   Avatars
	Spam      Spam
	Notifier  Notifier
	Mailer    Mailer
	Transport Transport
	Logger    *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		avatars:   cfg.Avatars,
		spam:      cfg.Spam,
		notifier:  cfg.Notifier,
		mailer:    cfg.Mailer,
		transport: cfg.Transport,
		logger:    cfg.Logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDispatch)
	mux.HandleFunc("/notify", s.handleDispatch)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// request is the action envelope every call carries.
type request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// result is the response envelope.
type result struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	IsSpam  *bool  `json:"isSpam,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Result  any    `json:"result,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	writeCORS(w)

	// Cross-origin preflight gets an empty 204.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger := s.logger.With("request_id", uuid.NewString())

	start := time.Now()
	defer func() {
		logger.Info("Request completed", "method", r.Method, "duration", time.Since(start))
	}()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Request handler panicked", "panic", rec)
			s.writeJSON(w, logger, &result{Code: comment.CodeFail, Message: "internal error"})
		}
	}()

	if r.Header.Get(internalHeader) == "" {
		logger.Warn("Rejected non-internal caller", "remote", r.RemoteAddr)
		s.writeJSON(w, logger, &result{Code: comment.CodeForbidden, Message: "external calls are not allowed"})
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Malformed request body", "error", err)
		s.writeJSON(w, logger, &result{Code: comment.CodeFail, Message: "malformed request body"})
		return
	}

	logger.Info("Dispatching action", "action", req.Action)

	var res *result
	switch req.Action {
	case "postSubmit":
		res = s.postSubmit(r.Context(), logger, req.Data)
	case "emailTest":
		res = s.emailTest(r.Context(), logger, req.Data)
	case "getQQAvatar":
		res = s.qqAvatar(r.Context(), logger, req.Data)
	default:
		res = &result{Code: comment.CodeFail, Message: "unknown operation: " + req.Action}
	}

	s.writeJSON(w, logger, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+internalHeader)
}

func (s *Server) writeJSON(w http.ResponseWriter, logger *slog.Logger, res *result) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}
