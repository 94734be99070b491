package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Negr087/substr/internal/captions"
	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/session"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Server exposes the viewer-facing HTTP API: the video proxy, the
// transcription endpoint, session status, and the caption history of the
// active media.
type Server struct {
	bind        string
	logger      *slog.Logger
	session     *session.Session
	transcriber captions.Transcriber
	upstream    HTTPDoer

	listener net.Listener
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithUpstreamClient overrides the HTTP client the proxy fetches media with.
func WithUpstreamClient(client HTTPDoer) Option {
	return func(s *Server) {
		if client != nil {
			s.upstream = client
		}
	}
}

// New builds the API server. transcriber backs /api/transcribe; session backs
// status, history, and may be the same object feeding the transcriber.
func New(bind string, sess *session.Session, transcriber captions.Transcriber, logger *slog.Logger, opts ...Option) *Server {
	srv := &Server{
		bind:        bind,
		logger:      logging.NewComponentLogger(logger, "api-server"),
		session:     sess,
		transcriber: transcriber,
		// Media fetches stream large bodies; no overall timeout.
		upstream: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler returns the routed handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/proxy-video", s.handleProxyVideo)
	mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/history", s.handleHistory)
	return mux
}

// Start begins serving and returns once the listener is bound. The server
// shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// StatusResponse reports the session state.
type StatusResponse struct {
	Search    session.Result `json:"search"`
	Capturing bool           `json:"capturing"`
	Captions  int            `json:"captions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Search:    s.session.Current(),
		Capturing: s.session.Capturing(),
		Captions:  len(s.session.Captions()),
	})
}

// HistoryResponse lists every caption collected for the active media.
type HistoryResponse struct {
	MediaURL string           `json:"media_url"`
	Captions []captions.Entry `json:"captions"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := s.session.Captions()
	if entries == nil {
		entries = []captions.Entry{}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{
		MediaURL: s.session.MediaURL(),
		Captions: entries,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
