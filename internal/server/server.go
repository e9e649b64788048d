// Package server binds the protocol adapter to network clients over HTTP:
// a long-lived SSE push channel for server-to-client records, a POST
// message endpoint for client-to-server records, and a liveness route.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fetch-mcp/internal/mcp"
)

const (
	shutdownTimeout = 5 * time.Second
	maxMessageBytes = 1 * 1024 * 1024
	messageTimeout  = 10 * time.Second
)

// Server hosts SSE protocol sessions. One Session exists per accepted push
// connection; sessions are independent and share only the read-only adapter.
type Server struct {
	cfg      Config
	router   *chi.Mux
	adapter  *mcp.Adapter
	sessions *SessionStore
	logger   *slog.Logger
}

// New constructs a Server with middleware and routes configured.
func New(cfg Config, adapter *mcp.Adapter, logger *slog.Logger) *Server {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		adapter:  adapter,
		sessions: NewSessionStore(),
		logger:   logger,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get(s.cfg.SSEPath, s.handleSSE)
		// The timeout covers message acceptance only; tool execution
		// completes on the session's dispatch goroutine.
		r.With(middleware.Timeout(messageTimeout)).Post(s.cfg.Endpoint, s.handleMessage)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. A bind
// failure is returned to the caller, which treats it as fatal.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: s.router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.sessions.CloseAll()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("sse server listening",
		"addr", addr, "sse_path", s.cfg.SSEPath, "endpoint", s.cfg.Endpoint)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	s.logger.Info("sse server stopped")
	return nil
}

// requestLogger emits one structured log line per completed request. The
// SSE route logs when the stream ends, not when it opens.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleSSE opens the push channel: it creates a Session, announces the
// message endpoint for that session as the first SSE event, and then
// streams response records until the client disconnects or the server
// shuts down.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sess := newSession()
	s.sessions.Add(sess)
	defer s.sessions.Remove(sess.ID)

	go s.dispatchLoop(r.Context(), sess)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: %s?session_id=%s\n\n", s.cfg.Endpoint, sess.ID)
	flusher.Flush()
	s.logger.Info("session opened", "session_id", sess.ID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("session closed by client", "session_id", sess.ID)
			return
		case <-sess.Done():
			s.logger.Info("session closed", "session_id", sess.ID)
			return
		case msg := <-sess.responses:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// dispatchLoop drains one session's request queue sequentially, so
// responses reach the push channel in the order the requests were accepted.
// Cancellation stops accepting further work: an in-flight dispatch runs on
// a detached context so its fetch completes under its own timeout, and its
// response is still delivered when the push buffer has room.
func (s *Server) dispatchLoop(ctx context.Context, sess *Session) {
	dispatchCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case raw := <-sess.requests:
			resp := s.adapter.Dispatch(dispatchCtx, raw)
			if resp == nil {
				continue
			}
			data, err := json.Marshal(resp)
			if err != nil {
				s.logger.Error("marshal response failed", "session_id", sess.ID, "error", err)
				continue
			}
			select {
			case sess.responses <- data:
			default:
				select {
				case sess.responses <- data:
				case <-ctx.Done():
					return
				case <-sess.Done():
					return
				}
			}
		}
	}
}

// handleMessage accepts one request record for an existing session. The
// 202 status acknowledges receipt only; the response record arrives on the
// session's push channel. A malformed record is rejected with 400 and the
// session stays up.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	select {
	case sess.requests <- body:
		w.WriteHeader(http.StatusAccepted)
	case <-sess.Done():
		http.Error(w, "session closed", http.StatusGone)
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
	}
}
