package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/polybot/internal/ir"
	"github.com/roach88/polybot/internal/session"
	"github.com/roach88/polybot/internal/telegram"
)

// maxUpdateBytes bounds a webhook body. Updates carry file ids, not files.
const maxUpdateBytes = 1 << 20

// Config holds server configuration.
type Config struct {
	Addr         string
	Token        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":8443",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Queue accepts inbound messages for the dispatch loop.
type Queue interface {
	Enqueue(msg ir.Inbound) (string, bool)
	QueueLen() int
}

// Health is the /healthz payload.
type Health struct {
	Status          string `json:"status"`
	GrammarHash     string `json:"grammar_hash"`
	QueueLength     int    `json:"queue_length"`
	PendingSessions int    `json:"pending_sessions"`
}

// Server is the webhook HTTP server.
type Server struct {
	config      *Config
	router      *chi.Mux
	httpSrv     *http.Server
	queue       Queue
	sessions    session.Cache
	grammarHash string
}

// New creates a new Server instance.
func New(cfg *Config, queue Queue, sessions session.Cache, grammarHash string) *Server {
	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		queue:       queue,
		sessions:    sessions,
		grammarHash: grammarHash,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpSrv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/", s.index)
	r.Get("/healthz", s.health)
	r.Post("/{token}/", s.webhook)
}

// requestLogger logs each request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"http_request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	writeOK(w)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:      "ok",
		GrammarHash: s.grammarHash,
		QueueLength: s.queue.QueueLen(),
	}
	if s.sessions != nil {
		n, err := s.sessions.Len(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		h.PendingSessions = n
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if s.config.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) != 1 {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
		return
	}

	var u telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid update: "+err.Error())
		return
	}

	msg, ok := telegram.ToInbound(u)
	if !ok {
		slog.Debug("ignoring update", "update_id", u.UpdateID)
		writeOK(w)
		return
	}

	id, ok := s.queue.Enqueue(msg)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "shutting down")
		return
	}
	slog.Debug("update queued", "update_id", u.UpdateID, "request_id", id)
	writeOK(w)
}

// Handler returns the router, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("webhook server listening", "addr", ln.Addr().String())
	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
