package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"news-shield/internal/model"
	"news-shield/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Enqueuer accepts single links for the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, rawURL string) error
}

type checkRequest struct {
	URL string `json:"url"`
}

type checkResponse struct {
	ID  uuid.UUID `json:"id"`
	URL string    `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	store  store.Store
	queue  Enqueuer
	logger *zap.Logger
	router *mux.Router
	server *http.Server
}

// NewServer exposes stored results. A nil queue disables POST /api/check.
func NewServer(st store.Store, queue Enqueuer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  st,
		queue:  queue,
		logger: logger.With(zap.String("component", "server")),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Registered on the root router: a subrouter reports most method mismatches as 404.
	s.router.HandleFunc("/api/results", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/api/results/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/check", s.handleCheck).Methods(http.MethodPost)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	results, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list results", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	result, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load result", zap.Stringer("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("Failed to compute stats", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		s.writeError(w, http.StatusNotImplemented, "link queue is not available for this store")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	if err := s.queue.Enqueue(r.Context(), req.URL); err != nil {
		s.logger.Error("Failed to queue link", zap.String("url", req.URL), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to queue")
		return
	}
	s.logger.Info("Link queued", zap.String("url", req.URL))
	s.writeJSON(w, http.StatusAccepted, checkResponse{ID: model.ResultID(req.URL), URL: req.URL})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
