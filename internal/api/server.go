// Package api exposes mentions, campaigns, stats and the collection
// pipeline over HTTP. Handlers translate the sentinel errors of the storage
// and lifecycle layers into 4xx responses; anything unrecognized is a 500.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/lifecycle"
	"github.com/socialpulse/mentions-bot/internal/pipeline"
	"github.com/socialpulse/mentions-bot/internal/storage"
)

// Pipeline is the slice of the collection pipeline the HTTP layer uses.
type Pipeline interface {
	RunFor(ctx context.Context, entities []string, window time.Duration, limit int) (pipeline.RunResult, error)
	GetMetrics() string
}

var _ Pipeline = (*pipeline.Service)(nil)

// Server routes HTTP requests to the lifecycle manager and the pipeline.
type Server struct {
	config   *config.Config
	manager  *lifecycle.Manager
	pipeline Pipeline
	logger   *logrus.Logger
}

// NewServer creates the HTTP layer over the given manager and pipeline.
func NewServer(cfg *config.Config, manager *lifecycle.Manager, p Pipeline, logger *logrus.Logger) *Server {
	return &Server{config: cfg, manager: manager, pipeline: p, logger: logger}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/api/mentions", s.handleListMentions).Methods("GET")
	router.HandleFunc("/api/mentions/{id}", s.handleGetMention).Methods("GET")
	router.HandleFunc("/api/mentions/{id}/reply", s.handleReply).Methods("POST")
	router.HandleFunc("/api/mentions/{id}/replies", s.handleListReplies).Methods("GET")
	router.HandleFunc("/api/mentions/{id}/status", s.handlePatchStatus).Methods("PATCH")

	router.HandleFunc("/api/campaigns", s.handleCreateCampaign).Methods("POST")
	router.HandleFunc("/api/campaigns", s.handleListCampaigns).Methods("GET")

	router.HandleFunc("/api/stats", s.handleStats).Methods("GET")
	router.HandleFunc("/api/collect", s.handleCollect).Methods("POST")

	router.HandleFunc("/api/cache", s.handleClearCache).Methods("DELETE")
	router.HandleFunc("/api/cache/info", s.handleCacheInfo).Methods("GET")

	router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	return router
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps a downstream error to a response. Client errors echo the
// underlying message, server errors are logged and kept generic.
func (s *Server) respondError(w http.ResponseWriter, err error, message string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error(message)
		s.writeError(w, status, message)
		return
	}
	s.writeError(w, status, err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmptyPatch),
		errors.Is(err, storage.ErrInvalidStatus),
		errors.Is(err, lifecycle.ErrInvalidAuthorKind),
		errors.Is(err, lifecycle.ErrEmptyReply):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
