package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/socialpulse/mentions-bot/internal/aggregator"
	"github.com/socialpulse/mentions-bot/internal/models"
	"github.com/socialpulse/mentions-bot/internal/storage"
)

type replyRequest struct {
	AuthorKind string `json:"author_kind"`
	Content    string `json:"content"`
}

type patchRequest struct {
	ResponseStatus *string `json:"response_status"`
	Actionable     *bool   `json:"actionable"`
	AssignedTo     *string `json:"assigned_to"`
}

type campaignRequest struct {
	Topic             string   `json:"topic"`
	Summary           string   `json:"summary"`
	SentimentLabel    string   `json:"sentiment_label"`
	TriggerCount      int      `json:"trigger_count"`
	RelatedMentionIDs []string `json:"related_mention_ids"`
	ApplyToMentions   bool     `json:"apply_to_mentions"`
}

type collectRequest struct {
	Entity string `json:"entity"`
	Days   int    `json:"days"`
	Limit  int    `json:"limit"`
}

const (
	defaultCollectLimit = 20
	maxCollectLimit     = 200
)

type collectResponse struct {
	Status        string `json:"status"`
	JobID         string `json:"job_id"`
	TotalMentions int    `json:"total_mentions"`
	AnalyzedCount int    `json:"analyzed_count"`
	SavedCount    int    `json:"saved_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleListMentions(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mentions, err := s.manager.Mentions(r.Context(), f)
	if err != nil {
		s.respondError(w, err, "failed to list mentions")
		return
	}
	s.writeJSON(w, http.StatusOK, mentions)
}

func (s *Server) handleGetMention(w http.ResponseWriter, r *http.Request) {
	mention, err := s.manager.Mention(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err, "failed to load mention")
		return
	}
	s.writeJSON(w, http.StatusOK, mention)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.manager.RecordReply(r.Context(), mux.Vars(r)["id"], req.AuthorKind, req.Content)
	if err != nil {
		s.respondError(w, err, "failed to record reply")
		return
	}
	s.writeJSON(w, http.StatusCreated, reply)
}

func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	replies, err := s.manager.Replies(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err, "failed to list replies")
		return
	}
	s.writeJSON(w, http.StatusOK, replies)
}

func (s *Server) handlePatchStatus(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := storage.MentionPatch{
		Actionable: req.Actionable,
		AssignedTo: req.AssignedTo,
	}
	if req.ResponseStatus != nil {
		status := models.ResponseStatus(*req.ResponseStatus)
		patch.ResponseStatus = &status
	}

	updated, err := s.manager.PatchMention(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.respondError(w, err, "failed to update mention")
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		s.writeError(w, http.StatusBadRequest, "campaign topic is required")
		return
	}

	campaign := models.Campaign{
		Topic:             strings.TrimSpace(req.Topic),
		Summary:           req.Summary,
		SentimentLabel:    req.SentimentLabel,
		TriggerCount:      req.TriggerCount,
		RelatedMentionIDs: req.RelatedMentionIDs,
	}

	created, err := s.manager.LaunchCampaign(r.Context(), campaign, req.ApplyToMentions)
	if err != nil {
		s.respondError(w, err, "failed to create campaign")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 0 // store applies its own default
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	campaigns, err := s.manager.Campaigns(r.Context(), limit)
	if err != nil {
		s.respondError(w, err, "failed to list campaigns")
		return
	}
	s.writeJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mentions, err := s.manager.Mentions(r.Context(), f)
	if err != nil {
		s.respondError(w, err, "failed to load mentions for stats")
		return
	}
	s.writeJSON(w, http.StatusOK, aggregator.Aggregate(mentions, f.Days))
}

// handleCollect runs a collection synchronously and reports its counts. An
// empty body triggers a run over the configured entities and default window.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entities := s.config.Entities
	if strings.TrimSpace(req.Entity) != "" {
		entities = []string{strings.TrimSpace(req.Entity)}
	}
	days := req.Days
	if days <= 0 {
		days = s.config.DefaultDays
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultCollectLimit
	}
	if limit > maxCollectLimit {
		limit = maxCollectLimit
	}

	jobID := uuid.NewString()
	result, err := s.pipeline.RunFor(r.Context(), entities, time.Duration(days)*24*time.Hour, limit)
	if err != nil {
		s.logger.WithError(err).Error("Collection run failed")
		s.writeError(w, http.StatusInternalServerError, "collection run failed")
		return
	}

	s.writeJSON(w, http.StatusOK, collectResponse{
		Status:        "completed",
		JobID:         jobID,
		TotalMentions: result.Collected,
		AnalyzedCount: result.Analyzed,
		SavedCount:    result.Saved,
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.manager.DropCache()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.manager.CacheInfo())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.pipeline.GetMetrics()))
}

// filterFromQuery builds a mention filter from the query string. Unknown
// sentiment or category values are rejected here so a typo returns a 400
// instead of silently matching nothing.
func (s *Server) filterFromQuery(r *http.Request) (storage.MentionFilter, error) {
	q := r.URL.Query()

	f := storage.MentionFilter{Entity: q.Get("entity")}

	if v := q.Get("sentiment"); v != "" {
		if !validSentiment(v) {
			return f, fmt.Errorf("unknown sentiment %q", v)
		}
		f.Sentiment = models.Sentiment(v)
	}
	if v := q.Get("category"); v != "" {
		if !validCategory(v) {
			return f, fmt.Errorf("unknown category %q", v)
		}
		f.Category = models.Category(v)
	}

	days, err := positiveIntParam(q.Get("days"), "days", s.config.DefaultDays)
	if err != nil {
		return f, err
	}
	f.Days = days

	limit, err := positiveIntParam(q.Get("limit"), "limit", s.config.DefaultLimit)
	if err != nil {
		return f, err
	}
	f.Limit = limit

	return f, nil
}

func positiveIntParam(value, name string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func validSentiment(v string) bool {
	for _, s := range models.Sentiments {
		if v == string(s) {
			return true
		}
	}
	return false
}

func validCategory(v string) bool {
	for _, c := range models.Categories {
		if v == string(c) {
			return true
		}
	}
	return false
}
