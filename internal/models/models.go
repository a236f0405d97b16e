package models

import (
	"strings"
	"time"
)

// Platform identifies where a mention was collected from.
type Platform string

const (
	PlatformGoogleSearch Platform = "google_search"
	PlatformHackerNews   Platform = "hackernews"
	PlatformTwitter      Platform = "twitter"
	PlatformLinkedIn     Platform = "linkedin"
)

// Sentiment is the overall tone the analyzer assigns to a mention.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// Sentiments lists every value the schema validator accepts.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative, SentimentMixed}

// Category classifies the intent of a mention.
type Category string

const (
	CategoryComplaint      Category = "complaint"
	CategoryReview         Category = "review"
	CategoryQuestion       Category = "question"
	CategoryPraise         Category = "praise"
	CategoryFeatureRequest Category = "feature_request"
)

// Categories lists every value the schema validator accepts.
var Categories = []Category{CategoryComplaint, CategoryReview, CategoryQuestion, CategoryPraise, CategoryFeatureRequest}

// ResponseStatus tracks where a mention sits in the engagement workflow.
type ResponseStatus string

const (
	StatusPending    ResponseStatus = "pending"
	StatusSent       ResponseStatus = "sent"
	StatusInCampaign ResponseStatus = "in_campaign"
	StatusIgnored    ResponseStatus = "ignored"
)

// ResponseStatuses lists every valid workflow state.
var ResponseStatuses = []ResponseStatus{StatusPending, StatusSent, StatusInCampaign, StatusIgnored}

// ValidResponseStatus reports whether s is a known workflow state.
func ValidResponseStatus(s ResponseStatus) bool {
	for _, v := range ResponseStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// AuthorKind distinguishes AI-generated replies from human ones.
type AuthorKind string

const (
	AuthorAI    AuthorKind = "ai"
	AuthorHuman AuthorKind = "human"
)

// ParseAuthorKind normalizes user-supplied kinds ("AI", "Human") and reports
// whether the value is recognized.
func ParseAuthorKind(s string) (AuthorKind, bool) {
	switch AuthorKind(strings.ToLower(strings.TrimSpace(s))) {
	case AuthorAI:
		return AuthorAI, true
	case AuthorHuman:
		return AuthorHuman, true
	}
	return "", false
}

// RawItem is one normalized piece of source text before analysis.
// Collectors produce these; they are never mutated afterwards.
type RawItem struct {
	ID        string    `json:"id"` // unique, source-prefixed ("hackernews_123")
	Platform  Platform  `json:"platform"`
	Entities  []string  `json:"entities"` // tracked entity names found in the text, never empty
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"` // UTC
	URL       string    `json:"url"`
}

// Mention is an analyzed RawItem plus its engagement lifecycle fields.
// One Mention exists per RawItem id; analysis fields are written once by the
// analyzer, lifecycle fields are mutated only through the lifecycle manager.
type Mention struct {
	RawItem

	Entity         string         `json:"entity"` // primary tracked entity this record was collected under
	Sentiment      Sentiment      `json:"sentiment"`
	SentimentScore float64        `json:"sentiment_score"` // -1..1
	Rating         *int           `json:"rating,omitempty"` // explicit star rating 1..5, if the text mentions one
	Topics         []string       `json:"topics"`
	Category       Category       `json:"category"`
	KeyInsight     string         `json:"key_insight"`
	Summary        string         `json:"summary"`
	Confidence     float64        `json:"confidence"` // 0..1
	Actionable     bool           `json:"actionable"`
	ResponseStatus ResponseStatus `json:"response_status"`
	ResponseDraft  *string        `json:"response_draft,omitempty"`
	AssignedTo     *string        `json:"assigned_to,omitempty"`
}

// Reply is one outbound response attached to a mention. Replies are
// append-only; creating one moves the mention to StatusSent.
type Reply struct {
	ID         string     `json:"id"`
	MentionID  string     `json:"mention_id"`
	AuthorKind AuthorKind `json:"author_kind"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Campaign groups related mentions into a coordinated response effort.
type Campaign struct {
	ID                string    `json:"id"`
	Topic             string    `json:"topic"`
	Summary           string    `json:"summary"`
	SentimentLabel    string    `json:"sentiment_label"`
	TriggerCount      int       `json:"trigger_count"`
	RelatedMentionIDs []string  `json:"related_mention_ids"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

// CampaignStatusActive is the status assigned to newly created campaigns.
const CampaignStatusActive = "active"

// Report summarizes one collection run for notification channels.
type Report struct {
	Entity          string            `json:"entity"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Period          string            `json:"period"` // e.g. "weekly"
	TotalCollected  int               `json:"total_collected"`
	TotalAnalyzed   int               `json:"total_analyzed"`
	SentimentCounts map[Sentiment]int `json:"sentiment_counts"`
	Actionable      []Mention         `json:"actionable"` // mentions flagged for follow-up, most recent first
	Urgent          bool              `json:"urgent,omitempty"`
}
