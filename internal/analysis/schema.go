package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// Extraction is the structured document the model must return for one item.
// The jsonschema tags drive the schema embedded in the stricter retry prompt.
type Extraction struct {
	Sentiment      string   `json:"sentiment" jsonschema:"required,enum=positive,enum=neutral,enum=negative,enum=mixed" jsonschema_description:"Overall sentiment of the text"`
	SentimentScore float64  `json:"sentiment_score" jsonschema:"required,minimum=-1,maximum=1" jsonschema_description:"Score from -1.0 (very negative) to 1.0 (very positive)"`
	Rating         *int     `json:"rating,omitempty" jsonschema:"minimum=1,maximum=5" jsonschema_description:"Star rating if explicitly mentioned, otherwise null"`
	Topics         []string `json:"topics" jsonschema_description:"Topics actually mentioned in the text"`
	Category       string   `json:"category" jsonschema:"required,enum=complaint,enum=review,enum=question,enum=praise,enum=feature_request" jsonschema_description:"Kind of feedback"`
	KeyInsight     string   `json:"key_insight" jsonschema:"required" jsonschema_description:"One sentence capturing the core message"`
	Summary        string   `json:"summary" jsonschema:"required" jsonschema_description:"Short professional summary for the dashboard"`
	Confidence     float64  `json:"confidence" jsonschema:"required,minimum=0,maximum=1" jsonschema_description:"Confidence in this analysis"`
	Actionable     bool     `json:"actionable" jsonschema:"required" jsonschema_description:"True when the company should respond"`
	ResponseDraft  *string  `json:"response_draft,omitempty" jsonschema_description:"Suggested reply when actionable"`
}

// ValidationError reports a single offending field in a model response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// requiredFields must be present in the model output. Topics defaults to an
// empty list, rating and response_draft are optional.
var requiredFields = []string{
	"sentiment", "sentiment_score", "category",
	"key_insight", "summary", "confidence", "actionable",
}

// ParseExtraction turns raw model output into a validated Extraction. It
// tolerates markdown code fences around the JSON document but nothing else.
func ParseExtraction(text string) (Extraction, error) {
	payload := stripCodeFences(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Extraction{}, fmt.Errorf("output is not a JSON object: %w", err)
	}
	for _, name := range requiredFields {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return Extraction{}, &ValidationError{Field: name, Reason: "missing"}
		}
	}

	var e Extraction
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return Extraction{}, &ValidationError{Field: typeErr.Field, Reason: "unexpected " + typeErr.Value}
		}
		return Extraction{}, fmt.Errorf("failed to decode output: %w", err)
	}
	if e.Topics == nil {
		e.Topics = []string{}
	}

	if err := e.Validate(); err != nil {
		return Extraction{}, err
	}
	return e, nil
}

// Validate enforces the enum and range constraints. Out-of-range values are
// rejected, never clamped.
func (e Extraction) Validate() error {
	if !validSentiment(e.Sentiment) {
		return &ValidationError{Field: "sentiment", Reason: fmt.Sprintf("unknown value %q", e.Sentiment)}
	}
	if e.SentimentScore < -1 || e.SentimentScore > 1 {
		return &ValidationError{Field: "sentiment_score", Reason: fmt.Sprintf("%v outside [-1, 1]", e.SentimentScore)}
	}
	if e.Rating != nil && (*e.Rating < 1 || *e.Rating > 5) {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("%d outside [1, 5]", *e.Rating)}
	}
	for _, topic := range e.Topics {
		if strings.TrimSpace(topic) == "" {
			return &ValidationError{Field: "topics", Reason: "contains an empty label"}
		}
	}
	if !validCategory(e.Category) {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown value %q", e.Category)}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: fmt.Sprintf("%v outside [0, 1]", e.Confidence)}
	}
	return nil
}

func validSentiment(s string) bool {
	for _, v := range models.Sentiments {
		if s == string(v) {
			return true
		}
	}
	return false
}

func validCategory(c string) bool {
	for _, v := range models.Categories {
		if c == string(v) {
			return true
		}
	}
	return false
}

// stripCodeFences unwraps the ```json ... ``` markdown some models insist on
// emitting despite instructions.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "{") {
				return part
			}
		}
	}
	return text
}
