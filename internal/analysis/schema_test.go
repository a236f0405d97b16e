package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExtraction() Extraction {
	rating := 4
	return Extraction{
		Sentiment:      "positive",
		SentimentScore: 0.7,
		Rating:         &rating,
		Topics:         []string{"pricing"},
		Category:       "review",
		KeyInsight:     "User likes the new pricing",
		Summary:        "Positive pricing feedback",
		Confidence:     0.9,
		Actionable:     false,
	}
}

func TestValidateExtraction(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Extraction)
		field   string // empty means the extraction must be accepted
	}{
		{"valid extraction", func(e *Extraction) {}, ""},
		{"mixed sentiment accepted", func(e *Extraction) { e.Sentiment = "mixed" }, ""},
		{"score lower bound accepted", func(e *Extraction) { e.SentimentScore = -1 }, ""},
		{"score upper bound accepted", func(e *Extraction) { e.SentimentScore = 1 }, ""},
		{"rating bounds accepted", func(e *Extraction) { r := 1; e.Rating = &r }, ""},
		{"missing rating accepted", func(e *Extraction) { e.Rating = nil }, ""},
		{"empty topics accepted", func(e *Extraction) { e.Topics = []string{} }, ""},
		{"confidence bounds accepted", func(e *Extraction) { e.Confidence = 0 }, ""},

		{"unknown sentiment", func(e *Extraction) { e.Sentiment = "ecstatic" }, "sentiment"},
		{"score below range", func(e *Extraction) { e.SentimentScore = -1.2 }, "sentiment_score"},
		{"score above range", func(e *Extraction) { e.SentimentScore = 1.01 }, "sentiment_score"},
		{"rating below range", func(e *Extraction) { r := 0; e.Rating = &r }, "rating"},
		{"rating above range", func(e *Extraction) { r := 6; e.Rating = &r }, "rating"},
		{"blank topic label", func(e *Extraction) { e.Topics = []string{"pricing", "  "} }, "topics"},
		{"unknown category", func(e *Extraction) { e.Category = "rant" }, "category"},
		{"confidence below range", func(e *Extraction) { e.Confidence = -0.1 }, "confidence"},
		{"confidence above range", func(e *Extraction) { e.Confidence = 1.1 }, "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExtraction()
			tt.mutate(&e)
			err := e.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field, "error must name the offending field")
		})
	}
}

func TestParseExtraction(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		e, err := ParseExtraction(validResponse)
		require.NoError(t, err)
		assert.Equal(t, "positive", e.Sentiment)
		require.NotNil(t, e.Rating)
		assert.Equal(t, 5, *e.Rating)
	})

	t.Run("json code fence", func(t *testing.T) {
		e, err := ParseExtraction("```json\n" + validResponse + "\n```")
		require.NoError(t, err)
		assert.Equal(t, "praise", e.Category)
	})

	t.Run("anonymous code fence", func(t *testing.T) {
		e, err := ParseExtraction("Here you go:\n```\n" + validResponse + "\n```\nHope that helps!")
		require.NoError(t, err)
		assert.Equal(t, "positive", e.Sentiment)
	})

	t.Run("not json at all", func(t *testing.T) {
		_, err := ParseExtraction("I am sorry, I cannot produce JSON today.")
		assert.Error(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := ParseExtraction(`{"sentiment": "positive", "sentiment_score": 0.5}`)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "category", vErr.Field)
	})

	t.Run("explicit null counts as missing", func(t *testing.T) {
		payload := `{"sentiment": null, "sentiment_score": 0.5, "category": "review",
			"key_insight": "x", "summary": "y", "confidence": 0.5, "actionable": false}`
		_, err := ParseExtraction(payload)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "sentiment", vErr.Field)
	})

	t.Run("wrong type names the field", func(t *testing.T) {
		payload := `{"sentiment": "positive", "sentiment_score": "very high", "category": "review",
			"key_insight": "x", "summary": "y", "confidence": 0.5, "actionable": false}`
		_, err := ParseExtraction(payload)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "sentiment_score", vErr.Field)
	})

	t.Run("out of range is rejected, not clamped", func(t *testing.T) {
		payload := `{"sentiment": "positive", "sentiment_score": 3.5, "category": "review",
			"key_insight": "x", "summary": "y", "confidence": 0.5, "actionable": false}`
		_, err := ParseExtraction(payload)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "sentiment_score", vErr.Field)
	})

	t.Run("extra fields are tolerated", func(t *testing.T) {
		payload := `{"sentiment": "neutral", "sentiment_score": 0, "category": "question",
			"key_insight": "x", "summary": "y", "confidence": 0.5, "actionable": true,
			"model_notes": "ignore me"}`
		e, err := ParseExtraction(payload)
		require.NoError(t, err)
		assert.True(t, e.Actionable)
	})

	t.Run("missing topics default to empty list", func(t *testing.T) {
		payload := `{"sentiment": "neutral", "sentiment_score": 0, "category": "question",
			"key_insight": "x", "summary": "y", "confidence": 0.5, "actionable": false}`
		e, err := ParseExtraction(payload)
		require.NoError(t, err)
		require.NotNil(t, e.Topics)
		assert.Empty(t, e.Topics)
	})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}

func TestValidationErrorMessageNamesField(t *testing.T) {
	err := &ValidationError{Field: "rating", Reason: "9 outside [1, 5]"}
	assert.Contains(t, err.Error(), "rating")

	var target *ValidationError
	assert.True(t, errors.As(error(err), &target))
}
