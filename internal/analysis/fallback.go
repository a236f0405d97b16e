package analysis

import (
	"strings"

	"github.com/socialpulse/mentions-bot/internal/models"
)

var (
	positiveWords = []string{"good", "great", "excellent", "love", "best", "amazing", "fantastic"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "worst", "poor", "disappointing"}
)

// fallbackConfidence marks records produced without the model.
const fallbackConfidence = 0.3

// fallbackExtraction derives a minimal extraction from keyword sentiment
// alone. Used after the model has failed both attempts; always passes
// validation.
func fallbackExtraction(text string) Extraction {
	lower := strings.ToLower(text)

	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}

	sentiment := models.SentimentNeutral
	score := 0.0
	switch {
	case negative > positive:
		sentiment = models.SentimentNegative
		score = -0.5
	case positive > negative:
		sentiment = models.SentimentPositive
		score = 0.5
	}

	return Extraction{
		Sentiment:      string(sentiment),
		SentimentScore: score,
		Topics:         []string{},
		Category:       string(models.CategoryReview),
		KeyInsight:     "Unable to analyze - model error",
		Summary:        "Analysis unavailable",
		Confidence:     fallbackConfidence,
		Actionable:     false,
	}
}
