package analysis

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// maxAttempts bounds outbound model calls per item. Attempt 1 uses the base
// prompt, attempt 2 repeats it with the machine-readable schema attached.
const maxAttempts = 2

// scoreTolerance is how far sentiment_score may sit on the wrong side of
// zero before the sentiment/score combination is logged as suspicious.
const scoreTolerance = 0.2

// Analyzer turns raw items into validated mentions. Analyze never fails:
// when the model errors out or keeps producing invalid output, the analyzer
// falls back to a rule-based extraction so the pipeline always moves on.
type Analyzer struct {
	model  ModelClient
	logger *logrus.Logger
}

// NewAnalyzer wires an analyzer to a model client.
func NewAnalyzer(model ModelClient, logger *logrus.Logger) *Analyzer {
	return &Analyzer{model: model, logger: logger}
}

// Analyze produces exactly one valid mention per raw item. New mentions
// always start in response status "pending".
func (a *Analyzer) Analyze(ctx context.Context, item models.RawItem) models.Mention {
	e := a.extract(ctx, item)

	entity := ""
	if len(item.Entities) > 0 {
		entity = item.Entities[0]
	}

	return models.Mention{
		RawItem:        item,
		Entity:         entity,
		Sentiment:      models.Sentiment(e.Sentiment),
		SentimentScore: e.SentimentScore,
		Rating:         e.Rating,
		Topics:         e.Topics,
		Category:       models.Category(e.Category),
		KeyInsight:     e.KeyInsight,
		Summary:        e.Summary,
		Confidence:     e.Confidence,
		Actionable:     e.Actionable,
		ResponseStatus: models.StatusPending,
		ResponseDraft:  e.ResponseDraft,
	}
}

// extract runs the attempt 1 -> attempt 2 -> fallback sequence. Transport
// errors and rejected output consume attempts alike.
func (a *Analyzer) extract(ctx context.Context, item models.RawItem) Extraction {
	base := buildPrompt(item)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := base
		if attempt > 1 {
			prompt = strictPrompt(base)
		}

		text, err := a.model.Complete(ctx, prompt)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"item_id": item.ID,
				"attempt": attempt,
			}).WithError(err).Warn("Model call failed")
			continue
		}

		extraction, err := ParseExtraction(text)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"item_id": item.ID,
				"attempt": attempt,
			}).WithError(err).Warn("Model output rejected")
			continue
		}

		a.checkScoreConsistency(item.ID, extraction)
		return extraction
	}

	a.logger.WithField("item_id", item.ID).Warn("Falling back to rule-based analysis")
	return fallbackExtraction(item.Text)
}

// checkScoreConsistency logs when the numeric score contradicts the label.
// This is a soft warning, never a rejection.
func (a *Analyzer) checkScoreConsistency(itemID string, e Extraction) {
	consistent := true
	switch models.Sentiment(e.Sentiment) {
	case models.SentimentPositive:
		consistent = e.SentimentScore >= -scoreTolerance
	case models.SentimentNegative:
		consistent = e.SentimentScore <= scoreTolerance
	}
	if !consistent {
		a.logger.WithFields(logrus.Fields{
			"item_id":   itemID,
			"sentiment": e.Sentiment,
			"score":     e.SentimentScore,
		}).Warn("Sentiment label and score disagree")
	}
}
