package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// OpenAIModel adapts the OpenAI chat completion API to the ModelClient
// interface. Outbound calls are paced by a shared token-bucket limiter so a
// large collection run cannot burn through the API quota.
type OpenAIModel struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *logrus.Logger
}

var _ ModelClient = (*OpenAIModel)(nil)

// NewOpenAIModel builds a paced model client. rpm bounds requests per
// minute; rpm <= 0 disables pacing.
func NewOpenAIModel(apiKey, model string, rpm int, logger *logrus.Logger) *OpenAIModel {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return &OpenAIModel{
		client:  openai.NewClient(apiKey),
		model:   model,
		limiter: limiter,
		logger:  logger,
	}
}

// Complete submits the prompt and returns the raw completion text.
func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter interrupted: %w", err)
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   2048,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	m.logger.WithFields(logrus.Fields{
		"model":       m.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"tokens":      resp.Usage.TotalTokens,
	}).Debug("Model call completed")
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
