package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// TwitterSource implements Twitter/X API source
type TwitterSource struct {
	bearerToken string
	client      *resty.Client
}

type twitterSearchResponse struct {
	Data []twitterTweet `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type twitterTweet struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	AuthorID         string `json:"author_id"`
	CreatedAt        string `json:"created_at"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// NewTwitterSource creates a new Twitter source
func NewTwitterSource(bearerToken string) *TwitterSource {
	return &TwitterSource{
		bearerToken: bearerToken,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (t *TwitterSource) GetName() string {
	return "twitter"
}

func (t *TwitterSource) IsEnabled() bool {
	return t.bearerToken != ""
}

func (t *TwitterSource) FetchItems(ctx context.Context, entities []string, since time.Duration) ([]models.RawItem, error) {
	if !t.IsEnabled() {
		logrus.Debug("Twitter source disabled - missing bearer token")
		return nil, nil
	}

	var items []models.RawItem
	for i, entity := range entities {
		// Space out keyword searches to stay under the API rate limit
		if i > 0 {
			select {
			case <-ctx.Done():
				return deduplicateItems(items), ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}

		found, err := t.searchEntity(ctx, entity, since)
		if err != nil {
			logrus.Errorf("Failed to search Twitter for entity %q: %v", entity, err)
			// Continue with other entities instead of failing completely
			continue
		}

		logrus.Infof("Found %d tweets mentioning %q", len(found), entity)
		items = append(items, found...)
	}

	return deduplicateItems(items), nil
}

func (t *TwitterSource) searchEntity(ctx context.Context, entity string, since time.Duration) ([]models.RawItem, error) {
	startTime := time.Now().Add(-since).Format(time.RFC3339)
	query := url.QueryEscape(fmt.Sprintf(`"%s" -is:retweet`, entity))

	searchURL := fmt.Sprintf("https://api.twitter.com/2/tweets/search/recent?query=%s&start_time=%s&max_results=100&tweet.fields=created_at,author_id,referenced_tweets",
		query, startTime)

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		Get(searchURL)
	if err != nil {
		return nil, err
	}

	// Rate limited: skip this entity rather than blocking the whole run.
	if resp.StatusCode() == 429 {
		logrus.Warnf("Twitter API rate limit hit for entity %q - skipping", entity)
		return nil, nil
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var searchResp twitterSearchResponse
	if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse Twitter response: %w", err)
	}

	var items []models.RawItem
	for _, tweet := range searchResp.Data {
		// Skip retweets to avoid duplicates
		if isRetweet(tweet) {
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, tweet.CreatedAt)
		if err != nil {
			logrus.Errorf("Failed to parse Twitter timestamp: %v", err)
			continue
		}

		items = append(items, models.RawItem{
			ID:        fmt.Sprintf("twitter_%s", tweet.ID),
			Platform:  models.PlatformTwitter,
			Entities:  []string{entity},
			Text:      tweet.Text,
			Author:    tweet.AuthorID,
			Timestamp: createdAt.UTC(),
			URL:       fmt.Sprintf("https://twitter.com/i/status/%s", tweet.ID),
		})
	}

	return items, nil
}

func isRetweet(tweet twitterTweet) bool {
	for _, ref := range tweet.ReferencedTweets {
		if ref.Type == "retweeted" {
			return true
		}
	}
	return false
}
