package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// HackerNewsSource implements Hacker News API source
type HackerNewsSource struct {
	client *resty.Client
}

type hackerNewsItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Text  string `json:"text"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewHackerNewsSource creates a new Hacker News source
func NewHackerNewsSource() *HackerNewsSource {
	return &HackerNewsSource{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (h *HackerNewsSource) GetName() string {
	return "hackernews"
}

func (h *HackerNewsSource) IsEnabled() bool {
	return true // Hacker News API doesn't require authentication
}

func (h *HackerNewsSource) FetchItems(ctx context.Context, entities []string, since time.Duration) ([]models.RawItem, error) {
	itemIDs, err := h.getRecentItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}

	var items []models.RawItem
	cutoff := time.Now().Add(-since)

	// Limit to avoid too many API calls
	limit := 500
	if len(itemIDs) > limit {
		itemIDs = itemIDs[:limit]
	}

	for _, itemID := range itemIDs {
		select {
		case <-ctx.Done():
			return items, ctx.Err()
		default:
		}

		item, err := h.getItem(ctx, itemID)
		if err != nil {
			logrus.Debugf("Failed to get HN item %d: %v", itemID, err)
			continue
		}

		if item == nil || item.Time == 0 {
			continue
		}

		createdAt := time.Unix(item.Time, 0).UTC()
		if createdAt.Before(cutoff) {
			continue
		}

		raw := convertHackerNewsItem(*item, createdAt, entities)
		if raw == nil {
			continue
		}
		items = append(items, *raw)
	}

	return items, nil
}

// convertHackerNewsItem maps an API item onto a RawItem, or nil when no
// tracked entity appears in it.
func convertHackerNewsItem(item hackerNewsItem, createdAt time.Time, entities []string) *models.RawItem {
	text := item.Title
	if item.Text != "" {
		if text != "" {
			text += "\n\n"
		}
		text += item.Text
	}

	matched := matchEntities(text, entities)
	if len(matched) == 0 {
		return nil
	}

	url := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
	// Use external URL if available and it's a story
	if item.Type == "story" && item.URL != "" {
		url = item.URL
	}

	return &models.RawItem{
		ID:        fmt.Sprintf("hackernews_%d", item.ID),
		Platform:  models.PlatformHackerNews,
		Entities:  matched,
		Text:      text,
		Author:    item.By,
		Timestamp: createdAt,
		URL:       url,
	}
}

func (h *HackerNewsSource) getRecentItems(ctx context.Context) ([]int, error) {
	// Get new stories
	resp, err := h.client.R().
		SetContext(ctx).
		Get("https://hacker-news.firebaseio.com/v0/newstories.json")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d", resp.StatusCode())
	}

	var itemIDs []int
	if err := json.Unmarshal(resp.Body(), &itemIDs); err != nil {
		return nil, err
	}

	return itemIDs, nil
}

func (h *HackerNewsSource) getItem(ctx context.Context, itemID int) (*hackerNewsItem, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("https://hacker-news.firebaseio.com/v0/item/%d.json", itemID))

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("hacker news API returned status %d for item %d", resp.StatusCode(), itemID)
	}

	var item hackerNewsItem
	if err := json.Unmarshal(resp.Body(), &item); err != nil {
		return nil, err
	}

	return &item, nil
}
