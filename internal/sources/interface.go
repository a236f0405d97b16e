package sources

import (
	"context"
	"strings"
	"time"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// userAgent identifies the bot against public APIs.
const userAgent = "SocialPulse-Mentions-Bot/1.0"

// Source is a collector of raw text snippets that mention tracked entities.
type Source interface {
	GetName() string
	FetchItems(ctx context.Context, entities []string, since time.Duration) ([]models.RawItem, error)
	IsEnabled() bool
}

// matchEntities returns the tracked entity names that appear in text,
// matched case-insensitively. Collectors drop results that match nothing.
func matchEntities(text string, tracked []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, entity := range tracked {
		if strings.Contains(lower, strings.ToLower(entity)) {
			matched = append(matched, entity)
		}
	}
	return matched
}

// deduplicateItems drops repeated ids, keeping first occurrence order.
func deduplicateItems(items []models.RawItem) []models.RawItem {
	seen := make(map[string]bool)
	var unique []models.RawItem
	for _, item := range items {
		if !seen[item.ID] {
			seen[item.ID] = true
			unique = append(unique, item)
		}
	}
	return unique
}
