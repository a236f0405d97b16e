package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/socialpulse/mentions-bot/internal/models"
)

const serpAPIURL = "https://serpapi.com/search"

// GoogleSearchSource collects web mentions through the SerpAPI Google
// Search endpoint.
type GoogleSearchSource struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

type serpAPIResponse struct {
	OrganicResults []serpAPIResult `json:"organic_results"`
}

type serpAPIResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
}

// NewGoogleSearchSource creates a new Google Search source
func NewGoogleSearchSource(apiKey string) *GoogleSearchSource {
	return &GoogleSearchSource{
		apiKey:  apiKey,
		baseURL: serpAPIURL,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", userAgent),
	}
}

func (g *GoogleSearchSource) GetName() string {
	return "google_search"
}

func (g *GoogleSearchSource) IsEnabled() bool {
	return g.apiKey != ""
}

func (g *GoogleSearchSource) FetchItems(ctx context.Context, entities []string, since time.Duration) ([]models.RawItem, error) {
	if !g.IsEnabled() {
		logrus.Debug("Google Search source disabled - missing SerpAPI key")
		return nil, nil
	}

	var items []models.RawItem
	for _, entity := range entities {
		for _, query := range searchQueries(entity) {
			select {
			case <-ctx.Done():
				return deduplicateItems(items), ctx.Err()
			default:
			}

			resp, err := g.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"q":       query,
					"api_key": g.apiKey,
					"num":     "10",
					"hl":      "en",
					"tbs":     recencyFilter(since),
				}).
				Get(g.baseURL)
			if err != nil {
				logrus.Errorf("Google search failed for query %q: %v", query, err)
				continue
			}
			if resp.StatusCode() != 200 {
				logrus.Errorf("SerpAPI returned status %d for query %q", resp.StatusCode(), query)
				continue
			}

			var searchResp serpAPIResponse
			if err := json.Unmarshal(resp.Body(), &searchResp); err != nil {
				logrus.Errorf("Failed to parse SerpAPI response for query %q: %v", query, err)
				continue
			}
			items = append(items, convertSearchResults(searchResp.OrganicResults, entities)...)
		}
	}

	return deduplicateItems(items), nil
}

// searchQueries fans one entity out into the review/opinion/experience
// probes that surface feedback rather than marketing pages.
func searchQueries(entity string) []string {
	return []string{
		fmt.Sprintf(`"%s" review`, entity),
		fmt.Sprintf(`"%s" opinion site:reddit.com OR site:news.ycombinator.com`, entity),
		fmt.Sprintf(`"%s" experience`, entity),
	}
}

// recencyFilter maps the search window onto Google's tbs parameter.
func recencyFilter(since time.Duration) string {
	switch {
	case since <= 24*time.Hour:
		return "qdr:d"
	case since <= 7*24*time.Hour:
		return "qdr:w"
	default:
		return "qdr:m"
	}
}

func convertSearchResults(results []serpAPIResult, tracked []string) []models.RawItem {
	var items []models.RawItem
	for _, result := range results {
		text := result.Title + "\n" + result.Snippet
		matched := matchEntities(text, tracked)
		if len(matched) == 0 {
			continue
		}

		author := result.Source
		if author == "" {
			author = "unknown"
		}

		items = append(items, models.RawItem{
			ID:        fmt.Sprintf("google_%x", hashURL(result.Link)),
			Platform:  models.PlatformGoogleSearch,
			Entities:  matched,
			Text:      text,
			Author:    author,
			Timestamp: time.Now().UTC(),
			URL:       result.Link,
		})
	}
	return items
}

// hashURL gives search results a stable id, so re-collecting the same page
// upserts instead of duplicating.
func hashURL(url string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(url))
	return h.Sum64()
}
