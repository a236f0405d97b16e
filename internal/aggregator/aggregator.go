// Package aggregator derives statistics and themes from a snapshot of
// mentions. It is read-only and stateless: callers hand it whatever slice
// the store (or cache) returned.
package aggregator

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// maxActionItems and maxHotTopics cap the detail lists in a Stats payload.
const (
	maxActionItems = 10
	maxHotTopics   = 10

	maxTopicQuotes = 2
	quoteMaxLen    = 140
)

// DateRange is the window a Stats payload covers.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// TrendPoint is the average sentiment of one calendar day.
type TrendPoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// TopicStat counts how often a topic appears and how it is perceived,
// with a few example quotes from the underlying mentions.
type TopicStat struct {
	Topic        string   `json:"topic"`
	Count        int      `json:"count"`
	AvgSentiment float64  `json:"avg_sentiment"`
	SampleQuotes []string `json:"sample_quotes"`
}

// ActionItem is the dashboard summary of one actionable mention.
type ActionItem struct {
	ID         string           `json:"id"`
	Sentiment  models.Sentiment `json:"sentiment"`
	Category   models.Category  `json:"category"`
	Topics     []string         `json:"topics"`
	KeyInsight string           `json:"key_insight"`
	URL        string           `json:"url"`
}

// Stats is the aggregate view over a set of mentions.
type Stats struct {
	TotalMentions         int                           `json:"total_mentions"`
	DateRange             DateRange                     `json:"date_range"`
	SentimentBreakdown    map[models.Sentiment]int      `json:"sentiment_breakdown"`
	SentimentPercentages  map[models.Sentiment]float64  `json:"sentiment_percentages"`
	AverageSentimentScore float64                       `json:"average_sentiment_score"`
	AverageRating         *float64                      `json:"average_rating"`
	SentimentTrend        []TrendPoint                  `json:"sentiment_trend"`
	HotTopics             []TopicStat                   `json:"hot_topics"`
	ActionRequiredCount   int                           `json:"action_required_count"`
	ActionRequiredItems   []ActionItem                  `json:"action_required_items"`
	ResponseStats         map[models.ResponseStatus]int `json:"response_stats"`
	CategoryBreakdown     map[models.Category]int       `json:"category_breakdown"`
	PlatformBreakdown     map[models.Platform]int       `json:"platform_breakdown"`
}

// Aggregate computes statistics over the given mentions. Safe on empty
// input: every distribution comes back zeroed rather than failing.
func Aggregate(mentions []models.Mention, days int) Stats {
	end := time.Now().UTC()
	stats := Stats{
		TotalMentions:        len(mentions),
		DateRange:            DateRange{StartDate: end.AddDate(0, 0, -days), EndDate: end},
		SentimentBreakdown:   map[models.Sentiment]int{},
		SentimentPercentages: map[models.Sentiment]float64{},
		SentimentTrend:       []TrendPoint{},
		HotTopics:            []TopicStat{},
		ActionRequiredItems:  []ActionItem{},
		ResponseStats:        map[models.ResponseStatus]int{},
		CategoryBreakdown:    map[models.Category]int{},
		PlatformBreakdown:    map[models.Platform]int{},
	}
	for _, s := range models.Sentiments {
		stats.SentimentBreakdown[s] = 0
		stats.SentimentPercentages[s] = 0
	}
	for _, s := range models.ResponseStatuses {
		stats.ResponseStats[s] = 0
	}
	if len(mentions) == 0 {
		return stats
	}

	var scoreSum float64
	var ratingSum, ratingCount int
	for _, m := range mentions {
		stats.SentimentBreakdown[m.Sentiment]++
		stats.ResponseStats[m.ResponseStatus]++
		stats.CategoryBreakdown[m.Category]++
		stats.PlatformBreakdown[m.Platform]++
		scoreSum += m.SentimentScore
		if m.Rating != nil {
			ratingSum += *m.Rating
			ratingCount++
		}
		if m.Actionable {
			stats.ActionRequiredCount++
			if len(stats.ActionRequiredItems) < maxActionItems {
				stats.ActionRequiredItems = append(stats.ActionRequiredItems, ActionItem{
					ID:         m.ID,
					Sentiment:  m.Sentiment,
					Category:   m.Category,
					Topics:     m.Topics,
					KeyInsight: m.KeyInsight,
					URL:        m.URL,
				})
			}
		}
	}

	total := float64(len(mentions))
	for s, count := range stats.SentimentBreakdown {
		stats.SentimentPercentages[s] = round(float64(count)/total*100, 1)
	}
	stats.AverageSentimentScore = round(scoreSum/total, 2)
	if ratingCount > 0 {
		avg := round(float64(ratingSum)/float64(ratingCount), 1)
		stats.AverageRating = &avg
	}
	stats.SentimentTrend = sentimentTrend(mentions)
	stats.HotTopics = hotTopics(mentions)
	return stats
}

// sentimentTrend groups mentions by calendar day and averages the score per
// day, oldest day first.
func sentimentTrend(mentions []models.Mention) []TrendPoint {
	type bucket struct {
		sum   float64
		count int
	}
	byDay := map[string]*bucket{}
	for _, m := range mentions {
		day := m.Timestamp.UTC().Format("2006-01-02")
		b, ok := byDay[day]
		if !ok {
			b = &bucket{}
			byDay[day] = b
		}
		b.sum += m.SentimentScore
		b.count++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	trend := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		b := byDay[day]
		trend = append(trend, TrendPoint{
			Date:  day,
			Score: round(b.sum/float64(b.count), 2),
			Count: b.count,
		})
	}
	return trend
}

// hotTopics ranks topics by mention count, ties broken alphabetically.
// Each topic carries up to maxTopicQuotes example quotes, in input order.
func hotTopics(mentions []models.Mention) []TopicStat {
	type bucket struct {
		count  int
		sum    float64
		quotes []string
	}
	byTopic := map[string]*bucket{}
	for _, m := range mentions {
		for _, topic := range m.Topics {
			b, ok := byTopic[topic]
			if !ok {
				b = &bucket{quotes: []string{}}
				byTopic[topic] = b
			}
			b.count++
			b.sum += m.SentimentScore
			if len(b.quotes) < maxTopicQuotes {
				if quote := sampleQuote(m.Text); quote != "" {
					b.quotes = append(b.quotes, quote)
				}
			}
		}
	}

	topics := make([]TopicStat, 0, len(byTopic))
	for topic, b := range byTopic {
		topics = append(topics, TopicStat{
			Topic:        topic,
			Count:        b.count,
			AvgSentiment: round(b.sum/float64(b.count), 2),
			SampleQuotes: b.quotes,
		})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})

	if len(topics) > maxHotTopics {
		topics = topics[:maxHotTopics]
	}
	return topics
}

// sampleQuote condenses mention text into a single short line.
func sampleQuote(text string) string {
	quote := strings.Join(strings.Fields(text), " ")
	if len(quote) > quoteMaxLen {
		quote = quote[:quoteMaxLen] + "..."
	}
	return quote
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
