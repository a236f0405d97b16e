package aggregator

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialpulse/mentions-bot/internal/models"
)

func mention(id string, sentiment models.Sentiment, score float64, day time.Time) models.Mention {
	return models.Mention{
		RawItem: models.RawItem{
			ID:        id,
			Platform:  models.PlatformHackerNews,
			Entities:  []string{"Acme"},
			Text:      "some text",
			Timestamp: day,
			URL:       "https://example.com/" + id,
		},
		Entity:         "Acme",
		Sentiment:      sentiment,
		SentimentScore: score,
		Topics:         []string{},
		Category:       models.CategoryReview,
		Confidence:     0.9,
		ResponseStatus: models.StatusPending,
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	stats := Aggregate(nil, 30)

	assert.Equal(t, 0, stats.TotalMentions)
	assert.Equal(t, 0.0, stats.AverageSentimentScore)
	assert.Nil(t, stats.AverageRating)
	assert.Empty(t, stats.SentimentTrend)
	assert.Empty(t, stats.HotTopics)
	assert.Equal(t, 0, stats.ActionRequiredCount)
	assert.Empty(t, stats.ActionRequiredItems)
	assert.NotNil(t, stats.CategoryBreakdown)
	assert.NotNil(t, stats.PlatformBreakdown)

	for _, s := range models.Sentiments {
		assert.Equal(t, 0, stats.SentimentBreakdown[s])
		assert.Equal(t, 0.0, stats.SentimentPercentages[s])
	}
	for _, s := range models.ResponseStatuses {
		assert.Equal(t, 0, stats.ResponseStats[s])
	}

	window := stats.DateRange.EndDate.Sub(stats.DateRange.StartDate)
	assert.Equal(t, 30*24*time.Hour, window)
}

func TestAggregateBreakdownsAndAverages(t *testing.T) {
	day := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	positive := mention("m1", models.SentimentPositive, 0.8, day)
	rating := 5
	positive.Rating = &rating
	positive.Category = models.CategoryPraise

	negative := mention("m2", models.SentimentNegative, -0.6, day)
	rating2 := 2
	negative.Rating = &rating2
	negative.Category = models.CategoryComplaint
	negative.Platform = models.PlatformTwitter
	negative.ResponseStatus = models.StatusSent

	neutral := mention("m3", models.SentimentNeutral, 0.1, day.Add(24*time.Hour))

	stats := Aggregate([]models.Mention{positive, negative, neutral}, 30)

	assert.Equal(t, 3, stats.TotalMentions)
	assert.Equal(t, 1, stats.SentimentBreakdown[models.SentimentPositive])
	assert.Equal(t, 1, stats.SentimentBreakdown[models.SentimentNegative])
	assert.Equal(t, 1, stats.SentimentBreakdown[models.SentimentNeutral])
	assert.Equal(t, 0, stats.SentimentBreakdown[models.SentimentMixed])

	assert.Equal(t, 33.3, stats.SentimentPercentages[models.SentimentPositive])
	assert.Equal(t, 0.0, stats.SentimentPercentages[models.SentimentMixed])

	assert.Equal(t, 0.1, stats.AverageSentimentScore) // (0.8 - 0.6 + 0.1) / 3
	require.NotNil(t, stats.AverageRating)
	assert.Equal(t, 3.5, *stats.AverageRating) // only rated mentions count

	assert.Equal(t, 2, stats.ResponseStats[models.StatusPending])
	assert.Equal(t, 1, stats.ResponseStats[models.StatusSent])

	assert.Equal(t, map[models.Category]int{
		models.CategoryPraise:    1,
		models.CategoryComplaint: 1,
		models.CategoryReview:    1,
	}, stats.CategoryBreakdown)
	assert.Equal(t, map[models.Platform]int{
		models.PlatformHackerNews: 2,
		models.PlatformTwitter:    1,
	}, stats.PlatformBreakdown)
}

func TestAggregateSentimentTrend(t *testing.T) {
	day1 := time.Date(2025, 5, 19, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	stats := Aggregate([]models.Mention{
		mention("m1", models.SentimentPositive, 1.0, day2),
		mention("m2", models.SentimentPositive, 0.5, day1),
		mention("m3", models.SentimentNegative, -0.5, day1.Add(6*time.Hour)),
	}, 30)

	require.Len(t, stats.SentimentTrend, 2)
	assert.Equal(t, "2025-05-19", stats.SentimentTrend[0].Date, "trend runs oldest day first")
	assert.Equal(t, 0.0, stats.SentimentTrend[0].Score)
	assert.Equal(t, 2, stats.SentimentTrend[0].Count)
	assert.Equal(t, "2025-05-20", stats.SentimentTrend[1].Date)
	assert.Equal(t, 1.0, stats.SentimentTrend[1].Score)
	assert.Equal(t, 1, stats.SentimentTrend[1].Count)
}

func TestAggregateHotTopics(t *testing.T) {
	day := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	m1 := mention("m1", models.SentimentPositive, 0.8, day)
	m1.Topics = []string{"pricing", "support"}
	m1.Text = "Fair pricing and\nhelpful support"
	m2 := mention("m2", models.SentimentNegative, -0.4, day)
	m2.Topics = []string{"pricing"}
	m2.Text = "Pricing went up again"
	m3 := mention("m3", models.SentimentNeutral, 0.0, day)
	m3.Topics = []string{"support"}
	m3.Text = "Support was okay"

	stats := Aggregate([]models.Mention{m1, m2, m3}, 30)

	require.Len(t, stats.HotTopics, 2)
	// Both topics appear twice; alphabetical order breaks the tie.
	assert.Equal(t, "pricing", stats.HotTopics[0].Topic)
	assert.Equal(t, 2, stats.HotTopics[0].Count)
	assert.Equal(t, 0.2, stats.HotTopics[0].AvgSentiment)
	assert.Equal(t, "support", stats.HotTopics[1].Topic)
	assert.Equal(t, 0.4, stats.HotTopics[1].AvgSentiment)

	// Quotes collapse whitespace and follow input order.
	assert.Equal(t, []string{"Fair pricing and helpful support", "Pricing went up again"},
		stats.HotTopics[0].SampleQuotes)
	assert.Equal(t, []string{"Fair pricing and helpful support", "Support was okay"},
		stats.HotTopics[1].SampleQuotes)
}

func TestAggregateTopicQuotesCappedAndTruncated(t *testing.T) {
	day := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	long := mention("m0", models.SentimentNeutral, 0, day)
	long.Topics = []string{"onboarding"}
	long.Text = strings.Repeat("setup ", 40)

	mentions := []models.Mention{long}
	for i := 1; i < 4; i++ {
		m := mention(fmt.Sprintf("m%d", i), models.SentimentNeutral, 0, day)
		m.Topics = []string{"onboarding"}
		m.Text = fmt.Sprintf("quote %d", i)
		mentions = append(mentions, m)
	}

	stats := Aggregate(mentions, 30)

	require.Len(t, stats.HotTopics, 1)
	topic := stats.HotTopics[0]
	assert.Equal(t, 4, topic.Count)
	require.Len(t, topic.SampleQuotes, maxTopicQuotes)
	assert.True(t, strings.HasSuffix(topic.SampleQuotes[0], "..."), "long quotes are truncated")
	assert.LessOrEqual(t, len(topic.SampleQuotes[0]), quoteMaxLen+3)
	assert.Equal(t, "quote 1", topic.SampleQuotes[1])
}

func TestAggregateHotTopicsCapped(t *testing.T) {
	day := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	mentions := []models.Mention{}
	for i := 0; i < 12; i++ {
		m := mention(fmt.Sprintf("m%d", i), models.SentimentNeutral, 0, day)
		m.Topics = []string{fmt.Sprintf("topic_%02d", i)}
		mentions = append(mentions, m)
	}

	stats := Aggregate(mentions, 30)
	assert.Len(t, stats.HotTopics, maxHotTopics)
}

func TestAggregateActionItems(t *testing.T) {
	day := time.Date(2025, 5, 20, 8, 0, 0, 0, time.UTC)

	mentions := []models.Mention{}
	for i := 0; i < 12; i++ {
		m := mention(fmt.Sprintf("m%d", i), models.SentimentNegative, -0.5, day)
		m.Actionable = true
		m.KeyInsight = "needs a reply"
		mentions = append(mentions, m)
	}
	calm := mention("calm", models.SentimentPositive, 0.5, day)
	mentions = append(mentions, calm)

	stats := Aggregate(mentions, 30)

	assert.Equal(t, 12, stats.ActionRequiredCount)
	require.Len(t, stats.ActionRequiredItems, maxActionItems, "detail list is capped")
	assert.Equal(t, "m0", stats.ActionRequiredItems[0].ID, "input order is preserved")
	assert.Equal(t, "needs a reply", stats.ActionRequiredItems[0].KeyInsight)
	assert.Equal(t, "https://example.com/m0", stats.ActionRequiredItems[0].URL)
}
