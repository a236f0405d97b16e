package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/models"
	"github.com/socialpulse/mentions-bot/internal/notifications"
)

// TestNotificationService renders reports to the terminal and saves them as
// JSON files instead of sending them anywhere.
type TestNotificationService struct{}

var _ notifications.NotificationInterface = (*TestNotificationService)(nil)

func (t *TestNotificationService) SendReport(report *models.Report) error {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Println("📊 MENTIONS REPORT")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("🏷  Entity: %s\n", report.Entity)
	fmt.Printf("📅 Period: %s\n", report.Period)
	fmt.Printf("🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("📈 Collected: %d | Analyzed: %d\n", report.TotalCollected, report.TotalAnalyzed)

	fmt.Println("\n💭 Sentiment Analysis:")
	for _, sentiment := range models.Sentiments {
		count := report.SentimentCounts[sentiment]
		if count == 0 {
			continue
		}
		emoji := "😐"
		switch sentiment {
		case models.SentimentPositive:
			emoji = "😊"
		case models.SentimentNegative:
			emoji = "😞"
		}
		fmt.Printf("   %s %-10s %d mentions\n", emoji, string(sentiment)+":", count)
	}

	fmt.Println("\n📝 Needs a response:")
	for i, mention := range report.Actionable {
		if i >= 5 { // Show first 5 mentions
			fmt.Printf("   ... and %d more mentions\n", len(report.Actionable)-5)
			break
		}
		fmt.Printf("\n   %d. [%s] %s\n", i+1, mention.Platform, mention.KeyInsight)
		if mention.Author != "" {
			fmt.Printf("      👤 Author: %s\n", mention.Author)
		}
		fmt.Printf("      🔗 URL: %s\n", mention.URL)
		fmt.Printf("      💭 Sentiment: %s | Category: %s\n", mention.Sentiment, mention.Category)
		fmt.Printf("      🕒 Posted: %s\n", mention.Timestamp.Format("2006-01-02 15:04"))
		if mention.ResponseDraft != nil {
			fmt.Printf("      ✏️  Draft: %s\n", *mention.ResponseDraft)
		}
	}

	// Save to JSON file
	if err := t.saveReportToFile(report); err != nil {
		fmt.Printf("\n⚠️  Warning: Could not save to file: %v\n", err)
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	return nil
}

func (t *TestNotificationService) saveReportToFile(report *models.Report) error {
	dir := "test_output"
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	timestamp := report.GeneratedAt.Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("mentions_report_%s.json", timestamp))

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}

	fmt.Printf("\n💾 Report saved to: %s\n", filename)
	return nil
}

func main() {
	fmt.Println("🤖 Mentions Bot - Test Report Generator")
	fmt.Println("=======================================")

	// Create test configuration
	cfg := &config.Config{
		ReportSchedule: "weekly",
		Entities:       []string{"Acme"},
	}

	billingDraft := "We're sorry about the billing trouble - our team has reached out directly to sort this out."
	exportDraft := "Thanks for flagging this! CSV export is on our roadmap; we'll follow up as soon as it ships."

	rating := 4
	sampleMentions := []models.Mention{
		{
			RawItem: models.RawItem{
				ID:        "test_google_1",
				Platform:  models.PlatformGoogleSearch,
				Entities:  []string{"Acme"},
				Text:      "Acme double-charged my card this month and support hasn't answered in three days.",
				Author:    "frustrated_customer",
				Timestamp: time.Now().UTC().Add(-3 * time.Hour),
				URL:       "https://reviews.example.com/acme/billing-issue",
			},
			Entity:         "Acme",
			Sentiment:      models.SentimentNegative,
			SentimentScore: -0.8,
			Topics:         []string{"billing", "support"},
			Category:       models.CategoryComplaint,
			KeyInsight:     "Double charges going unanswered by support",
			Summary:        "A customer reports a duplicate charge and a three-day support silence.",
			Confidence:     0.92,
			Actionable:     true,
			ResponseStatus: models.StatusPending,
			ResponseDraft:  &billingDraft,
		},
		{
			RawItem: models.RawItem{
				ID:        "test_hackernews_1",
				Platform:  models.PlatformHackerNews,
				Entities:  []string{"Acme"},
				Text:      "Does anyone know if Acme supports exporting dashboards to CSV? Couldn't find it in the docs.",
				Author:    "data_wrangler",
				Timestamp: time.Now().UTC().Add(-5 * time.Hour),
				URL:       "https://news.ycombinator.com/item?id=example1",
			},
			Entity:         "Acme",
			Sentiment:      models.SentimentNeutral,
			SentimentScore: 0.0,
			Topics:         []string{"export", "documentation"},
			Category:       models.CategoryFeatureRequest,
			KeyInsight:     "CSV export is requested and undocumented",
			Summary:        "A user asks whether dashboards can be exported to CSV.",
			Confidence:     0.84,
			Actionable:     true,
			ResponseStatus: models.StatusPending,
			ResponseDraft:  &exportDraft,
		},
		{
			RawItem: models.RawItem{
				ID:        "test_twitter_1",
				Platform:  models.PlatformTwitter,
				Entities:  []string{"Acme"},
				Text:      "Acme's new onboarding flow is fantastic - had our whole team up and running in an afternoon!",
				Author:    "happy_team_lead",
				Timestamp: time.Now().UTC().Add(-8 * time.Hour),
				URL:       "https://twitter.com/happy_team_lead/status/example1",
			},
			Entity:         "Acme",
			Sentiment:      models.SentimentPositive,
			SentimentScore: 0.9,
			Topics:         []string{"onboarding"},
			Category:       models.CategoryPraise,
			KeyInsight:     "New onboarding flow praised for speed",
			Summary:        "A team lead praises the onboarding experience.",
			Confidence:     0.95,
			ResponseStatus: models.StatusPending,
		},
		{
			RawItem: models.RawItem{
				ID:        "test_google_2",
				Platform:  models.PlatformGoogleSearch,
				Entities:  []string{"Acme"},
				Text:      "Solid product overall, 4 stars. Pricing could be clearer but the analytics are worth it.",
				Author:    "pragmatic_reviewer",
				Timestamp: time.Now().UTC().Add(-24 * time.Hour),
				URL:       "https://reviews.example.com/acme/four-stars",
			},
			Entity:         "Acme",
			Sentiment:      models.SentimentMixed,
			SentimentScore: 0.4,
			Rating:         &rating,
			Topics:         []string{"pricing", "analytics"},
			Category:       models.CategoryReview,
			KeyInsight:     "Analytics praised, pricing clarity criticized",
			Summary:        "A four-star review weighing analytics value against unclear pricing.",
			Confidence:     0.88,
			ResponseStatus: models.StatusPending,
		},
	}

	fmt.Printf("\n📊 Generating report with %d sample mentions...\n", len(sampleMentions))

	sentimentCounts := map[models.Sentiment]int{}
	actionable := []models.Mention{}
	for _, mention := range sampleMentions {
		sentimentCounts[mention.Sentiment]++
		if mention.Actionable {
			actionable = append(actionable, mention)
		}
	}

	report := &models.Report{
		Entity:          strings.Join(cfg.Entities, ", "),
		GeneratedAt:     time.Now().UTC(),
		Period:          cfg.ReportSchedule,
		TotalCollected:  len(sampleMentions),
		TotalAnalyzed:   len(sampleMentions),
		SentimentCounts: sentimentCounts,
		Actionable:      actionable,
	}

	// Send the report (outputs to terminal and saves to file)
	notifier := &TestNotificationService{}
	if err := notifier.SendReport(report); err != nil {
		fmt.Printf("❌ Error sending report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n✅ Test report generation completed!")
	fmt.Println("\n💡 Next steps:")
	fmt.Println("   • Check the 'test_output' directory for the saved JSON report")
	fmt.Println("   • Configure notification channels and run the full bot with 'go run ./cmd/bot'")
}
