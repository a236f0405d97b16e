package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/models"
	"gopkg.in/gomail.v2"
)

// Service handles sending run digests via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendReport sends a report via every configured notification channel.
// Channels fail independently; the combined error lists each failure.
func (s *Service) SendReport(report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent report to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// subject builds the headline used for both email and Teams.
func subject(report *models.Report) string {
	if report.Urgent {
		return fmt.Sprintf("Mentions Alert - %s: %d mentions need attention", report.Entity, len(report.Actionable))
	}
	return fmt.Sprintf("Mentions Digest - %s - %s (%d analyzed)", report.Entity, titleCase(report.Period), report.TotalAnalyzed)
}

func (s *Service) sendToTeams(report *models.Report) error {
	message := s.buildTeamsMessage(report)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   subject(report),
		Text: fmt.Sprintf("Analyzed %d of %d collected mentions of %s",
			report.TotalAnalyzed, report.TotalCollected, report.Entity),
	}

	facts := []TeamsFact{
		{Name: "Collected", Value: fmt.Sprintf("%d", report.TotalCollected)},
		{Name: "Analyzed", Value: fmt.Sprintf("%d", report.TotalAnalyzed)},
		{Name: "Generated", Value: report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}

	// Ranging models.Sentiments keeps fact order stable across runs.
	for _, sentiment := range models.Sentiments {
		if count := report.SentimentCounts[sentiment]; count > 0 {
			facts = append(facts, TeamsFact{
				Name:  fmt.Sprintf("%s Mentions", titleCase(string(sentiment))),
				Value: fmt.Sprintf("%d", count),
			})
		}
	}

	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(report.Actionable) > 0 {
		var lines []string
		limit := 5
		if len(report.Actionable) < limit {
			limit = len(report.Actionable)
		}

		for i := 0; i < limit; i++ {
			mention := report.Actionable[i]
			lines = append(lines, fmt.Sprintf("**[%s](%s)** - %s/%s (%s)",
				mention.KeyInsight, mention.URL, mention.Platform, mention.Category,
				mention.Timestamp.Format("Jan 2")))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Needs a response",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendEmail(report *models.Report) error {
	htmlBody, err := s.buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	textBody := s.buildEmailText(report)

	// Create message
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject(report))
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	// Send email
	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailHTML(report *models.Report) (string, error) {
	tmpl := `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Mentions Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #2b5797; color: white; padding: 20px; border-radius: 5px; }
        .urgent { background-color: #d13438; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .mention { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .mention-title { font-weight: bold; margin-bottom: 5px; }
        .mention-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
        .mixed { border-left-color: #ca5010; }
    </style>
</head>
<body>
    <div class="header{{if .Urgent}} urgent{{end}}">
        <h1>{{if .Urgent}}Mentions Alert{{else}}Mentions Digest{{end}}</h1>
        <p>{{.Entity}} | {{.Period}} report generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Collected:</strong> {{.TotalCollected}}</p>
        <p><strong>Analyzed:</strong> {{.TotalAnalyzed}}</p>
        {{range $sentiment, $count := .SentimentCounts}}
            <p><strong>{{$sentiment | title}} Mentions:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .Actionable}}
    <h2>Needs a response</h2>
    {{range $index, $mention := .Actionable}}
        {{if lt $index 10}}
        <div class="mention {{$mention.Sentiment}}">
            <div class="mention-title">
                <a href="{{$mention.URL}}" target="_blank">{{$mention.KeyInsight}}</a>
            </div>
            <div class="mention-meta">
                By {{$mention.Author}} on {{$mention.Platform}} | {{$mention.Category}} | {{$mention.Timestamp.Format "Jan 2, 2006"}}
            </div>
            {{if $mention.Summary}}
            <p>{{$mention.Summary | truncate 200}}</p>
            {{end}}
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This report was generated automatically by the SocialPulse mentions bot.</small></p>
</body>
</html>
`

	// Create template with custom functions
	t := template.New("email").Funcs(template.FuncMap{
		// Accepts any value so named string types like models.Sentiment work.
		"title": func(v interface{}) string { return titleCase(fmt.Sprint(v)) },
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	})

	t, err := t.Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(report *models.Report) string {
	var text strings.Builder

	if report.Urgent {
		text.WriteString(fmt.Sprintf("Mentions Alert - %s\n", report.Entity))
	} else {
		text.WriteString(fmt.Sprintf("Mentions Digest - %s (%s)\n", report.Entity, titleCase(report.Period)))
	}
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Collected: %d\n", report.TotalCollected))
	text.WriteString(fmt.Sprintf("Analyzed: %d\n", report.TotalAnalyzed))

	for _, sentiment := range models.Sentiments {
		if count := report.SentimentCounts[sentiment]; count > 0 {
			text.WriteString(fmt.Sprintf("%s Mentions: %d\n", titleCase(string(sentiment)), count))
		}
	}

	if len(report.Actionable) > 0 {
		text.WriteString("\nNEEDS A RESPONSE\n")
		text.WriteString("================\n")

		limit := 10
		if len(report.Actionable) < limit {
			limit = len(report.Actionable)
		}

		for i := 0; i < limit; i++ {
			mention := report.Actionable[i]
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, mention.KeyInsight))
			text.WriteString(fmt.Sprintf("   Platform: %s | Author: %s | Category: %s | Date: %s\n",
				mention.Platform, mention.Author, mention.Category, mention.Timestamp.Format("Jan 2, 2006")))
			text.WriteString(fmt.Sprintf("   URL: %s\n", mention.URL))
			if mention.Summary != "" {
				summary := mention.Summary
				if len(summary) > 200 {
					summary = summary[:200] + "..."
				}
				text.WriteString(fmt.Sprintf("   Summary: %s\n", summary))
			}
		}
	}

	text.WriteString("\n---\nThis report was generated automatically by the SocialPulse mentions bot.\n")

	return text.String()
}

// titleCase uppercases the first byte; enum values are ASCII lowercase.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
