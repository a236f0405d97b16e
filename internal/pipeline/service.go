// Package pipeline orchestrates collection runs: fan out to the collectors,
// analyze every item, persist through the lifecycle manager, archive a
// snapshot of the run and send the digest.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/socialpulse/mentions-bot/internal/analysis"
	"github.com/socialpulse/mentions-bot/internal/archive"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/lifecycle"
	"github.com/socialpulse/mentions-bot/internal/models"
	"github.com/socialpulse/mentions-bot/internal/notifications"
	"github.com/socialpulse/mentions-bot/internal/sources"
)

const (
	// maxDigestMentions caps the actionable list carried in a digest.
	maxDigestMentions = 10

	// urgentWindow is how far back the urgent check looks.
	urgentWindow = 4 * time.Hour

	runTimeout    = 30 * time.Minute
	urgentTimeout = 10 * time.Minute
)

// Service drives collection runs across all configured sources
type Service struct {
	config   *config.Config
	analyzer *analysis.Analyzer
	manager  *lifecycle.Manager
	notifier notifications.NotificationInterface
	archive  archive.ArchiveInterface
	sources  []sources.Source
	metrics  *Metrics
	mu       sync.RWMutex
}

// Metrics holds collection run metrics
type Metrics struct {
	TotalCollected     int            `json:"total_collected"`
	TotalAnalyzed      int            `json:"total_analyzed"`
	TotalSaved         int            `json:"total_saved"`
	LastRun            time.Time      `json:"last_run"`
	LastRunDuration    string         `json:"last_run_duration"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	ErrorCount         int            `json:"error_count"`
}

// RunResult summarizes one completed collection run.
type RunResult struct {
	Collected int `json:"collected"`
	Analyzed  int `json:"analyzed"`
	Saved     int `json:"saved"`
}

// NewService creates a new pipeline service. archiveClient may be nil when
// snapshot archiving is not configured.
func NewService(cfg *config.Config, analyzer *analysis.Analyzer, manager *lifecycle.Manager, notifier notifications.NotificationInterface, archiveClient archive.ArchiveInterface) *Service {
	service := &Service{
		config:   cfg,
		analyzer: analyzer,
		manager:  manager,
		notifier: notifier,
		archive:  archiveClient,
		metrics: &Metrics{
			SourceMetrics:      make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}

	// Initialize data sources
	service.initializeSources()

	return service
}

func (s *Service) initializeSources() {
	s.sources = []sources.Source{
		sources.NewGoogleSearchSource(s.config.SerpAPIKey),
		sources.NewHackerNewsSource(),
		sources.NewTwitterSource(s.config.TwitterBearerToken),
	}
}

// Run performs a scheduled collection run over the configured entities.
func (s *Service) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	_, err := s.RunFor(ctx, s.config.Entities, s.searchWindow(), 0)
	return err
}

// RunFor collects, analyzes and persists mentions of the given entities
// found within the search window. A positive limit caps how many deduplicated
// items are analyzed, bounding model spend on manual runs. Used by the
// scheduler and the manual collect endpoint.
func (s *Service) RunFor(ctx context.Context, entities []string, window time.Duration, limit int) (RunResult, error) {
	start := time.Now()
	logrus.Infof("Starting collection run for %s (window: %v)", strings.Join(entities, ", "), window)

	items, errorCount := s.collect(ctx, entities, window)
	collected := len(items)
	logrus.Infof("Collected %d items from %d sources", collected, len(s.sources))

	items = dedupeByURL(items)
	if len(items) < collected {
		logrus.Infof("After URL deduplication: %d items", len(items))
	}
	if limit > 0 && len(items) > limit {
		logrus.Infof("Capping analysis at %d of %d items", limit, len(items))
		items = items[:limit]
	}

	mentions := make([]models.Mention, 0, len(items))
	for _, item := range items {
		mentions = append(mentions, s.analyzer.Analyze(ctx, item))
	}

	saved := s.manager.SaveMentions(ctx, mentions)
	result := RunResult{Collected: collected, Analyzed: len(mentions), Saved: saved}

	s.updateMetrics(result, mentions, time.Since(start), errorCount)

	if err := s.archiveRun(ctx, mentions); err != nil {
		logrus.Errorf("Failed to archive run snapshot: %v", err)
		return result, err
	}

	report := s.buildReport(entities, result, mentions)
	if err := s.notifier.SendReport(report); err != nil {
		logrus.Errorf("Failed to send digest: %v", err)
		return result, err
	}

	logrus.Infof("Collection run completed in %v (%d analyzed, %d saved)", time.Since(start), result.Analyzed, result.Saved)
	return result, nil
}

// RunUrgentCheck scans a short window for complaints that should not wait
// for the next scheduled digest and alerts immediately when any are found.
func (s *Service) RunUrgentCheck() error {
	start := time.Now()
	logrus.Info("Starting urgent mentions check")

	ctx, cancel := context.WithTimeout(context.Background(), urgentTimeout)
	defer cancel()

	items, _ := s.collect(ctx, s.config.Entities, urgentWindow)
	items = dedupeByURL(items)

	mentions := make([]models.Mention, 0, len(items))
	for _, item := range items {
		mentions = append(mentions, s.analyzer.Analyze(ctx, item))
	}

	saved := s.manager.SaveMentions(ctx, mentions)

	urgent := filterUrgent(mentions)
	if len(urgent) == 0 {
		logrus.Info("No urgent mentions found")
		return nil
	}

	logrus.Infof("Found %d urgent mentions requiring immediate notification", len(urgent))

	result := RunResult{Collected: len(items), Analyzed: len(mentions), Saved: saved}
	report := s.buildReport(s.config.Entities, result, urgent)
	report.Urgent = true
	report.Period = "4h"

	if err := s.notifier.SendReport(report); err != nil {
		return fmt.Errorf("failed to send urgent notification: %w", err)
	}

	logrus.Infof("Urgent check completed in %v, alerted on %d mentions", time.Since(start), len(urgent))
	return nil
}

// collect fans out to every source concurrently and gathers the results.
// Source failures are counted, not fatal: one broken API must not sink the
// whole run.
func (s *Service) collect(ctx context.Context, entities []string, window time.Duration) ([]models.RawItem, int) {
	var allItems []models.RawItem
	var wg sync.WaitGroup
	itemsChan := make(chan []models.RawItem, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	for _, source := range s.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			logrus.Infof("Fetching items from %s (window: %v)", src.GetName(), window)
			items, err := src.FetchItems(ctx, entities, window)

			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d items from %s", len(items), src.GetName())
			itemsChan <- items
		}(source)
	}

	// Close channels when all goroutines complete
	go func() {
		wg.Wait()
		close(itemsChan)
		close(errorsChan)
	}()

	for items := range itemsChan {
		allItems = append(allItems, items...)
	}

	errorCount := 0
	for range errorsChan {
		errorCount++
	}

	return allItems, errorCount
}

// searchWindow picks the collection window from the report schedule.
func (s *Service) searchWindow() time.Duration {
	switch s.config.ReportSchedule {
	case "daily":
		return 24 * time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	default:
		// Fallback: time since last run, but at least 24 hours.
		since := time.Since(s.getLastRunTime())
		if since < 24*time.Hour {
			return 24 * time.Hour
		}
		return since
	}
}

// dedupeByURL drops items whose URL was already seen, keeping the first
// occurrence. Items without a URL are never deduplicated.
func dedupeByURL(items []models.RawItem) []models.RawItem {
	seen := make(map[string]bool)
	deduped := make([]models.RawItem, 0, len(items))

	for _, item := range items {
		if item.URL != "" {
			if seen[item.URL] {
				continue
			}
			seen[item.URL] = true
		}
		deduped = append(deduped, item)
	}

	return deduped
}

// filterUrgent keeps mentions that warrant an immediate alert.
func filterUrgent(mentions []models.Mention) []models.Mention {
	var urgent []models.Mention
	for _, mention := range mentions {
		if isUrgentMention(mention) {
			urgent = append(urgent, mention)
		}
	}
	return urgent
}

// isUrgentMention flags actionable complaints with negative sentiment.
func isUrgentMention(m models.Mention) bool {
	return m.Actionable && m.Sentiment == models.SentimentNegative && m.Category == models.CategoryComplaint
}

// archiveRun uploads a JSON snapshot of the run's analyzed mentions.
func (s *Service) archiveRun(ctx context.Context, mentions []models.Mention) error {
	if s.archive == nil || len(mentions) == 0 {
		return nil
	}

	data, err := json.Marshal(mentions)
	if err != nil {
		return fmt.Errorf("failed to marshal mentions: %w", err)
	}

	filename := fmt.Sprintf("mentions-%s.json", time.Now().Format("2006-01-02-15-04-05"))
	return s.archive.Store(ctx, filename, data)
}

func (s *Service) buildReport(entities []string, result RunResult, mentions []models.Mention) *models.Report {
	report := &models.Report{
		Entity:          strings.Join(entities, ", "),
		GeneratedAt:     time.Now(),
		Period:          s.config.ReportSchedule,
		TotalCollected:  result.Collected,
		TotalAnalyzed:   result.Analyzed,
		SentimentCounts: make(map[models.Sentiment]int),
	}

	for _, mention := range mentions {
		report.SentimentCounts[mention.Sentiment]++
		if mention.Actionable {
			report.Actionable = append(report.Actionable, mention)
		}
	}

	sort.SliceStable(report.Actionable, func(i, j int) bool {
		return report.Actionable[i].Timestamp.After(report.Actionable[j].Timestamp)
	})
	if len(report.Actionable) > maxDigestMentions {
		report.Actionable = report.Actionable[:maxDigestMentions]
	}

	return report
}

func (s *Service) updateMetrics(result RunResult, mentions []models.Mention, duration time.Duration, errorCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalCollected = result.Collected
	s.metrics.TotalAnalyzed = result.Analyzed
	s.metrics.TotalSaved = result.Saved
	s.metrics.LastRun = time.Now()
	s.metrics.LastRunDuration = duration.String()
	s.metrics.ErrorCount = errorCount

	// Reset counters
	s.metrics.SourceMetrics = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)

	for _, mention := range mentions {
		s.metrics.SourceMetrics[string(mention.Platform)]++
		s.metrics.SentimentBreakdown[string(mention.Sentiment)]++
	}
}

func (s *Service) getLastRunTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.metrics.LastRun.IsZero() {
		// Default to 24 hours ago for first run
		return time.Now().Add(-24 * time.Hour)
	}

	return s.metrics.LastRun
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
