package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/socialpulse/mentions-bot/internal/config"
	"github.com/socialpulse/mentions-bot/internal/pipeline"
)

// Service handles scheduling of collection runs
type Service struct {
	config   *config.Config
	pipeline *pipeline.Service
	cron     *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, p *pipeline.Service) *Service {
	return &Service{
		config:   cfg,
		pipeline: p,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled collection runs
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.ReportSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		// Default to weekly
		cronExpression = "0 0 9 * * MON"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled collection run")
		if err := s.pipeline.Run(); err != nil {
			logrus.Errorf("Scheduled collection run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	// Also add a more frequent check for urgent mentions (every 4 hours)
	_, err = s.cron.AddFunc("0 0 */4 * * *", func() {
		logrus.Info("Starting urgent mentions check (4-hour frequency)")
		if err := s.pipeline.RunUrgentCheck(); err != nil {
			logrus.Errorf("Urgent mentions check failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s schedule (plus urgent checks every 4 hours)", s.config.ReportSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
