package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/config"
	"github.com/hmiyata/battrack/internal/domain/models"
	"github.com/hmiyata/battrack/internal/service/lifecycle"
	"github.com/hmiyata/battrack/internal/service/reporting"
	"github.com/hmiyata/battrack/pkg/clients/notify"
)

// Scheduler manages the recurring ledger jobs: the weekly KPI snapshot and
// the daily reprice safety run.
type Scheduler struct {
	cron         *cron.Cron
	engine       *lifecycle.Engine
	reportingSvc *reporting.Service
	notifier     notify.Notifier
	cfg          config.JobsConfig
	now          func() time.Time
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance. Cron expressions are
// evaluated in the given location so schedules follow local business time.
func NewScheduler(cfg config.JobsConfig, loc *time.Location, engine *lifecycle.Engine, reportingSvc *reporting.Service, notifier notify.Notifier, clock func() time.Time, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour,
	// dom, month, dow).
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:         c,
		engine:       engine,
		reportingSvc: reportingSvc,
		notifier:     notifier,
		cfg:          cfg,
		now:          clock,
		logger:       logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.SnapshotSchedule, s.archiveWeeklySnapshot); err != nil {
		s.logger.Error("failed to schedule weekly snapshot", zap.Error(err))
	}
	if _, err := s.cron.AddFunc(s.cfg.RecomputeSchedule, s.repriceCurrentWeek); err != nil {
		s.logger.Error("failed to schedule weekly reprice", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

// archiveWeeklySnapshot freezes the closing week's KPI block and pushes a
// short summary to the webhook.
func (s *Scheduler) archiveWeeklySnapshot() {
	s.logger.Info("archiving weekly snapshot")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot, err := s.reportingSvc.ArchiveWeeklySnapshot(ctx)
	if err != nil {
		s.logger.Error("failed to archive weekly snapshot", zap.Error(err))
		return
	}

	text := fmt.Sprintf("Week of %s: %d returned, bonus +%d/unit, earned %d, %d still in hand.",
		snapshot.WeekStart.Format(models.DateLayout),
		snapshot.ReturnedCount,
		snapshot.VolumeBonus,
		snapshot.WeeklyEarnings,
		snapshot.ActiveCount)
	if err := s.notifier.Send(ctx, text); err != nil {
		s.logger.Error("failed to send weekly summary", zap.Error(err))
	} else {
		s.logger.Info("weekly summary sent successfully")
	}
}

// repriceCurrentWeek is the safety net for amounts written before the week
// crossed a volume tier. The synchronous reprice on each return batch
// usually leaves it nothing to do.
func (s *Scheduler) repriceCurrentWeek() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	updated, err := s.engine.RecomputeWeek(ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled weekly reprice failed", zap.Error(err))
		return
	}
	if updated > 0 {
		s.logger.Info("scheduled reprice corrected amounts", zap.Int("updated", updated))
	}
}
