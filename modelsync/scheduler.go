package modelsync

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs a Syncer on a cron schedule. A run still in progress when
// the next one is due causes that next run to be skipped.
type Scheduler struct {
	syncer   *Syncer
	logger   *zap.Logger
	cron     *cron.Cron
	schedule string
	onUpdate func()
}

func NewScheduler(syncer *Syncer, schedule string, logger *zap.Logger, onUpdate func()) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		syncer:   syncer,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		schedule: schedule,
		onUpdate: onUpdate,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("model sync cron job started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts scheduling and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("model sync cron job stopped")
	}
}

func (s *Scheduler) run() {
	updated, err := s.syncer.Sync(context.Background())
	if err != nil {
		s.logger.Error("failed to sync model", zap.Error(err))
		return
	}
	if updated && s.onUpdate != nil {
		s.onUpdate()
	}
}
