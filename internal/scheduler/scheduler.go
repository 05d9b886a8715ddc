// Package scheduler pulls new snapshot bundles into the store on a cron
// schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Updater applies a remote manifest when it is newer than the local data
type Updater interface {
	CheckForUpdates(ctx context.Context, manifestURL string) (bool, error)
}

// SyncRecorder counts sync outcomes
type SyncRecorder interface {
	RecordSync(updated bool, err error)
}

// Scheduler manages the sync job
type Scheduler struct {
	Cron        *cron.Cron
	Updater     Updater
	ManifestURL string
	Recorder    SyncRecorder
	Ctx         context.Context
	log         zerolog.Logger
}

// New creates a scheduler; overlapping runs are skipped
func New(ctx context.Context, updater Updater, manifestURL string, log zerolog.Logger) *Scheduler {
	cl := cronLogger{log}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Updater:     updater,
		ManifestURL: manifestURL,
		Ctx:         ctx,
		log:         log,
	}
}

// Register schedules the sync job
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.syncTask); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow syncs immediately
func (s *Scheduler) RunNow() (bool, error) {
	updated, err := s.Updater.CheckForUpdates(s.Ctx, s.ManifestURL)
	if s.Recorder != nil {
		s.Recorder.RecordSync(updated, err)
	}
	return updated, err
}

func (s *Scheduler) syncTask() {
	s.log.Debug().Str("manifest", s.ManifestURL).Msg("running sync")
	updated, err := s.RunNow()
	if err != nil {
		s.log.Error().Err(err).Msg("sync failed")
		return
	}
	if updated {
		s.log.Info().Msg("snapshot data updated")
	}
}

// cronLogger routes cron's own messages to zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
