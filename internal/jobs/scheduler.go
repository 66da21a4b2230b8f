// Package jobs runs periodic maintenance.
package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/erazemk/lostfound/internal/store"
)

// DefaultPurgeSchedule runs the session purge every 15 minutes (with seconds field).
const DefaultPurgeSchedule = "0 */15 * * * *"

// Scheduler purges expired session tokens from SQLite. Redis expires its
// keys on its own, so a scheduler without a database does nothing.
type Scheduler struct {
	cron *cron.Cron
	db   *sql.DB
	log  zerolog.Logger
	now  func() time.Time
}

func NewScheduler(db *sql.DB, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		db:   db,
		log:  log,
		now:  time.Now,
	}
}

// Start registers the purge job on schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if s.db == nil {
		return nil
	}
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.purgeSessions); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", schedule).Msg("session purge scheduled")
	return nil
}

// Stop halts the scheduler and waits up to 5 seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) purgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := store.PurgeExpiredSessions(ctx, s.db, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired sessions failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired sessions purged")
	}
}
