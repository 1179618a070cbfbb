// Package retention prunes notification records older than the configured
// auto-delete horizon on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/runnerr0/notifylog/internal/prefs"
	"github.com/runnerr0/notifylog/internal/storage"
)

const millisPerDay = 24 * 60 * 60 * 1000

// PrefsSource supplies the current preferences. Read fresh on every sweep
// so a changed auto-delete horizon applies without restart.
type PrefsSource interface {
	Get() prefs.Prefs
}

// Sweeper runs the retention sweep on a schedule.
type Sweeper struct {
	store storage.Store
	prefs PrefsSource
	log   zerolog.Logger
	cron  *cron.Cron
	now   func() time.Time
}

// New creates a Sweeper for the given cron schedule spec, e.g. "@daily".
func New(store storage.Store, src PrefsSource, schedule string, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		store: store,
		prefs: src,
		log:   log,
		now:   time.Now,
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(&cronLogger{log: log})),
	))
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.RunNow(context.Background()); err != nil {
			log.Error().Err(err).Msg("retention sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	s.cron = c

	return s, nil
}

// Start begins scheduled sweeps. One sweep runs immediately so a long-
// stopped installation catches up without waiting for the next tick.
func (s *Sweeper) Start(ctx context.Context) {
	if n, err := s.RunNow(ctx); err != nil {
		s.log.Error().Err(err).Msg("startup retention sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("deleted", n).Msg("startup retention sweep")
	}
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow performs a single sweep and returns the number of deleted rows.
// A non-positive auto-delete horizon disables sweeping.
func (s *Sweeper) RunNow(ctx context.Context) (int64, error) {
	days := s.prefs.Get().AutoDeleteDays
	if days <= 0 {
		s.log.Debug().Msg("auto-delete disabled, skipping sweep")
		return 0, nil
	}

	cutoff := s.now().UnixMilli() - int64(days)*millisPerDay
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete older than %d: %w", cutoff, err)
	}
	if deleted > 0 {
		s.log.Info().
			Int64("deleted", deleted).
			Int("days", days).
			Msg("retention sweep complete")
	}
	return deleted, nil
}

// cronLogger adapts zerolog to the printf-style logger cron.Recover wants.
type cronLogger struct {
	log zerolog.Logger
}

func (l *cronLogger) Printf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}
