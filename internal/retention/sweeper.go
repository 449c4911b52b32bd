package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/store"
)

// Sweeper periodically deletes memory rows older than the retention window.
type Sweeper struct {
	store    store.MemoryStore
	maxAge   time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper constructs a sweeper. maxAge is how long memories are kept;
// interval is the sweep cadence.
func NewSweeper(st store.MemoryStore, maxAge, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		store:    st,
		maxAge:   maxAge,
		interval: interval,
		log:      log.With().Str("component", "retention").Logger(),
	}
}

// RunOnce deletes expired rows and returns how many were removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	purged, err := s.store.PurgeOlderThan(ctx, s.maxAge)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Dur("max_age", s.maxAge).Msg("expired memories purged")
	} else {
		s.log.Debug().Msg("nothing to purge")
	}
	return purged, nil
}

// Run sweeps immediately, then on a fixed cadence until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Dur("max_age", s.maxAge).Msg("retention sweeper starting")
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error().Err(err).Msg("retention sweep")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retention sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				// Log and continue; a transient store error should not kill the loop.
				s.log.Error().Err(err).Msg("retention sweep")
			}
		}
	}
}
