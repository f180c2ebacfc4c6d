package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionExpirer is implemented by tracker.Registry.
type SessionExpirer interface {
	ExpireIdle(ctx context.Context, now time.Time) int
}

// IdleSessionWorker periodically abandons form sessions that went quiet.
type IdleSessionWorker struct {
	sessions     SessionExpirer
	tickInterval time.Duration
	now          func() time.Time
}

func NewIdleSessionWorker(sessions SessionExpirer, tickInterval time.Duration) *IdleSessionWorker {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	return &IdleSessionWorker{
		sessions:     sessions,
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Start blocks until ctx is done.
func (w *IdleSessionWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.tickInterval).Msg("idle session worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("idle session worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *IdleSessionWorker) sweep(ctx context.Context) int {
	n := w.sessions.ExpireIdle(ctx, w.now())
	if n > 0 {
		log.Info().Int("abandoned", n).Msg("idle form sessions abandoned")
	}
	return n
}
