package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

// AnalyticsSink stamps funnel events and appends them to the configured store.
// It never retries or deduplicates: a client retry of the same event is stored twice.
type AnalyticsSink struct {
	Store      EventStore
	OnRecorded func(event *entity.FunnelEvent)
	now        func() time.Time
}

func NewAnalyticsSink(store EventStore) *AnalyticsSink {
	return &AnalyticsSink{Store: store, now: time.Now}
}

func (s *AnalyticsSink) Record(ctx context.Context, event *entity.FunnelEvent) (*RecordResult, error) {
	event.ID = uuid.New().String()
	event.RecordedAt = s.now().UTC()

	if err := s.Store.Append(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", string(event.EventType)).
			Str("form_id", event.FormID).
			Msg("failed to record funnel event")
		return nil, &PersistenceError{Op: "record funnel event", Err: err}
	}

	if s.OnRecorded != nil {
		s.OnRecorded(event)
	}

	return &RecordResult{
		EventID:    event.ID,
		EventType:  event.EventType,
		RecordedAt: event.RecordedAt.Format(time.RFC3339Nano),
	}, nil
}
