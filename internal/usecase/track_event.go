package usecase

import (
	"context"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type TrackEventUseCase struct {
	Sink *AnalyticsSink
}

func NewTrackEventUseCase(sink *AnalyticsSink) *TrackEventUseCase {
	return &TrackEventUseCase{Sink: sink}
}

func (uc *TrackEventUseCase) Execute(ctx context.Context, input TrackEventInput, kind entity.EventType) (*entity.FunnelEvent, error) {
	event, err := ValidateFunnelEvent(input, kind)
	if err != nil {
		return nil, err
	}

	if _, err := uc.Sink.Record(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}
