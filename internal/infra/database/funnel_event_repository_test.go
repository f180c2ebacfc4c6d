package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

func TestFunnelEventRepositoryAppend(t *testing.T) {
	db, mock := newMockDB(t)
	recorded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO funnel_events").
		WithArgs("evt-1", "abandonment", "f1", "life", 2, 5, 40.0, "google", nil, nil, nil, nil, recorded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewFunnelEventRepository(db).Append(context.Background(), &entity.FunnelEvent{
		ID:               "evt-1",
		EventType:        entity.EventAbandonment,
		FormID:           "f1",
		InsuranceType:    entity.InsuranceLife,
		Step:             2,
		TotalSteps:       5,
		TimeSpentSeconds: 40,
		Attribution:      entity.Attribution{Source: strPtr("google")},
		RecordedAt:       recorded,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFunnelEventRepositoryAppendWithoutFormID(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO funnel_events").
		WithArgs(sqlmock.AnyArg(), "submission", nil, "auto", 3, 0, 12.5, nil, nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewFunnelEventRepository(db).Append(context.Background(), &entity.FunnelEvent{
		ID:               "evt-2",
		EventType:        entity.EventSubmission,
		InsuranceType:    entity.InsuranceAuto,
		Step:             3,
		TimeSpentSeconds: 12.5,
		RecordedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFunnelEventRepositoryAppendError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO funnel_events").WillReturnError(errors.New("connection reset"))

	err := NewFunnelEventRepository(db).Append(context.Background(), &entity.FunnelEvent{ID: "evt-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert funnel event")
}

func TestFunnelEventRepositoryListByFormID(t *testing.T) {
	db, mock := newMockDB(t)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "event_type", "form_id", "insurance_type", "step", "total_steps", "time_spent_seconds",
		"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "recorded_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM funnel_events").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("e1", "abandonment", "f1", "life", 2, 5, 40.0, nil, nil, nil, nil, nil, t0).
			AddRow("e2", "abandonment", "f1", "life", 2, 5, 41.0, "google", nil, nil, nil, nil, t0.Add(time.Second)))

	events, err := NewFunnelEventRepository(db).ListByFormID(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, entity.EventAbandonment, events[0].EventType)
	assert.Nil(t, events[0].Attribution.Source)
	require.NotNil(t, events[1].Attribution.Source)
	assert.Equal(t, "google", *events[1].Attribution.Source)
}
