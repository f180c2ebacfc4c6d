package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

// FunnelEventRepository is the postgres driver of the analytics sink. It only inserts.
type FunnelEventRepository struct {
	DB *sql.DB
}

func NewFunnelEventRepository(db *sql.DB) *FunnelEventRepository {
	return &FunnelEventRepository{DB: db}
}

func (r *FunnelEventRepository) Append(ctx context.Context, e *entity.FunnelEvent) error {
	query := `
		INSERT INTO funnel_events (
			id, event_type, form_id, insurance_type, step, total_steps, time_spent_seconds,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.DB.ExecContext(ctx, query,
		e.ID,
		string(e.EventType),
		nullString(e.FormID),
		string(e.InsuranceType),
		e.Step,
		e.TotalSteps,
		e.TimeSpentSeconds,
		e.Attribution.Source,
		e.Attribution.Medium,
		e.Attribution.Campaign,
		e.Attribution.Term,
		e.Attribution.Content,
		e.RecordedAt,
	)
	if err != nil {
		return wrapPgError("insert funnel event", err)
	}
	return nil
}

// ListByFormID returns the raw events of one form session, oldest first.
func (r *FunnelEventRepository) ListByFormID(ctx context.Context, formID string) ([]*entity.FunnelEvent, error) {
	query := `
		SELECT id, event_type, COALESCE(form_id, ''), insurance_type, step, total_steps, time_spent_seconds,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content, recorded_at
		FROM funnel_events
		WHERE form_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := r.DB.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, wrapPgError("list funnel events", err)
	}
	defer rows.Close()

	var events []*entity.FunnelEvent
	for rows.Next() {
		var (
			e                                       entity.FunnelEvent
			eventType, insuranceType                string
			source, medium, campaign, term, content sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &eventType, &e.FormID, &insuranceType, &e.Step, &e.TotalSteps, &e.TimeSpentSeconds,
			&source, &medium, &campaign, &term, &content, &e.RecordedAt,
		); err != nil {
			return nil, wrapPgError("scan funnel event", err)
		}
		e.EventType = entity.EventType(eventType)
		e.InsuranceType = entity.InsuranceType(insuranceType)
		e.Attribution = entity.Attribution{
			Source:   fromNull(source),
			Medium:   fromNull(medium),
			Campaign: fromNull(campaign),
			Term:     fromNull(term),
			Content:  fromNull(content),
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError("list funnel events", err)
	}

	return events, nil
}
