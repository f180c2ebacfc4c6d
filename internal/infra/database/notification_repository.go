package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

// NotificationRepository keeps one row per channel attempt, for operators.
type NotificationRepository struct {
	DB *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) RecordAttempts(ctx context.Context, tasks []entity.NotificationTask) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrapPgError("begin notification attempts", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notification_attempts (
			lead_id, channel, status, error, external_id, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return wrapPgError("prepare notification attempt", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx,
			t.LeadID,
			string(t.Channel),
			string(t.Status),
			nullString(t.Error),
			nullString(t.ExternalID),
			t.StartedAt,
			t.FinishedAt,
		); err != nil {
			return wrapPgError(fmt.Sprintf("insert %s attempt", t.Channel), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapPgError("commit notification attempts", err)
	}
	return nil
}

func (r *NotificationRepository) ListByLeadID(ctx context.Context, leadID string) ([]entity.NotificationTask, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT lead_id, channel, status, COALESCE(error, ''), COALESCE(external_id, ''), started_at, finished_at
		FROM notification_attempts
		WHERE lead_id = $1
		ORDER BY started_at ASC
	`, leadID)
	if err != nil {
		return nil, wrapPgError("list notification attempts", err)
	}
	defer rows.Close()

	var tasks []entity.NotificationTask
	for rows.Next() {
		var (
			t               entity.NotificationTask
			channel, status string
		)
		if err := rows.Scan(&t.LeadID, &channel, &status, &t.Error, &t.ExternalID, &t.StartedAt, &t.FinishedAt); err != nil {
			return nil, wrapPgError("scan notification attempt", err)
		}
		t.Channel = entity.Channel(channel)
		t.Status = entity.NotificationStatus(status)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
