package usecase

import (
	"context"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *entity.Lead) error
	AttachCRMID(ctx context.Context, leadID, crmID string) error
}

type NotificationRepositoryInterface interface {
	RecordAttempts(ctx context.Context, tasks []entity.NotificationTask) error
}

// EventStore is the storage driver behind the analytics sink (postgres, clickhouse or kafka).
type EventStore interface {
	Append(ctx context.Context, event *entity.FunnelEvent) error
}

// The service handles below are constructed once at startup and injected.
// IsConfigured reports whether the credentials needed to reach the service exist.

type CRMService interface {
	IsConfigured() bool
	CreateLead(ctx context.Context, lead *entity.Lead) (string, error)
	LeadURL(crmID string) string
}

type EmailService interface {
	IsConfigured() bool
	SendAgentNotification(ctx context.Context, lead *entity.Lead, crmURL string) error
	SendConsumerConfirmation(ctx context.Context, lead *entity.Lead) error
}

type CallRouter interface {
	IsConfigured() bool
	Route(ctx context.Context, lead *entity.Lead) error
}
