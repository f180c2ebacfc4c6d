package entity

import (
	"context"
	"time"
)

type Channel string

const (
	ChannelAgentEmail    Channel = "agent-email"
	ChannelConsumerEmail Channel = "consumer-email"
	ChannelCRMLead       Channel = "crm-lead"
	ChannelCallRouting   Channel = "call-routing"
)

var Channels = []Channel{ChannelCRMLead, ChannelAgentEmail, ChannelConsumerEmail, ChannelCallRouting}

type NotificationStatus string

const (
	StatusPending       NotificationStatus = "pending"
	StatusSent          NotificationStatus = "sent"
	StatusFailed        NotificationStatus = "failed"
	StatusNotConfigured NotificationStatus = "not_configured"
)

// NotificationTask is the outcome of one channel for one lead submission.
type NotificationTask struct {
	Channel    Channel            `json:"channel"`
	LeadID     string             `json:"leadId"`
	Status     NotificationStatus `json:"status"`
	Error      string             `json:"error,omitempty"`
	ExternalID string             `json:"externalId,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

type NotificationRepositoryInterface interface {
	RecordAttempts(ctx context.Context, tasks []NotificationTask) error
	ListByLeadID(ctx context.Context, leadID string) ([]NotificationTask, error)
}
