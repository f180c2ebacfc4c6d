package entity

import (
	"context"
	"time"
)

type EventType string

const (
	EventSubmission  EventType = "submission"
	EventAbandonment EventType = "abandonment"
	EventCompletion  EventType = "completion"
)

func (t EventType) Valid() bool {
	switch t {
	case EventSubmission, EventAbandonment, EventCompletion:
		return true
	}
	return false
}

// FunnelEvent is one observation of a quote form's progress. Rows are append-only;
// the same client event may be stored more than once.
type FunnelEvent struct {
	ID               string        `json:"id"`
	EventType        EventType     `json:"eventType"`
	FormID           string        `json:"formId"`
	InsuranceType    InsuranceType `json:"insuranceType"`
	Step             int           `json:"step"`
	TotalSteps       int           `json:"totalSteps"`
	TimeSpentSeconds float64       `json:"timeSpent"`
	Attribution      Attribution   `json:"attribution"`
	RecordedAt       time.Time     `json:"recordedAt"`
}

type FunnelEventReader interface {
	ListByFormID(ctx context.Context, formID string) ([]*FunnelEvent, error)
}
