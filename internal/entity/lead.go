package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrLeadNotFound       = errors.New("lead not found")
	ErrCRMIDAlreadyLinked = errors.New("lead already linked to a crm record")
)

// Attribution carries the utm_* values of the originating link. A nil field means
// the value was absent; it is still serialized (as null) so consumers see every key.
type Attribution struct {
	Source   *string `json:"utm_source"`
	Medium   *string `json:"utm_medium"`
	Campaign *string `json:"utm_campaign"`
	Term     *string `json:"utm_term"`
	Content  *string `json:"utm_content"`
}

// LeadDetails holds the product specific answers of the quote form.
type LeadDetails struct {
	Age            *int   `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	CoverageAmount *int   `json:"coverageAmount,omitempty"`
	TermLength     *int   `json:"termLength,omitempty"`
	TobaccoUse     *bool  `json:"tobaccoUse,omitempty"`
	ZipCode        string `json:"zipCode,omitempty"`
	VehicleYear    *int   `json:"vehicleYear,omitempty"`
	VehicleMake    string `json:"vehicleMake,omitempty"`
	VehicleModel   string `json:"vehicleModel,omitempty"`
	HouseholdSize  *int   `json:"householdSize,omitempty"`
}

type Lead struct {
	ID            string        `json:"id"`
	FirstName     string        `json:"firstName"`
	LastName      string        `json:"lastName"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	InsuranceType InsuranceType `json:"insuranceType"`
	Details       LeadDetails   `json:"details"`
	Attribution   Attribution   `json:"attribution"`
	Tags          []string      `json:"tags"`
	CRMLeadID     string        `json:"crmLeadId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

func (l *Lead) Validate() error {
	if l.Email == "" {
		return errors.New("email is required")
	}
	if l.InsuranceType == "" {
		return errors.New("insurance type is required")
	}
	return nil
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	AttachCRMID(ctx context.Context, leadID, crmID string) error
	FindByID(ctx context.Context, id string) (*Lead, error)
}
