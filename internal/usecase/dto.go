package usecase

import "github.com/xavierca1/ligue-quotes/internal/entity"

// AttributionInput mirrors the utm_* keys posted by the form.
type AttributionInput struct {
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

type SubmitLeadInput struct {
	FirstName     string `json:"firstName" validate:"required,max=100"`
	LastName      string `json:"lastName" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	InsuranceType string `json:"insuranceType" validate:"required,oneof=auto life health disability home"`

	Age            *int   `json:"age" validate:"omitempty,min=0,max=120"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	CoverageAmount *int   `json:"coverageAmount"`
	TermLength     *int   `json:"termLength"`
	TobaccoUse     *bool  `json:"tobaccoUse"`
	ZipCode        string `json:"zipCode" validate:"omitempty,max=10"`
	VehicleYear    *int   `json:"vehicleYear" validate:"omitempty,min=1900,max=2100"`
	VehicleMake    string `json:"vehicleMake" validate:"omitempty,max=60"`
	VehicleModel   string `json:"vehicleModel" validate:"omitempty,max=60"`
	HouseholdSize  *int   `json:"householdSize" validate:"omitempty,min=1,max=20"`

	AttributionInput
}

type SubmitLeadOutput struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// TrackEventInput is the union of the three tracking payloads. TimeSpent and
// TotalTimeSpent are both accepted so completion events can use either key.
type TrackEventInput struct {
	FormID         string   `json:"formId" validate:"omitempty,max=128"`
	InsuranceType  string   `json:"insuranceType" validate:"required,oneof=auto life health disability home"`
	Step           *int     `json:"step"`
	TotalSteps     *int     `json:"totalSteps"`
	TimeSpent      *float64 `json:"timeSpent"`
	TotalTimeSpent *float64 `json:"totalTimeSpent"`

	AttributionInput
}

// RecordResult is what the analytics sink reports back for a stored event.
type RecordResult struct {
	EventID    string           `json:"id"`
	EventType  entity.EventType `json:"eventType"`
	RecordedAt string           `json:"recordedAt"`
}

// SubmitLeadInputFromLead rebuilds the form payload that produced a lead.
func SubmitLeadInputFromLead(l *entity.Lead) SubmitLeadInput {
	return SubmitLeadInput{
		FirstName:      l.FirstName,
		LastName:       l.LastName,
		Email:          l.Email,
		Phone:          l.Phone,
		InsuranceType:  string(l.InsuranceType),
		Age:            l.Details.Age,
		Gender:         l.Details.Gender,
		CoverageAmount: l.Details.CoverageAmount,
		TermLength:     l.Details.TermLength,
		TobaccoUse:     l.Details.TobaccoUse,
		ZipCode:        l.Details.ZipCode,
		VehicleYear:    l.Details.VehicleYear,
		VehicleMake:    l.Details.VehicleMake,
		VehicleModel:   l.Details.VehicleModel,
		HouseholdSize:  l.Details.HouseholdSize,
		AttributionInput: AttributionInput{
			UTMSource:   deref(l.Attribution.Source),
			UTMMedium:   deref(l.Attribution.Medium),
			UTMCampaign: deref(l.Attribution.Campaign),
			UTMTerm:     deref(l.Attribution.Term),
			UTMContent:  deref(l.Attribution.Content),
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
