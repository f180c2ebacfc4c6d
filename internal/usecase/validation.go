package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

var (
	validate    = newValidator()
	nonDigits   = regexp.MustCompile(`\D`)
	maxTimeSpan = 24 * 60 * 60.0
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateLeadSubmission normalizes the quote payload and turns it into an unsaved lead.
// ID and CreatedAt are left for the lead store.
func ValidateLeadSubmission(input SubmitLeadInput) (*entity.Lead, error) {
	in := normalizeLeadInput(input)

	errs := structErrors(in)

	if in.Phone != "" && !isValidPhoneNumber(in.Phone) {
		errs = append(errs, ValidationError{"phone", "must be a valid phone number"})
	}
	if in.CoverageAmount != nil && !entity.IsAllowedCoverage(*in.CoverageAmount) {
		errs = append(errs, ValidationError{"coverageAmount", fmt.Sprintf("must be one of %v", entity.CoverageAmounts)})
	}
	if in.TermLength != nil && !entity.IsAllowedTerm(*in.TermLength) {
		errs = append(errs, ValidationError{"termLength", fmt.Sprintf("must be one of %v", entity.TermLengths)})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	lead := &entity.Lead{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Phone:         in.Phone,
		InsuranceType: entity.InsuranceType(in.InsuranceType),
		Details: entity.LeadDetails{
			Age:            in.Age,
			Gender:         in.Gender,
			CoverageAmount: in.CoverageAmount,
			TermLength:     in.TermLength,
			TobaccoUse:     in.TobaccoUse,
			ZipCode:        in.ZipCode,
			VehicleYear:    in.VehicleYear,
			VehicleMake:    in.VehicleMake,
			VehicleModel:   in.VehicleModel,
			HouseholdSize:  in.HouseholdSize,
		},
		Attribution: normalizeAttribution(in.AttributionInput),
	}
	lead.Tags = leadTags(lead)

	return lead, nil
}

// ValidateFunnelEvent checks a tracking payload for the given event kind. The
// returned event has no ID or RecordedAt yet; the sink stamps both.
func ValidateFunnelEvent(input TrackEventInput, kind entity.EventType) (*entity.FunnelEvent, error) {
	if !kind.Valid() {
		return nil, ValidationErrors{{"eventType", "must be submission, abandonment or completion"}}
	}

	in := input
	in.FormID = strings.TrimSpace(in.FormID)
	in.InsuranceType = strings.ToLower(strings.TrimSpace(in.InsuranceType))

	errs := structErrors(in)

	timeSpent := in.TimeSpent
	if kind == entity.EventCompletion && in.TotalTimeSpent != nil {
		timeSpent = in.TotalTimeSpent
	}

	switch kind {
	case entity.EventAbandonment:
		errs = requireField(errs, in.FormID != "", "formId")
		errs = requireField(errs, in.Step != nil, "step")
		errs = requireField(errs, in.TotalSteps != nil, "totalSteps")
		errs = requireField(errs, timeSpent != nil, "timeSpent")
	case entity.EventCompletion:
		errs = requireField(errs, in.FormID != "", "formId")
		errs = requireField(errs, timeSpent != nil, "totalTimeSpent")
	case entity.EventSubmission:
		errs = requireField(errs, in.Step != nil, "step")
		errs = requireField(errs, timeSpent != nil, "timeSpent")
	}

	step, total := derefInt(in.Step), derefInt(in.TotalSteps)
	if kind == entity.EventCompletion && in.Step == nil {
		step = total
	}
	if step < 0 {
		errs = append(errs, ValidationError{"step", "must not be negative"})
	}
	if total < 0 {
		errs = append(errs, ValidationError{"totalSteps", "must not be negative"})
	}
	if total > 0 && step > total {
		errs = append(errs, ValidationError{"step", "must not exceed totalSteps"})
	}
	if timeSpent != nil && (*timeSpent < 0 || *timeSpent > maxTimeSpan) {
		errs = append(errs, ValidationError{"timeSpent", "must be between 0 and 86400 seconds"})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &entity.FunnelEvent{
		EventType:        kind,
		FormID:           in.FormID,
		InsuranceType:    entity.InsuranceType(in.InsuranceType),
		Step:             step,
		TotalSteps:       total,
		TimeSpentSeconds: derefFloat(timeSpent),
		Attribution:      normalizeAttribution(in.AttributionInput),
	}, nil
}

func normalizeLeadInput(input SubmitLeadInput) SubmitLeadInput {
	in := input
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.InsuranceType = strings.ToLower(strings.TrimSpace(in.InsuranceType))
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	in.VehicleMake = strings.TrimSpace(in.VehicleMake)
	in.VehicleModel = strings.TrimSpace(in.VehicleModel)
	return in
}

func normalizeAttribution(in AttributionInput) entity.Attribution {
	return entity.Attribution{
		Source:   optional(in.UTMSource),
		Medium:   optional(in.UTMMedium),
		Campaign: optional(in.UTMCampaign),
		Term:     optional(in.UTMTerm),
		Content:  optional(in.UTMContent),
	}
}

func leadTags(lead *entity.Lead) []string {
	tags := []string{"insurance:" + string(lead.InsuranceType)}
	if lead.Attribution.Source != nil {
		tags = append(tags, "source:"+strings.ToLower(*lead.Attribution.Source))
	}
	return tags
}

func structErrors(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{"body", err.Error()}}
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is invalid"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}

func requireField(errs ValidationErrors, ok bool, field string) ValidationErrors {
	if ok {
		return errs
	}
	return append(errs, ValidationError{field, "is required"})
}

func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	return len(cleaned) >= 10 && len(cleaned) <= 15
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
