package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from string, agents []string) *EmailSender {
	return &EmailSender{
		Host:            host,
		Port:            port,
		User:            user,
		Password:        password,
		From:            from,
		AgentRecipients: agents,
	}
}

func (s *EmailSender) IsConfigured() bool {
	return s != nil && s.Host != "" && s.From != ""
}

// SendAgentNotification tells the sales team about a new lead. crmURL is optional.
func (s *EmailSender) SendAgentNotification(ctx context.Context, lead *entity.Lead, crmURL string) error {
	if len(s.AgentRecipients) == 0 {
		return &usecase.ConfigurationError{Service: "agent email", Missing: []string{"AGENT_EMAILS"}}
	}

	data := AgentEmailData{
		LeadID:        lead.ID,
		Name:          lead.FullName(),
		Email:         lead.Email,
		Phone:         lead.Phone,
		InsuranceType: insuranceLabel(lead.InsuranceType),
		Details:       detailLines(lead.Details),
		Attribution:   attributionLines(lead.Attribution),
		CRMURL:        crmURL,
	}

	body, err := render("agent_notification.html", data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.AgentRecipients...)
	m.SetHeader("Reply-To", lead.Email)
	m.SetHeader("Subject", fmt.Sprintf("New %s quote request: %s", data.InsuranceType, data.Name))
	m.SetBody("text/html", body)

	return s.send(ctx, m)
}

func (s *EmailSender) SendConsumerConfirmation(ctx context.Context, lead *entity.Lead) error {
	data := ConsumerEmailData{
		FirstName:     lead.FirstName,
		InsuranceType: insuranceLabel(lead.InsuranceType),
		Details:       detailLines(lead.Details),
	}

	body, err := render("consumer_confirmation.html", data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetAddressHeader("To", lead.Email, lead.FullName())
	m.SetHeader("Subject", fmt.Sprintf("We received your %s insurance quote request", strings.ToLower(data.InsuranceType)))
	m.SetBody("text/html", body)

	return s.send(ctx, m)
}

func (s *EmailSender) send(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d := s.dialer
	if d == nil {
		d = gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return body.String(), nil
}

func insuranceLabel(t entity.InsuranceType) string {
	s := string(t)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func detailLines(d entity.LeadDetails) []DetailLine {
	var lines []DetailLine
	addInt := func(label string, v *int, format func(int) string) {
		if v != nil {
			lines = append(lines, DetailLine{label, format(*v)})
		}
	}
	addStr := func(label, v string) {
		if v != "" {
			lines = append(lines, DetailLine{label, v})
		}
	}

	addInt("Age", d.Age, strconv.Itoa)
	addStr("Gender", d.Gender)
	addInt("Coverage amount", d.CoverageAmount, dollars)
	addInt("Term length", d.TermLength, func(n int) string { return strconv.Itoa(n) + " years" })
	if d.TobaccoUse != nil {
		lines = append(lines, DetailLine{"Tobacco use", yesNo(*d.TobaccoUse)})
	}
	addStr("ZIP code", d.ZipCode)
	addInt("Vehicle year", d.VehicleYear, strconv.Itoa)
	addStr("Vehicle make", d.VehicleMake)
	addStr("Vehicle model", d.VehicleModel)
	addInt("Household size", d.HouseholdSize, strconv.Itoa)
	return lines
}

func attributionLines(a entity.Attribution) []DetailLine {
	var lines []DetailLine
	for _, f := range []struct {
		label string
		value *string
	}{
		{"Source", a.Source},
		{"Medium", a.Medium},
		{"Campaign", a.Campaign},
		{"Term", a.Term},
		{"Content", a.Content},
	} {
		if f.value != nil {
			lines = append(lines, DetailLine{f.label, *f.value})
		}
	}
	return lines
}

// dollars formats 250000 as $250,000.
func dollars(n int) string {
	s := strconv.Itoa(n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return "$" + string(out)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
