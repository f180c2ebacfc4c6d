package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

// Client creates leads through the Kommo API v4.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" && cfg.Subdomain != "" {
		base = fmt.Sprintf("https://%s.kommo.com", cfg.Subdomain)
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.cfg.Token != "" && c.baseURL != ""
}

func (c *Client) LeadURL(crmID string) string {
	return fmt.Sprintf("%s/leads/detail/%s", c.baseURL, crmID)
}

// CreateLead attaches the lead to an existing contact (matched by email, then
// phone) or a new one, and returns the Kommo lead id.
func (c *Client) CreateLead(ctx context.Context, lead *entity.Lead) (string, error) {
	if !c.IsConfigured() {
		return "", &usecase.ConfigurationError{Service: "kommo", Missing: []string{"KOMMO_TOKEN", "KOMMO_SUBDOMAIN"}}
	}

	contactID, err := c.findOrCreateContact(ctx, lead)
	if err != nil {
		return "", fmt.Errorf("kommo contact: %w", err)
	}

	req := []leadRequest{{
		Name:       fmt.Sprintf("%s - %s quote", lead.FullName(), lead.InsuranceType),
		PipelineID: c.cfg.PipelineID,
		StatusID:   c.cfg.StatusID,
		Embedded: leadEmbedded{
			Tags:     toTags(lead.Tags),
			Contacts: []entityRef{{ID: contactID}},
		},
	}}

	var res embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/api/v4/leads", req, &res); err != nil {
		return "", fmt.Errorf("kommo create lead: %w", err)
	}
	if len(res.Embedded.Leads) == 0 {
		return "", fmt.Errorf("kommo create lead: empty response")
	}

	id := strconv.Itoa(res.Embedded.Leads[0].ID)
	log.Info().Str("lead_id", lead.ID).Str("crm_id", id).Int("contact_id", contactID).Msg("kommo lead created")
	return id, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, lead *entity.Lead) (int, error) {
	for _, q := range []string{lead.Email, lead.Phone} {
		if q == "" {
			continue
		}
		id, err := c.findContact(ctx, q)
		if err != nil {
			return 0, err
		}
		if id > 0 {
			return id, nil
		}
	}
	return c.createContact(ctx, lead)
}

func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	var res embeddedResponse
	if err := c.do(ctx, http.MethodGet, "/api/v4/contacts?query="+url.QueryEscape(query), nil, &res); err != nil {
		return 0, err
	}
	if len(res.Embedded.Contacts) == 0 {
		return 0, nil
	}
	return res.Embedded.Contacts[0].ID, nil
}

func (c *Client) createContact(ctx context.Context, lead *entity.Lead) (int, error) {
	contact := contactRequest{
		Name:      lead.FullName(),
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
	}
	if lead.Phone != "" {
		contact.CustomFields = append(contact.CustomFields, customField{
			FieldCode: "PHONE",
			Values:    []fieldValue{{Value: lead.Phone, EnumCode: "WORK"}},
		})
	}
	contact.CustomFields = append(contact.CustomFields, customField{
		FieldCode: "EMAIL",
		Values:    []fieldValue{{Value: lead.Email, EnumCode: "WORK"}},
	})

	var res embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/api/v4/contacts", []contactRequest{contact}, &res); err != nil {
		return 0, err
	}
	if len(res.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("contact id missing from response")
	}
	return res.Embedded.Contacts[0].ID, nil
}

// do sends body as JSON and decodes the reply into out. 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(string(data), 200))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func toTags(names []string) []tag {
	tags := make([]tag, 0, len(names))
	for _, n := range names {
		tags = append(tags, tag{Name: n})
	}
	return tags
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
