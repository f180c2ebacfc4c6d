package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xavierca1/ligue-quotes/internal/infra/queue"
)

// Client talks to the outbound dialer that connects agents with new leads.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
	}
}

type callRequest struct {
	ExternalID string `json:"external_id"`
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Queue      string `json:"queue"`
	Metadata   struct {
		Email   string `json:"email"`
		ZipCode string `json:"zip_code,omitempty"`
		Source  string `json:"source,omitempty"`
	} `json:"metadata"`
}

// PlaceCall queues an outbound call. Calls are grouped into one dialer queue per
// insurance type so agents licensed for that line pick them up.
func (c *Client) PlaceCall(ctx context.Context, payload queue.CallRoutingPayload) error {
	req := callRequest{
		ExternalID: payload.LeadID,
		Phone:      payload.Phone,
		Name:       payload.Name,
		Queue:      "quotes-" + payload.InsuranceType,
	}
	req.Metadata.Email = payload.Email
	req.Metadata.ZipCode = payload.ZipCode
	req.Metadata.Source = payload.Source

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/calls", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dialer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dialer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
