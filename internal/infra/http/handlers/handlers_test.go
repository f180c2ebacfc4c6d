package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SubmitLeadOutput), args.Error(1)
}

type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Execute(ctx context.Context, input usecase.TrackEventInput, kind entity.EventType) (*entity.FunnelEvent, error) {
	args := m.Called(ctx, input, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FunnelEvent), args.Error(1)
}

func post(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestSubmitQuoteSuccess(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.SubmitLeadInput) bool {
		return in.Email == "jane@x.com" && in.UTMSource == "google"
	})).Return(&usecase.SubmitLeadOutput{Success: true, ID: "lead-1"}, nil)

	rec, body := post(t, NewLeadHandler(sub).SubmitQuote, `{"email":"jane@x.com","insuranceType":"life","utm_source":"google"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "lead-1", body["id"])
}

func TestSubmitQuoteValidationError(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("Execute", mock.Anything, mock.Anything).
		Return(nil, usecase.ValidationErrors{{Field: "email", Message: "is required"}})

	rec, body := post(t, NewLeadHandler(sub).SubmitQuote, `{"insuranceType":"life"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", body["error"])
	details := body["details"].([]any)
	assert.Equal(t, "email", details[0].(map[string]any)["field"])
}

func TestSubmitQuotePersistenceErrorHidesDetail(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("Execute", mock.Anything, mock.Anything).
		Return(nil, &usecase.PersistenceError{Op: "create lead", Err: errors.New("pq: password authentication failed")})

	rec, body := post(t, NewLeadHandler(sub).SubmitQuote, `{"email":"jane@x.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to submit quote request", body["error"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSubmitQuoteInvalidJSON(t *testing.T) {
	sub := new(MockSubmitter)

	rec, body := post(t, NewLeadHandler(sub).SubmitQuote, `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", body["error"])
	sub.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestTrackingResponseShapes(t *testing.T) {
	event := &entity.FunnelEvent{ID: "evt-1", EventType: entity.EventSubmission, InsuranceType: entity.InsuranceAuto}

	tr := new(MockTracker)
	tr.On("Execute", mock.Anything, mock.Anything, entity.EventAbandonment).Return(&entity.FunnelEvent{}, nil)
	tr.On("Execute", mock.Anything, mock.Anything, entity.EventCompletion).Return(&entity.FunnelEvent{}, nil)
	tr.On("Execute", mock.Anything, mock.Anything, entity.EventSubmission).Return(event, nil)
	h := NewTrackingHandler(tr)

	_, body := post(t, h.Abandonment, `{"formId":"f1"}`)
	assert.Equal(t, map[string]any{"success": true}, body)

	_, body = post(t, h.Completion, `{"formId":"f1"}`)
	assert.Equal(t, "completion tracked", body["message"])
	assert.NotContains(t, body, "data")

	_, body = post(t, h.Submission, `{"step":1}`)
	assert.Equal(t, "submission tracked", body["message"])
	assert.Equal(t, "evt-1", body["data"].(map[string]any)["id"])
}

func TestTrackingErrorKeys(t *testing.T) {
	tr := new(MockTracker)
	tr.On("Execute", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &usecase.PersistenceError{Op: "record funnel event", Err: errors.New("disk full")})
	h := NewTrackingHandler(tr)

	rec, body := post(t, h.Abandonment, `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body, "error")

	rec, body = post(t, h.Completion, `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to track completion", body["message"])

	rec, body = post(t, h.Submission, `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body, "message")
	assert.NotContains(t, rec.Body.String(), "disk full")
}

type fakeLeads struct {
	lead  *entity.Lead
	err   error
	calls int
}

func (f *fakeLeads) FindByID(_ context.Context, id string) (*entity.Lead, error) {
	f.calls++
	return f.lead, f.err
}

type fakeAttempts struct {
	tasks []entity.NotificationTask
}

func (f *fakeAttempts) ListByLeadID(_ context.Context, _ string) ([]entity.NotificationTask, error) {
	return f.tasks, nil
}

const testLeadID = "3f1c2a9e-7b4d-4e2a-9c1f-5d8e6b7a0c12"

func getWithParam(h http.HandlerFunc, pattern, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get(pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLeadNotifications(t *testing.T) {
	h := &DiagnosticsHandler{
		Leads: &fakeLeads{lead: &entity.Lead{ID: testLeadID, CRMLeadID: "555"}},
		Attempts: &fakeAttempts{tasks: []entity.NotificationTask{
			{Channel: entity.ChannelCRMLead, LeadID: testLeadID, Status: entity.StatusSent, ExternalID: "555"},
		}},
	}

	rec := getWithParam(h.LeadNotifications, "/internal/leads/{id}/notifications", "/internal/leads/"+testLeadID+"/notifications")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LeadNotificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "555", resp.CRMLeadID)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, entity.StatusSent, resp.Notifications[0].Status)
}

func TestLeadNotificationsNotFound(t *testing.T) {
	leads := &fakeLeads{err: entity.ErrLeadNotFound}
	h := &DiagnosticsHandler{Leads: leads, Attempts: &fakeAttempts{}}

	rec := getWithParam(h.LeadNotifications, "/internal/leads/{id}/notifications", "/internal/leads/"+testLeadID+"/notifications")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, leads.calls)
}

func TestLeadNotificationsMalformedIDIsNotFound(t *testing.T) {
	leads := &fakeLeads{err: errors.New(`pq: invalid input syntax for type uuid: "nope"`)}
	h := &DiagnosticsHandler{Leads: leads, Attempts: &fakeAttempts{}}

	rec := getWithParam(h.LeadNotifications, "/internal/leads/{id}/notifications", "/internal/leads/nope/notifications")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "lead not found")
	assert.Zero(t, leads.calls)
}

type fakeEvents struct {
	formID string
}

func (f *fakeEvents) ListByFormID(_ context.Context, formID string) ([]*entity.FunnelEvent, error) {
	f.formID = formID
	return nil, nil
}

func TestFunnelEventsEmptyList(t *testing.T) {
	events := &fakeEvents{}
	h := &DiagnosticsHandler{Events: events}

	rec := getWithParam(h.FunnelEvents, "/internal/funnel/{formId}/events", "/internal/funnel/f1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "f1", events.formID)
	assert.JSONEq(t, `{"formId":"f1","events":[]}`, rec.Body.String())
}

func TestFunnelEventsWithoutReader(t *testing.T) {
	h := &DiagnosticsHandler{}

	rec := getWithParam(h.FunnelEvents, "/internal/funnel/{formId}/events", "/internal/funnel/f1/events")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeService bool

func (f fakeService) IsConfigured() bool { return bool(f) }

func TestHealthReportsChannels(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, nil, map[string]Configurable{
		"crm-lead":    fakeService(false),
		"agent-email": fakeService(true),
	})

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "not configured", resp.Dependencies["rabbitmq"])
	assert.False(t, resp.Channels["crm-lead"])
	assert.True(t, resp.Channels["agent-email"])
}

type fakeBroker bool

func (b fakeBroker) IsClosed() bool { return bool(b) }

func TestHealthReportsClosedBroker(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, fakeBroker(true), nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy: connection closed", resp.Dependencies["rabbitmq"])

	h.RabbitMQ = fakeBroker(false)
	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Dependencies["rabbitmq"])
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	h := NewHealthHandler(fakePinger{err: errors.New("refused")}, nil, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ctx := context.Background()
	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i)
	}

	ok, _ := rl.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = rl.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

type fakeRedis struct {
	counts  map[string]int64
	expired []string
	err     error
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expired = append(f.expired, key)
	return redis.NewBoolResult(true, nil)
}

func TestRedisRateLimiter(t *testing.T) {
	fr := &fakeRedis{counts: map[string]int64{}}
	rl := &RedisRateLimiter{client: fr, limit: 1, window: time.Minute, prefix: "rl:"}

	ok, err := rl.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rl.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"rl:ip"}, fr.expired)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := &RedisRateLimiter{client: &fakeRedis{counts: map[string]int64{}}, limit: 1, window: time.Minute}
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
		req.RemoteAddr = "9.9.9.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	rl := &RedisRateLimiter{client: &fakeRedis{err: errors.New("redis down")}, limit: 1, window: time.Minute}
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestGetClientIPIgnoresProxyHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Real-IP", "198.51.100.7")

	assert.Equal(t, "192.0.2.1", getClientIP(req))
}

func TestRateLimitCannotBeBypassedWithForwardedFor(t *testing.T) {
	rl := &RedisRateLimiter{client: &fakeRedis{counts: map[string]int64{}}, limit: 1, window: time.Minute}
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
