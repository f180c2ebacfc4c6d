package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) AttachCRMID(ctx context.Context, leadID, crmID string) error {
	args := m.Called(ctx, leadID, crmID)
	return args.Error(0)
}

// MockNotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) RecordAttempts(ctx context.Context, tasks []entity.NotificationTask) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

// MockCRMService
type MockCRMService struct {
	mock.Mock
	Configured bool
}

func (m *MockCRMService) IsConfigured() bool { return m.Configured }

func (m *MockCRMService) CreateLead(ctx context.Context, lead *entity.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockCRMService) LeadURL(crmID string) string {
	return "https://crm.example.com/leads/detail/" + crmID
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
	Configured bool
}

func (m *MockEmailService) IsConfigured() bool { return m.Configured }

func (m *MockEmailService) SendAgentNotification(ctx context.Context, lead *entity.Lead, crmURL string) error {
	args := m.Called(ctx, lead, crmURL)
	return args.Error(0)
}

func (m *MockEmailService) SendConsumerConfirmation(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockCallRouter
type MockCallRouter struct {
	mock.Mock
	Configured bool
}

func (m *MockCallRouter) IsConfigured() bool { return m.Configured }

func (m *MockCallRouter) Route(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockEventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Append(ctx context.Context, event *entity.FunnelEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func validLifeInput() usecase.SubmitLeadInput {
	return usecase.SubmitLeadInput{
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@x.com",
		Phone:          "5551234567",
		InsuranceType:  "life",
		CoverageAmount: intPtr(500000),
		TermLength:     intPtr(20),
	}
}
