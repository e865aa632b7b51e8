package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/eladlevy/leadgate/internal/entity"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLeadRepository) FindDuplicateCandidates(ctx context.Context, phone, phoneTail, name, email string) ([]*entity.Lead, error) {
	args := m.Called(ctx, phone, phoneTail, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) AttachNotes(ctx context.Context, id, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) TryClaim(ctx context.Context, sourceMessageID, processedBy string) (bool, error) {
	args := m.Called(ctx, sourceMessageID, processedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) AttachLead(ctx context.Context, sourceMessageID, leadID string) error {
	args := m.Called(ctx, sourceMessageID, leadID)
	return args.Error(0)
}

type MockWatchRepository struct {
	mock.Mock
}

func (m *MockWatchRepository) Get(ctx context.Context, accountEmail string) (*entity.WatchSubscription, error) {
	args := m.Called(ctx, accountEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WatchSubscription), args.Error(1)
}

func (m *MockWatchRepository) Save(ctx context.Context, sub *entity.WatchSubscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockWatchRepository) UpdateHistoryID(ctx context.Context, accountEmail, historyID string) error {
	args := m.Called(ctx, accountEmail, historyID)
	return args.Error(0)
}

type MockMailProvider struct {
	mock.Mock
}

func (m *MockMailProvider) ListNewMessages(ctx context.Context, accountEmail, sinceHistoryID string) ([]google.InboundMessage, error) {
	args := m.Called(ctx, accountEmail, sinceHistoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]google.InboundMessage), args.Error(1)
}

type MockWatchProvider struct {
	mock.Mock
}

func (m *MockWatchProvider) Watch(ctx context.Context, accountEmail string) (string, time.Time, error) {
	args := m.Called(ctx, accountEmail)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendCredentialAlert(accountEmail string, cause error) error {
	args := m.Called(accountEmail, cause)
	return args.Error(0)
}
