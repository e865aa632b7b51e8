package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eladlevy/leadgate/internal/entity"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
)

const leadBody = "שם: X\nנייד: 052-111-2222\n"

func activeWatch(account, historyID string) *entity.WatchSubscription {
	return &entity.WatchSubscription{
		AccountEmail: account,
		HistoryID:    historyID,
		Expiration:   time.Now().Add(24 * time.Hour),
		State:        entity.WatchActive,
	}
}

func TestProcessNotificationCreatesLead(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	ledger := new(MockLedger)
	leadRepo := new(MockLeadRepository)

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-1", Body: leadBody}}, nil)
	ledger.On("TryClaim", ctx, "msg-1", "email_pipeline").Return(true, nil)
	leadRepo.On("FindDuplicateCandidates", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*entity.Lead{}, nil)

	var createdID string
	leadRepo.On("Create", ctx, mock.MatchedBy(func(l *entity.Lead) bool {
		createdID = l.ID
		return l.Name == "X" && l.Phone == "0521112222" && l.Source == "email"
	})).Return(nil)
	ledger.On("AttachLead", ctx, "msg-1", mock.Anything).Return(nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledger, leadRepo)
	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))

	ledger.AssertCalled(t, "AttachLead", ctx, "msg-1", createdID)
	leadRepo.AssertNumberOfCalls(t, "Create", 1)
}

// Two notifications for the same history arrive 200ms apart: the ledger claim
// makes sure only the first one creates a lead.
func TestProcessNotificationDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	leadRepo := new(MockLeadRepository)

	// ledger backed by a real map: first claim wins, the replay loses
	ledgerStub := newClaimOnceLedger()

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-1", Body: leadBody}}, nil)
	leadRepo.On("FindDuplicateCandidates", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*entity.Lead{}, nil)
	leadRepo.On("Create", ctx, mock.Anything).Return(nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledgerStub, leadRepo)

	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))

	leadRepo.AssertNumberOfCalls(t, "Create", 1)
	assert.Equal(t, 1, len(ledgerStub.attached))
}

// claimOnceLedger behaves like the real uniqueness constraint.
type claimOnceLedger struct {
	mu       sync.Mutex
	claims   map[string]bool
	attached []string
}

func newClaimOnceLedger() *claimOnceLedger {
	return &claimOnceLedger{claims: make(map[string]bool)}
}

func (l *claimOnceLedger) TryClaim(_ context.Context, sourceMessageID, _ string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claims[sourceMessageID] {
		return false, nil
	}
	l.claims[sourceMessageID] = true
	return true, nil
}

func (l *claimOnceLedger) AttachLead(_ context.Context, sourceMessageID, leadID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attached = append(l.attached, sourceMessageID)
	return nil
}

func TestProcessNotificationParseFailureStillClaims(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	ledger := new(MockLedger)
	leadRepo := new(MockLeadRepository)

	// address and notes but no phone line
	body := "שם: דנה כהן\nכתובת: הרצל 12\nהערות: לחזור אליה"

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-2", Body: body}}, nil)
	ledger.On("TryClaim", ctx, "msg-2", "email_pipeline").Return(true, nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledger, leadRepo)
	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))

	// the message is marked as seen, but no lead exists and nothing was attached
	ledger.AssertCalled(t, "TryClaim", ctx, "msg-2", "email_pipeline")
	ledger.AssertNotCalled(t, "AttachLead", mock.Anything, mock.Anything, mock.Anything)
	leadRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessNotificationDuplicateLeadAttachesNotes(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	ledger := new(MockLedger)
	leadRepo := new(MockLeadRepository)

	body := "שם: דנה כהן\nנייד: 0501234567\nהערות: הגיעה גם מקמפיין פייסבוק"
	matched := &entity.Lead{ID: "lead-7", Name: "דנה כהן", Phone: "0501234567", CreatedAt: time.Now().Add(-3 * time.Hour)}

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-3", Body: body}}, nil)
	ledger.On("TryClaim", ctx, "msg-3", "email_pipeline").Return(true, nil)
	leadRepo.On("FindDuplicateCandidates", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*entity.Lead{matched}, nil)
	ledger.On("AttachLead", ctx, "msg-3", "lead-7").Return(nil)
	leadRepo.On("AttachNotes", ctx, "lead-7", mock.Anything).Return(nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledger, leadRepo)
	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))

	leadRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	leadRepo.AssertCalled(t, "AttachNotes", ctx, "lead-7", mock.Anything)
}

func TestProcessNotificationAlreadyClaimedSkips(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	ledger := new(MockLedger)
	leadRepo := new(MockLeadRepository)

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-1", Body: leadBody}}, nil)
	ledger.On("TryClaim", ctx, "msg-1", "email_pipeline").Return(false, nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledger, leadRepo)
	require.NoError(t, uc.Execute(ctx, "inbox@example.com", "1042"))

	leadRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessNotificationLeadWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	mail := new(MockMailProvider)
	watchRepo := new(MockWatchRepository)
	ledger := new(MockLedger)
	leadRepo := new(MockLeadRepository)

	watchRepo.On("Get", ctx, "inbox@example.com").Return(activeWatch("inbox@example.com", "1000"), nil)
	mail.On("ListNewMessages", ctx, "inbox@example.com", "1000").
		Return([]google.InboundMessage{{ID: "msg-1", Body: leadBody}}, nil)
	ledger.On("TryClaim", ctx, "msg-1", "email_pipeline").Return(true, nil)
	leadRepo.On("FindDuplicateCandidates", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*entity.Lead{}, nil)
	leadRepo.On("Create", ctx, mock.Anything).Return(nil)
	// ledger attach fails -> saga compensation deletes the orphan lead
	ledger.On("AttachLead", ctx, "msg-1", mock.Anything).Return(assert.AnError)
	leadRepo.On("Delete", ctx, mock.Anything).Return(nil)
	watchRepo.On("UpdateHistoryID", ctx, "inbox@example.com", "1042").Return(nil)

	uc := NewProcessNotificationUseCase(mail, watchRepo, ledger, leadRepo)
	err := uc.Execute(ctx, "inbox@example.com", "1042")

	require.Error(t, err)
	leadRepo.AssertCalled(t, "Delete", ctx, mock.Anything)
}
