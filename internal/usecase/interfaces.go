package usecase

import (
	"context"
	"time"

	"github.com/eladlevy/leadgate/internal/entity"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
)

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *entity.Lead) error
	Delete(ctx context.Context, id string) error
	// FindDuplicateCandidates over-selects on purpose; the decision engine
	// re-checks every row with exact normalization.
	FindDuplicateCandidates(ctx context.Context, phone, phoneTail, name, email string) ([]*entity.Lead, error)
	AttachNotes(ctx context.Context, id, notes string) error
}

type LedgerInterface interface {
	// TryClaim returns true for exactly one caller per source message id.
	TryClaim(ctx context.Context, sourceMessageID, processedBy string) (bool, error)
	AttachLead(ctx context.Context, sourceMessageID, leadID string) error
}

type WatchRepositoryInterface interface {
	// Get returns (nil, nil) when no subscription is stored for the account.
	Get(ctx context.Context, accountEmail string) (*entity.WatchSubscription, error)
	Save(ctx context.Context, sub *entity.WatchSubscription) error
	UpdateHistoryID(ctx context.Context, accountEmail, historyID string) error
}

type MailProviderInterface interface {
	ListNewMessages(ctx context.Context, accountEmail, sinceHistoryID string) ([]google.InboundMessage, error)
}

type WatchProviderInterface interface {
	Watch(ctx context.Context, accountEmail string) (historyID string, expiration time.Time, err error)
}

type AlertSenderInterface interface {
	SendCredentialAlert(accountEmail string, cause error) error
}
