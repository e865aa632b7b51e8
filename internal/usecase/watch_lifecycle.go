package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eladlevy/leadgate/internal/entity"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
)

// WatchLifecycle owns the provider push subscription for each mailbox:
// INACTIVE -> PENDING -> ACTIVE -> EXPIRED. Renewal is a plain re-register;
// the provider always answers with a fresh, later expiration.
type WatchLifecycle struct {
	Provider WatchProviderInterface
	Repo     WatchRepositoryInterface
	Alerts   AlertSenderInterface
	Now      func() time.Time
}

func NewWatchLifecycle(provider WatchProviderInterface, repo WatchRepositoryInterface, alerts AlertSenderInterface) *WatchLifecycle {
	return &WatchLifecycle{
		Provider: provider,
		Repo:     repo,
		Alerts:   alerts,
		Now:      time.Now,
	}
}

func (l *WatchLifecycle) Register(ctx context.Context, accountEmail string) (*entity.WatchSubscription, error) {
	prev, err := l.Repo.Get(ctx, accountEmail)
	if err != nil {
		return nil, fmt.Errorf("load watch state: %w", err)
	}

	sub := &entity.WatchSubscription{
		AccountEmail: accountEmail,
		State:        entity.WatchPending,
		UpdatedAt:    l.Now(),
	}
	if prev != nil {
		// keep the cursor; losing it would skip messages
		sub.HistoryID = prev.HistoryID
	}
	if err := l.Repo.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save pending watch: %w", err)
	}

	historyID, expiration, err := l.Provider.Watch(ctx, accountEmail)
	if err != nil {
		sub.State = entity.WatchExpired
		sub.UpdatedAt = l.Now()
		if saveErr := l.Repo.Save(ctx, sub); saveErr != nil {
			log.Printf("❌ [WATCH] save expired state for %s: %v", accountEmail, saveErr)
		}
		if errors.Is(err, google.ErrCredentialRevoked) {
			if l.Alerts != nil {
				if alertErr := l.Alerts.SendCredentialAlert(accountEmail, err); alertErr != nil {
					log.Printf("❌ [WATCH] credential alert for %s failed: %v", accountEmail, alertErr)
				}
			}
			return nil, fmt.Errorf("watch registration for %s: %w", accountEmail, err)
		}
		return nil, fmt.Errorf("watch registration for %s: %w", accountEmail, err)
	}

	sub.State = entity.WatchActive
	sub.Expiration = expiration
	sub.UpdatedAt = l.Now()
	if sub.HistoryID == "" {
		sub.HistoryID = historyID
	}
	if err := l.Repo.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("save active watch: %w", err)
	}

	log.Printf("👁️ [WATCH] %s active until %s", accountEmail, expiration.Format(time.RFC3339))
	return sub, nil
}

// Renew re-registers the subscription. Idempotent and safe on a non-expired
// subscription; the new expiration is always strictly later than the old one.
func (l *WatchLifecycle) Renew(ctx context.Context, accountEmail string) (*entity.WatchSubscription, error) {
	prev, err := l.Repo.Get(ctx, accountEmail)
	if err != nil {
		return nil, fmt.Errorf("load watch state: %w", err)
	}

	sub, err := l.Register(ctx, accountEmail)
	if err != nil {
		return nil, err
	}

	if prev != nil && !sub.Expiration.After(prev.Expiration) {
		log.Printf("⚠️ [WATCH] expiration for %s did not advance (%s -> %s)",
			accountEmail, prev.Expiration.Format(time.RFC3339), sub.Expiration.Format(time.RFC3339))
	}
	return sub, nil
}
