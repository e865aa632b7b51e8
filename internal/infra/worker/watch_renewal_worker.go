package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
	"github.com/eladlevy/leadgate/internal/usecase"
)

// WatchRenewalWorker re-registers every mailbox subscription on a fixed
// schedule, well inside the provider's ~7 day lifetime cap. A single
// goroutine drives all accounts, so renewal is single-flight by construction.
// An account whose credentials are revoked is halted until restart; the
// lifecycle already raised the operator alert.
type WatchRenewalWorker struct {
	lifecycle    *usecase.WatchLifecycle
	accounts     []string
	tickInterval time.Duration
	halted       map[string]bool
}

func NewWatchRenewalWorker(lifecycle *usecase.WatchLifecycle, accounts []string, tickInterval time.Duration) *WatchRenewalWorker {
	if tickInterval <= 0 {
		tickInterval = 12 * time.Hour
	}
	return &WatchRenewalWorker{
		lifecycle:    lifecycle,
		accounts:     accounts,
		tickInterval: tickInterval,
		halted:       make(map[string]bool),
	}
}

func (w *WatchRenewalWorker) Start(ctx context.Context) {
	log.Printf("🕒 Watch renewal worker started (%d account(s), every %s)", len(w.accounts), w.tickInterval)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.renewAll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Watch renewal worker stopped")
			return
		case <-ticker.C:
			w.renewAll(ctx)
		}
	}
}

func (w *WatchRenewalWorker) renewAll(ctx context.Context) {
	for _, account := range w.accounts {
		if w.halted[account] {
			continue
		}

		sub, err := w.lifecycle.Renew(ctx, account)
		if err != nil {
			middleware.RecordIntegrationError("gmail")
			if errors.Is(err, google.ErrCredentialRevoked) {
				// terminal until the account is re-authorized; do not loop
				log.Printf("🛑 [RENEW] %s halted, credentials revoked: %v", account, err)
				w.halted[account] = true
				continue
			}
			// transient: leave the account in the rotation, next tick retries
			log.Printf("❌ [RENEW] %s failed: %v", account, err)
			continue
		}

		middleware.RecordWatchRenewal(account)
		log.Printf("🔄 [RENEW] %s renewed until %s", account, sub.Expiration.Format(time.RFC3339))
	}
}
