package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
	"github.com/eladlevy/leadgate/internal/parser"
)

const processedByPipeline = "email_pipeline"

// ProcessNotificationUseCase runs the per-notification pipeline off the
// webhook's critical path: fetch new messages since the stored cursor, claim
// each one in the ledger, parse, run the duplicate decision and persist.
// Safe under at-least-once delivery: correctness rests on the ledger claim,
// not on anything the receiver does.
type ProcessNotificationUseCase struct {
	Mail      MailProviderInterface
	WatchRepo WatchRepositoryInterface
	Ledger    LedgerInterface
	LeadRepo  LeadRepositoryInterface
	Now       func() time.Time
}

func NewProcessNotificationUseCase(
	mail MailProviderInterface,
	watchRepo WatchRepositoryInterface,
	ledger LedgerInterface,
	leadRepo LeadRepositoryInterface,
) *ProcessNotificationUseCase {
	return &ProcessNotificationUseCase{
		Mail:      mail,
		WatchRepo: watchRepo,
		Ledger:    ledger,
		LeadRepo:  leadRepo,
		Now:       time.Now,
	}
}

func (uc *ProcessNotificationUseCase) Execute(ctx context.Context, accountEmail, historyID string) error {
	since := historyID
	watch, err := uc.WatchRepo.Get(ctx, accountEmail)
	if err != nil {
		return fmt.Errorf("load watch state for %s: %w", accountEmail, err)
	}
	if watch != nil && watch.HistoryID != "" {
		since = watch.HistoryID
	}

	messages, err := uc.Mail.ListNewMessages(ctx, accountEmail, since)
	if err != nil {
		return fmt.Errorf("fetch messages for %s since %s: %w", accountEmail, since, err)
	}

	var errs []error
	for _, msg := range messages {
		if err := uc.processMessage(ctx, msg); err != nil {
			log.Printf("❌ [PIPELINE] message %s: %v", msg.ID, err)
			errs = append(errs, err)
		}
	}

	// Advance the cursor even when individual messages failed: their ledger
	// claims are already recorded and redelivery would not help.
	if err := uc.WatchRepo.UpdateHistoryID(ctx, accountEmail, historyID); err != nil {
		errs = append(errs, fmt.Errorf("advance cursor for %s: %w", accountEmail, err))
	}

	return errors.Join(errs...)
}

func (uc *ProcessNotificationUseCase) processMessage(ctx context.Context, msg google.InboundMessage) error {
	claimed, err := uc.Ledger.TryClaim(ctx, msg.ID, processedByPipeline)
	if err != nil {
		return fmt.Errorf("claim message: %w", err)
	}
	if !claimed {
		log.Printf("📭 [PIPELINE] message %s already processed, skipping", msg.ID)
		return nil
	}

	candidate, err := parser.Parse(msg.Body)
	if err != nil {
		if errors.Is(err, parser.ErrParseFailure) {
			// The claim stays with a nil lead so the message is never retried.
			log.Printf("⚠️ [PIPELINE] message %s unparseable: %v", msg.ID, err)
			middleware.RecordParseFailure()
			return nil
		}
		return fmt.Errorf("parse message: %w", err)
	}
	if candidate.Source == "" {
		candidate.Source = "email"
	}

	verdict, err := findAndDecide(ctx, uc.LeadRepo, candidate, uc.Now())
	if err != nil {
		return fmt.Errorf("query existing leads: %w", err)
	}

	if !verdict.Create {
		log.Printf("🔁 [PIPELINE] message %s is a duplicate (%s) of lead %s", msg.ID, verdict.Reason, verdict.Matched.ID)
		middleware.RecordDuplicate(string(verdict.Reason))
		if err := uc.Ledger.AttachLead(ctx, msg.ID, verdict.Matched.ID); err != nil {
			return fmt.Errorf("attach matched lead: %w", err)
		}
		// Late-arriving notes enrich a lead created through another entry
		// path; identity fields are never touched.
		if candidate.Notes != "" && verdict.Matched.Notes == "" {
			if err := uc.LeadRepo.AttachNotes(ctx, verdict.Matched.ID, candidate.Notes); err != nil {
				log.Printf("⚠️ [PIPELINE] attach notes to lead %s: %v", verdict.Matched.ID, err)
			}
		}
		return nil
	}

	lead := newLeadFromCandidate(candidate, uc.Now())

	txn := NewTransaction()
	txn.AddOperation("create_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Create(ctx, lead)
	})
	txn.AddCompensation("delete_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Delete(ctx, lead.ID)
	})
	txn.AddOperation("attach_ledger", func(ctx context.Context) error {
		return uc.Ledger.AttachLead(ctx, msg.ID, lead.ID)
	})

	if err := txn.Execute(ctx); err != nil {
		// The claim is left without a lead reference; an out-of-band sweep can
		// pick these up if completeness matters.
		return fmt.Errorf("persist lead for message %s: %w", msg.ID, err)
	}

	middleware.RecordLeadCreated(lead.Source)
	log.Printf("✅ [PIPELINE] lead %s created from message %s (%s / %s)", lead.ID, msg.ID, lead.Name, lead.Phone)
	return nil
}
