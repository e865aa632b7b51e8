package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/eladlevy/leadgate/internal/entity"
)

// ProcessedEmailRepository is the idempotency ledger. The UNIQUE constraint
// on source_message_id is the sole correctness mechanism under concurrency:
// exactly one caller wins the INSERT, everyone else sees zero rows affected.
type ProcessedEmailRepository struct {
	DB *sql.DB
}

func NewProcessedEmailRepository(db *sql.DB) *ProcessedEmailRepository {
	return &ProcessedEmailRepository{DB: db}
}

func (r *ProcessedEmailRepository) TryClaim(ctx context.Context, sourceMessageID, processedBy string) (bool, error) {
	rec := entity.ProcessedEmail{
		SourceMessageID: sourceMessageID,
		ProcessedAt:     time.Now(),
		ProcessedBy:     processedBy,
	}
	query := `
		INSERT INTO processed_emails (source_message_id, processed_at, processed_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_message_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, query, rec.SourceMessageID, rec.ProcessedAt, rec.ProcessedBy)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *ProcessedEmailRepository) AttachLead(ctx context.Context, sourceMessageID, leadID string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE processed_emails SET lead_id = $2 WHERE source_message_id = $1`,
		sourceMessageID,
		leadID,
	)
	return err
}
