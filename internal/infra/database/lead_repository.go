package database

import (
	"context"
	"database/sql"

	"github.com/eladlevy/leadgate/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads
			(id, name, phone, email, address, notes, source,
			 assigned_agent_id, relevance_status, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.DB.ExecContext(
		ctx,
		query,
		lead.ID,
		lead.Name,
		lead.Phone,
		nullString(lead.Email),
		nullString(lead.Address),
		nullString(lead.Notes),
		nullString(lead.Source),
		nullString(lead.AssignedAgentID),
		lead.RelevanceStatus,
		lead.Status,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return err
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	return err
}

// FindDuplicateCandidates over-selects leads that any dedup rule could match
// (same phone, same trailing digits, same name or same email). The decision
// engine re-checks every row with exact normalization.
func (r *LeadRepository) FindDuplicateCandidates(ctx context.Context, phone, phoneTail, name, email string) ([]*entity.Lead, error) {
	query := `
		SELECT id, name, phone,
		       COALESCE(email, ''), COALESCE(address, ''), COALESCE(notes, ''),
		       COALESCE(source, ''), COALESCE(assigned_agent_id, ''),
		       relevance_status, status, created_at, updated_at
		FROM leads
		WHERE phone = $1
		   OR ($2 <> '' AND RIGHT(REGEXP_REPLACE(phone, '\D', '', 'g'), 7) = $2)
		   OR ($3 <> '' AND LOWER(TRIM(name)) = $3)
		   OR ($4 <> '' AND LOWER(email) = LOWER($4))
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(ctx, query, phone, phoneTail, name, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead := &entity.Lead{}
		if err := rows.Scan(
			&lead.ID,
			&lead.Name,
			&lead.Phone,
			&lead.Email,
			&lead.Address,
			&lead.Notes,
			&lead.Source,
			&lead.AssignedAgentID,
			&lead.RelevanceStatus,
			&lead.Status,
			&lead.CreatedAt,
			&lead.UpdatedAt,
		); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// AttachNotes is the idempotent supplementary update: notes only, identity
// fields (name, phone) are never touched here.
func (r *LeadRepository) AttachNotes(ctx context.Context, id, notes string) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE leads SET notes = $2, updated_at = NOW() WHERE id = $1`,
		id,
		notes,
	)
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
