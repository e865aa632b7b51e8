package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eladlevy/leadgate/internal/entity"
)

type CreateLeadInput struct {
	LeadName   string `json:"lead_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	AgentNotes string `json:"agent_notes,omitempty"`
	Source     string `json:"source,omitempty"`
}

// CreateLeadUseCase is the synchronous lead-creation entry point, shared by
// the public API and non-email sources (manual entry, bulk import).
type CreateLeadUseCase struct {
	Repo LeadRepositoryInterface
	Now  func() time.Time
}

func NewCreateLeadUseCase(repo LeadRepositoryInterface) *CreateLeadUseCase {
	return &CreateLeadUseCase{Repo: repo, Now: time.Now}
}

func (uc *CreateLeadUseCase) Execute(ctx context.Context, input CreateLeadInput) (*entity.Lead, error) {
	validationErrors := ValidateCreateLeadInput(input)
	if len(validationErrors) > 0 {
		errMsg := "validation failed: "
		for _, e := range validationErrors {
			errMsg += e.Field + " (" + e.Message + "), "
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: strings.TrimSuffix(errMsg, ", "),
		}
	}

	source := input.Source
	if source == "" {
		source = "manual"
	}

	candidate := entity.LeadCandidate{
		Name:   strings.TrimSpace(input.LeadName),
		Phone:  entity.NormalizePhone(input.Phone),
		Email:  strings.TrimSpace(input.Email),
		Notes:  input.AgentNotes,
		Source: source,
	}

	verdict, err := findAndDecide(ctx, uc.Repo, candidate, uc.Now())
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to query existing leads: " + err.Error(),
		}
	}
	if !verdict.Create {
		return nil, &DuplicateError{Reason: verdict.Reason, Matched: verdict.Matched}
	}

	lead := newLeadFromCandidate(candidate, uc.Now())
	if err := uc.Repo.Create(ctx, lead); err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to persist lead: " + err.Error(),
		}
	}

	return lead, nil
}

func ValidateCreateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadName) == "" {
		errors = append(errors, ValidationError{"lead_name", "is required"})
	} else if len(input.LeadName) > 200 {
		errors = append(errors, ValidationError{"lead_name", "must not exceed 200 characters"})
	}

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	} else if tail := entity.PhoneTail(input.Phone, 7); tail == "" {
		errors = append(errors, ValidationError{"phone", "must contain at least 7 digits"})
	}

	return errors
}

// findAndDecide runs the dedup engine against a targeted snapshot of existing
// leads. The read-then-decide window is unguarded; replayed messages are
// caught by the ledger, not here.
func findAndDecide(ctx context.Context, repo LeadRepositoryInterface, candidate entity.LeadCandidate, now time.Time) (Verdict, error) {
	existing, err := repo.FindDuplicateCandidates(
		ctx,
		entity.NormalizePhone(candidate.Phone),
		entity.PhoneTail(candidate.Phone, phoneTailLen),
		entity.NormalizeName(candidate.Name),
		strings.TrimSpace(candidate.Email),
	)
	if err != nil {
		return Verdict{}, err
	}
	return Decide(candidate, existing, now), nil
}

func newLeadFromCandidate(c entity.LeadCandidate, now time.Time) *entity.Lead {
	return &entity.Lead{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(c.Name),
		Phone:           entity.NormalizePhone(c.Phone),
		Email:           strings.TrimSpace(c.Email),
		Address:         c.Address,
		Notes:           c.Notes,
		Source:          c.Source,
		RelevanceStatus: "PENDING",
		Status:          "NEW",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
