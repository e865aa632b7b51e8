package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eladlevy/leadgate/internal/entity"
)

func existingLead(name, phone string, createdAt time.Time) *entity.Lead {
	return &entity.Lead{
		ID:        "lead-1",
		Name:      name,
		Phone:     phone,
		CreatedAt: createdAt,
	}
}

func TestDecideExactPhoneMatch(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "someone else", Phone: "050-123-4567"}
	existing := []*entity.Lead{existingLead("דנה כהן", "0501234567", now.Add(-48*time.Hour))}

	verdict := Decide(candidate, existing, now)

	assert.False(t, verdict.Create)
	assert.Equal(t, ReasonExactPhone, verdict.Reason)
	assert.Equal(t, "lead-1", verdict.Matched.ID)
}

func TestDecideExactEmailMatch(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "new name", Phone: "0529999999", Email: "Dana@Example.com"}
	lead := existingLead("דנה כהן", "0501234567", now.Add(-48*time.Hour))
	lead.Email = "dana@example.com"

	verdict := Decide(candidate, []*entity.Lead{lead}, now)

	assert.False(t, verdict.Create)
	assert.Equal(t, ReasonExactEmail, verdict.Reason)
}

func TestDecideEmptyEmailsNeverMatch(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "a", Phone: "0521111111", Email: ""}
	lead := existingLead("b", "0522222222", now.Add(-48*time.Hour))

	verdict := Decide(candidate, []*entity.Lead{lead}, now)
	assert.True(t, verdict.Create)
}

func TestDecideNameAndSimilarPhone(t *testing.T) {
	now := time.Now()
	// same trailing 7 digits, different prefix formatting
	candidate := entity.LeadCandidate{Name: " Dana  Cohen ", Phone: "+972-50-123-4567"}
	existing := []*entity.Lead{existingLead("dana cohen", "0501234567", now.Add(-48*time.Hour))}

	verdict := Decide(candidate, existing, now)

	assert.False(t, verdict.Create)
	assert.Equal(t, ReasonNameAndSimilarPhone, verdict.Reason)
}

func TestDecideSameNameWithinHour(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "דנה כהן", Phone: "0529999999"}
	existing := []*entity.Lead{existingLead("דנה  כהן", "0501234567", now.Add(-59*time.Minute))}

	verdict := Decide(candidate, existing, now)

	assert.False(t, verdict.Create)
	assert.Equal(t, ReasonSameNameWithinHour, verdict.Reason)
}

func TestDecideWindowBoundary(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "דנה כהן", Phone: "0529999999"}

	at59 := Decide(candidate, []*entity.Lead{existingLead("דנה כהן", "0501234567", now.Add(-59*time.Minute))}, now)
	assert.False(t, at59.Create)
	assert.Equal(t, ReasonSameNameWithinHour, at59.Reason)

	at61 := Decide(candidate, []*entity.Lead{existingLead("דנה כהן", "0501234567", now.Add(-61*time.Minute))}, now)
	assert.True(t, at61.Create)
}

func TestDecidePriorityPhoneBeatsNameWindow(t *testing.T) {
	now := time.Now()
	// matches both rule 1 (exact phone) and rule 4 (same name within hour):
	// rule 1 must win
	candidate := entity.LeadCandidate{Name: "דנה כהן", Phone: "0501234567"}
	existing := []*entity.Lead{existingLead("דנה כהן", "0501234567", now.Add(-30*time.Minute))}

	verdict := Decide(candidate, existing, now)

	assert.False(t, verdict.Create)
	assert.Equal(t, ReasonExactPhone, verdict.Reason)
}

func TestDecidePriorityAcrossLeads(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "דנה כהן", Phone: "0501234567"}
	// the name-window match comes first in the snapshot, but the exact phone
	// match on a later lead still wins: rules are the outer loop
	existing := []*entity.Lead{
		existingLead("דנה כהן", "0529999999", now.Add(-30*time.Minute)),
		{ID: "lead-2", Name: "other", Phone: "0501234567", CreatedAt: now.Add(-72 * time.Hour)},
	}

	verdict := Decide(candidate, existing, now)

	assert.Equal(t, ReasonExactPhone, verdict.Reason)
	assert.Equal(t, "lead-2", verdict.Matched.ID)
}

func TestDecideNoMatchCreates(t *testing.T) {
	now := time.Now()
	candidate := entity.LeadCandidate{Name: "new person", Phone: "0521112222"}
	existing := []*entity.Lead{existingLead("דנה כהן", "0501234567", now.Add(-10*time.Minute))}

	verdict := Decide(candidate, existing, now)

	assert.True(t, verdict.Create)
	assert.Nil(t, verdict.Matched)
}

func TestDecideEmptySnapshotCreates(t *testing.T) {
	verdict := Decide(entity.LeadCandidate{Name: "x", Phone: "0521112222"}, nil, time.Now())
	assert.True(t, verdict.Create)
}
