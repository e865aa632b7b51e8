package usecase

import (
	"strings"
	"time"

	"github.com/eladlevy/leadgate/internal/entity"
)

type DuplicateReason string

const (
	ReasonExactPhone              DuplicateReason = "exact_phone_match"
	ReasonExactEmail              DuplicateReason = "exact_email_match"
	ReasonNameAndSimilarPhone     DuplicateReason = "name_and_similar_phone"
	ReasonSameNameWithinHour      DuplicateReason = "same_name_within_hour"
	ReasonSameNamePhoneWithinHour DuplicateReason = "same_name_and_phone_within_hour"
)

// Verdict is the engine's output: create the candidate, or report which rule
// matched which existing lead.
type Verdict struct {
	Create  bool
	Reason  DuplicateReason
	Matched *entity.Lead
}

const phoneTailLen = 7

const duplicateWindow = time.Hour

type dedupRule struct {
	reason DuplicateReason
	match  func(c entity.LeadCandidate, lead *entity.Lead, now time.Time) bool
}

// Ordered rule set, first match wins. The order is part of the contract:
// phone identity outranks email identity, which outranks the fuzzy and
// time-window rules.
var dedupRules = []dedupRule{
	{ReasonExactPhone, func(c entity.LeadCandidate, l *entity.Lead, _ time.Time) bool {
		cp := entity.NormalizePhone(c.Phone)
		return cp != "" && cp == entity.NormalizePhone(l.Phone)
	}},
	{ReasonExactEmail, func(c entity.LeadCandidate, l *entity.Lead, _ time.Time) bool {
		ce, le := strings.TrimSpace(c.Email), strings.TrimSpace(l.Email)
		return ce != "" && le != "" && strings.EqualFold(ce, le)
	}},
	{ReasonNameAndSimilarPhone, func(c entity.LeadCandidate, l *entity.Lead, _ time.Time) bool {
		if entity.NormalizeName(c.Name) != entity.NormalizeName(l.Name) {
			return false
		}
		tail := entity.PhoneTail(c.Phone, phoneTailLen)
		return tail != "" && tail == entity.PhoneTail(l.Phone, phoneTailLen)
	}},
	{ReasonSameNameWithinHour, func(c entity.LeadCandidate, l *entity.Lead, now time.Time) bool {
		return entity.NormalizeName(c.Name) == entity.NormalizeName(l.Name) &&
			withinWindow(l.CreatedAt, now)
	}},
	// Kept after the name-only rule to preserve the observed priority order,
	// even though a name+phone match implies a name match.
	{ReasonSameNamePhoneWithinHour, func(c entity.LeadCandidate, l *entity.Lead, now time.Time) bool {
		return entity.NormalizeName(c.Name) == entity.NormalizeName(l.Name) &&
			entity.NormalizePhone(c.Phone) == entity.NormalizePhone(l.Phone) &&
			withinWindow(l.CreatedAt, now)
	}},
}

// Decide evaluates the candidate against a snapshot of existing leads. Pure:
// it reads, decides and persists nothing.
func Decide(candidate entity.LeadCandidate, existing []*entity.Lead, now time.Time) Verdict {
	for _, rule := range dedupRules {
		for _, lead := range existing {
			if rule.match(candidate, lead, now) {
				return Verdict{Create: false, Reason: rule.reason, Matched: lead}
			}
		}
	}
	return Verdict{Create: true}
}

// withinWindow: wall-clock delta under one hour, not calendar day.
func withinWindow(createdAt, now time.Time) bool {
	delta := now.Sub(createdAt)
	return delta >= 0 && delta <= duplicateWindow
}
