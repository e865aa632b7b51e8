package entity

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// LeadCandidate is an extracted, not-yet-persisted lead awaiting a duplicate decision.
type LeadCandidate struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Validate: without name and phone the candidate can never become a lead.
func (c *LeadCandidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}

type Lead struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Source          string    `json:"source,omitempty"`
	AssignedAgentID string    `json:"assigned_agent_id,omitempty"`
	RelevanceStatus string    `json:"relevance_status"` // PENDING, RELEVANT, IRRELEVANT
	Status          string    `json:"status"`           // NEW, IN_PROGRESS, CLOSED
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizePhone strips spaces and dashes and restores the local trunk prefix:
// a 9-digit number that does not start with 0 becomes the canonical 10-digit
// form ("501234567" -> "0501234567").
func NormalizePhone(phone string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if len(cleaned) == 9 && isDigits(cleaned) && cleaned[0] != '0' {
		cleaned = "0" + cleaned
	}
	return cleaned
}

// NormalizeName trims, collapses internal whitespace and case-folds.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// PhoneTail returns the trailing n digits of the phone, used to match numbers
// that differ only in prefix formatting. Empty if the number has fewer digits.
func PhoneTail(phone string, n int) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if len(digits) < n {
		return ""
	}
	return digits[len(digits)-n:]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
