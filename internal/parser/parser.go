// Package parser extracts lead candidates from the labeled-field notification
// emails the campaign platform sends ("label: value", one field per line).
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eladlevy/leadgate/internal/entity"
)

// ErrParseFailure marks a message body missing the mandatory name or phone
// fields. The caller still records the message in the ledger so it is never
// fetched again.
var ErrParseFailure = errors.New("message is missing mandatory lead fields")

type field int

const (
	fieldName field = iota
	fieldPhone
	fieldAddress
	fieldNotes
	fieldCampaign
	fieldOperator
)

// One known format: Hebrew labels as sent by the campaign platform, plus the
// latin aliases that show up when the operator console is set to English.
var labelAliases = map[string]field{
	"שם":       fieldName,
	"name":     fieldName,
	"נייד":     fieldPhone,
	"טלפון":    fieldPhone,
	"mobile":   fieldPhone,
	"phone":    fieldPhone,
	"כתובת":    fieldAddress,
	"address":  fieldAddress,
	"הערות":    fieldNotes,
	"notes":    fieldNotes,
	"קמפיין":   fieldCampaign,
	"campaign": fieldCampaign,
	"נציג":     fieldOperator,
	"operator": fieldOperator,
}

// Parse extracts a LeadCandidate from a message body. Campaign and operator
// tags, when present, are prepended to the notes as separate lines and never
// overwrite the free-text notes field.
func Parse(body string) (entity.LeadCandidate, error) {
	var values [6]string

	for _, line := range strings.Split(body, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		f, known := labelAliases[strings.ToLower(strings.TrimSpace(label))]
		if !known {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		// first occurrence wins
		if values[f] == "" {
			values[f] = value
		}
	}

	candidate := entity.LeadCandidate{
		Name:    values[fieldName],
		Phone:   entity.NormalizePhone(values[fieldPhone]),
		Address: values[fieldAddress],
		Notes:   composeNotes(values[fieldCampaign], values[fieldOperator], values[fieldNotes]),
		Source:  values[fieldCampaign],
	}

	if err := candidate.Validate(); err != nil {
		return entity.LeadCandidate{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	return candidate, nil
}

func composeNotes(campaign, operator, notes string) string {
	var lines []string
	if campaign != "" {
		lines = append(lines, "Campaign: "+campaign)
	}
	if operator != "" {
		lines = append(lines, "Operator: "+operator)
	}
	if notes != "" {
		lines = append(lines, notes)
	}
	return strings.Join(lines, "\n")
}
