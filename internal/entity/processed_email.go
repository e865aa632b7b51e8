package entity

import "time"

// ProcessedEmail is one row of the idempotency ledger. A message claimed with
// a nil LeadID was seen but produced no lead (parse failure or duplicate
// handled elsewhere); the row still blocks reprocessing.
type ProcessedEmail struct {
	SourceMessageID string    `json:"source_message_id"`
	LeadID          *string   `json:"lead_id,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
	ProcessedBy     string    `json:"processed_by"`
}
