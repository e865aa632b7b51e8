package entity

import "time"

// WatchState tracks the mailbox push subscription lifecycle.
type WatchState string

const (
	WatchInactive WatchState = "INACTIVE"
	WatchPending  WatchState = "PENDING"
	WatchActive   WatchState = "ACTIVE"
	WatchExpired  WatchState = "EXPIRED"
)

// WatchSubscription holds the push registration for one mailbox, including
// the history cursor the pipeline resumes from.
type WatchSubscription struct {
	AccountEmail string     `json:"account_email"`
	HistoryID    string     `json:"history_id"`
	Expiration   time.Time  `json:"expiration"`
	State        WatchState `json:"state"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TokenSet is the stored OAuth credential pair for one mailbox.
type TokenSet struct {
	AccountEmail string    `json:"account_email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
}
