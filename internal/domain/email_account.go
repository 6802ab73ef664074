package domain

import "time"

// EmailAccount is a configured mailbox the poller reads from and the
// service sends through. Credentials live with the mail transport.
type EmailAccount struct {
	ID           string
	Email        string
	DisplayName  string
	Provider     string
	IsActive     bool
	IsDefault    bool
	PollEnabled  bool
	LastPolledAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
