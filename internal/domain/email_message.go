package domain

import "time"

// EmailDirection distinguishes received mail from sent mail.
type EmailDirection string

const (
	DirectionInbound  EmailDirection = "INBOUND"
	DirectionOutbound EmailDirection = "OUTBOUND"
)

// EmailStatus tracks what happened to a stored email.
type EmailStatus string

const (
	EmailStatusReceived EmailStatus = "RECEIVED"
	EmailStatusFiltered EmailStatus = "FILTERED"
	EmailStatusSent     EmailStatus = "SENT"
)

// EmailMessage is one email linked to a ticket thread. The message_id
// uniqueness constraint is the deduplication invariant; ThreadPosition is
// strictly increasing and gapless within a ticket.
type EmailMessage struct {
	ID             string
	TicketID       *string
	EmailAccountID *string
	MessageID      string
	InReplyTo      string
	Subject        string
	FromAddress    string
	ToAddresses    []string
	CcAddresses    []string
	BodyText       string
	BodyHTML       string
	Direction      EmailDirection
	Status         EmailStatus
	ThreadPosition int
	ReceivedAt     time.Time
	CreatedAt      time.Time
}
