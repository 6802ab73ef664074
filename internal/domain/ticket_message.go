package domain

import "time"

// MessageSender indicates who authored a conversation message.
type MessageSender string

const (
	SenderCustomer MessageSender = "CUSTOMER"
	SenderAgent    MessageSender = "AGENT"
	SenderSystem   MessageSender = "SYSTEM"
)

// TicketMessage captures one entry in a ticket's conversation thread.
type TicketMessage struct {
	ID        string
	TicketID  string
	Sender    MessageSender
	AuthorID  *string
	Body      string
	CreatedAt time.Time
}
