package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen          TicketStatus = "OPEN"
	TicketStatusHumanAssigned TicketStatus = "HUMAN_ASSIGNED"
	TicketStatusClosed        TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ParsePriority matches a priority value case-insensitively.
// Returns false when the value is not one of the four known priorities.
func ParsePriority(value string) (TicketPriority, bool) {
	switch p := TicketPriority(strings.ToUpper(strings.TrimSpace(value))); p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return p, true
	}
	return "", false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	OrganizationID  *string
	Context         string
	Subject         string
	Status          TicketStatus
	Priority        TicketPriority
	AssignedTo      *string
	AssignedGroup   *string
	SLAID           *string
	Category        *string
	OwnerUserID     *string
	CreatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	UpdatedAt       time.Time
}

// IsOpen reports whether the ticket still accepts intake activity.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}
