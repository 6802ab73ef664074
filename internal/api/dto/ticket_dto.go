package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SubmitTicketRequest is the web-form intake payload.
type SubmitTicketRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

// AgentReplyRequest payload.
type AgentReplyRequest struct {
	Body string `json:"body"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentEmail string `json:"agent_email"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	Comment string `json:"comment"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	Context       string                `json:"context"`
	Subject       string                `json:"subject"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	AssignedTo    *string               `json:"assigned_to"`
	AssignedGroup *string               `json:"assigned_group"`
	Category      *string               `json:"category"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides the full thread.
type TicketDetailResponse struct {
	TicketSummary
	OwnerUserID     *string                 `json:"owner_user_id"`
	SLAID           *string                 `json:"sla_id"`
	FirstResponseAt *time.Time              `json:"first_response_at"`
	ResolvedAt      *time.Time              `json:"resolved_at"`
	Tags            []string                `json:"tags"`
	Messages        []TicketMessageResponse `json:"messages"`
	Emails          []EmailMessageResponse  `json:"emails"`
}

// TicketMessageResponse represents one thread message.
type TicketMessageResponse struct {
	ID        string               `json:"id"`
	Sender    domain.MessageSender `json:"sender"`
	AuthorID  *string              `json:"author_id"`
	Body      string               `json:"body"`
	CreatedAt time.Time            `json:"created_at"`
}

// EmailMessageResponse represents one stored email in thread order.
type EmailMessageResponse struct {
	ID             string                `json:"id"`
	MessageID      string                `json:"message_id"`
	Subject        string                `json:"subject"`
	FromAddress    string                `json:"from_address"`
	Direction      domain.EmailDirection `json:"direction"`
	Status         domain.EmailStatus    `json:"status"`
	ThreadPosition int                   `json:"thread_position"`
	ReceivedAt     time.Time             `json:"received_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		Context:       t.Context,
		Subject:       t.Subject,
		Status:        t.Status,
		Priority:      t.Priority,
		AssignedTo:    t.AssignedTo,
		AssignedGroup: t.AssignedGroup,
		Category:      t.Category,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}
