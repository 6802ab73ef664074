package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// TicketDependencies wires the ticket service.
type TicketDependencies struct {
	Tickets        repository.TicketRepository
	TicketMessages repository.TicketMessageRepository
	EmailMessages  repository.EmailMessageRepository
	Tags           repository.TagRepository
	Users          repository.UserRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketService covers the agent-facing ticket surface: reads, replies,
// assignment and closing.
type TicketService struct {
	tickets        repository.TicketRepository
	ticketMessages repository.TicketMessageRepository
	emailMessages  repository.EmailMessageRepository
	tags           repository.TagRepository
	users          repository.UserRepository
	dispatcher     events.Dispatcher
	logger         *zap.Logger
}

// NewTicketService instantiates the ticket service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:        deps.Tickets,
		ticketMessages: deps.TicketMessages,
		emailMessages:  deps.EmailMessages,
		tags:           deps.Tags,
		users:          deps.Users,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
	}
}

// TicketThread bundles everything an agent sees when opening a ticket.
type TicketThread struct {
	Ticket   *domain.Ticket
	Messages []domain.TicketMessage
	Emails   []domain.EmailMessage
	Tags     []string
}

// TicketStats is the admin dashboard aggregate.
type TicketStats struct {
	Total         int64
	Open          int64
	HumanAssigned int64
	Closed        int64
}

func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return ticket, nil
}

func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetThread returns the ticket with its conversation and raw email trail in
// thread order.
func (s *TicketService) GetThread(ctx context.Context, id string) (*TicketThread, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	messages, err := s.ticketMessages.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	emails, err := s.emailMessages.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.ListTicketTagNames(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TicketThread{Ticket: ticket, Messages: messages, Emails: emails, Tags: tags}, nil
}

// AddAgentReply records an agent response. The first agent reply stamps the
// ticket's first response time, which the SLA tracker reads.
func (s *TicketService) AddAgentReply(ctx context.Context, ticketID, agentID, body string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, util.NewValidationError("reply body is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}

	msg := &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderAgent,
		AuthorID: &agentID,
		Body:     body,
	}
	if err := s.ticketMessages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if ticket.FirstResponseAt == nil {
		now := time.Now().UTC()
		ticket.FirstResponseAt = &now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		Actor:     events.Actor{Role: domain.RoleAgent, UserID: &agentID},
		Timestamp: time.Now().UTC(),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			Sender:      domain.SenderAgent,
			BodyPreview: truncate(body, 120),
		},
	})
	return msg, nil
}

// AssignTicket hands a ticket to an agent identified by email.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, agentEmail string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	agent, err := s.users.FindAgentByEmail(ctx, agentEmail)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, util.NewNotFound("agent", map[string]any{"email": agentEmail})
	}

	oldStatus := ticket.Status
	ticket.AssignedTo = &agent.ID
	ticket.Status = domain.TicketStatusHumanAssigned
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload:   events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
	})
	if oldStatus != ticket.Status {
		s.publishStatusChange(ctx, ticket, oldStatus, "")
	}
	return ticket, nil
}

// CloseTicket resolves a ticket and stamps its resolution time. Closing a
// closed ticket is a no-op.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}

	oldStatus := ticket.Status
	now := time.Now().UTC()
	ticket.Status = domain.TicketStatusClosed
	ticket.ResolvedAt = &now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if comment != "" {
		if err := s.ticketMessages.Create(ctx, &domain.TicketMessage{
			TicketID: ticket.ID,
			Sender:   domain.SenderSystem,
			Body:     comment,
		}); err != nil {
			s.logger.Warn("failed to record closing comment", zap.Error(err))
		}
	}
	s.publishStatusChange(ctx, ticket, oldStatus, comment)
	return ticket, nil
}

// Stats aggregates ticket counts for the admin dashboard.
func (s *TicketService) Stats(ctx context.Context) (*TicketStats, error) {
	total, err := s.tickets.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.tickets.CountByStatus(ctx, domain.TicketStatusOpen)
	if err != nil {
		return nil, err
	}
	assigned, err := s.tickets.CountByStatus(ctx, domain.TicketStatusHumanAssigned)
	if err != nil {
		return nil, err
	}
	closed, err := s.tickets.CountByStatus(ctx, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	return &TicketStats{Total: total, Open: open, HumanAssigned: assigned, Closed: closed}, nil
}

func (s *TicketService) publishStatusChange(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, comment string) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
}
