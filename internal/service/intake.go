package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

const (
	filteredBodyLimit   = 500
	ticketMessageLimit  = 1000
	contextEmail        = "email"
	contextWebForm      = "web_form"
	intakeOutcomeNew    = "created"
	intakeOutcomeThread = "threaded"
	intakeOutcomeDupe   = "duplicate"
	intakeOutcomeFilter = "filtered"
)

// IntakeDependencies wires the intake pipeline.
type IntakeDependencies struct {
	Tickets        repository.TicketRepository
	EmailMessages  repository.EmailMessageRepository
	TicketMessages repository.TicketMessageRepository
	Users          repository.UserRepository
	SLAs           repository.SLARepository
	Classifier     *ClassifierService
	Threading      *ThreadingService
	Routing        *RoutingService
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Config         config.IntakeConfig
	Logger         *zap.Logger
}

// IntakeService is the pipeline that turns inbound email into tickets:
// classification, dedup, thread resolution, ticket creation, routing.
type IntakeService struct {
	tickets        repository.TicketRepository
	emailMessages  repository.EmailMessageRepository
	ticketMessages repository.TicketMessageRepository
	users          repository.UserRepository
	slas           repository.SLARepository
	classifier     *ClassifierService
	threading      *ThreadingService
	routing        *RoutingService
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	cfg            config.IntakeConfig
	logger         *zap.Logger
}

// NewIntakeService instantiates the intake pipeline.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	return &IntakeService{
		tickets:        deps.Tickets,
		emailMessages:  deps.EmailMessages,
		ticketMessages: deps.TicketMessages,
		users:          deps.Users,
		slas:           deps.SLAs,
		classifier:     deps.Classifier,
		threading:      deps.Threading,
		routing:        deps.Routing,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		cfg:            deps.Config,
		logger:         deps.Logger,
	}
}

// IntakeResult describes what the pipeline did with one inbound message.
type IntakeResult struct {
	Outcome        string
	TicketID       string
	Filtered       bool
	Classification *domain.ClassificationResult
}

// ProcessInbound runs the full pipeline for one parsed email. Redelivered
// messages resolve to the ticket that first absorbed them; the call is
// idempotent on message id.
func (s *IntakeService) ProcessInbound(ctx context.Context, msg *domain.InboundMessage, accountID *string) (*IntakeResult, error) {
	if msg.FromAddress == "" {
		return nil, util.NewValidationError("message has no sender address", nil)
	}

	// Thread and dedup resolution happens before classification so a
	// redelivery never re-runs the filter.
	resolution, err := s.threading.Resolve(ctx, msg)
	if err != nil {
		return nil, err
	}
	if resolution.Duplicate {
		s.record(intakeOutcomeDupe)
		return &IntakeResult{Outcome: intakeOutcomeDupe, TicketID: resolution.TicketID}, nil
	}

	sender, err := s.users.GetByEmail(ctx, msg.FromAddress)
	if err != nil {
		return nil, err
	}

	if s.cfg.SpamFilterEnabled && sender == nil {
		filtered, classification := s.classifier.ShouldFilter(ctx, msg)
		if filtered {
			s.handleFiltered(ctx, msg, accountID, classification)
			s.record(intakeOutcomeFilter)
			return &IntakeResult{
				Outcome:        intakeOutcomeFilter,
				Filtered:       true,
				Classification: &classification,
			}, nil
		}
	}

	ticket := (*domain.Ticket)(nil)
	outcome := intakeOutcomeThread
	if resolution.TicketID != "" {
		ticket, err = s.tickets.GetByID(ctx, resolution.TicketID)
		if err != nil {
			return nil, err
		}
	}
	if ticket == nil {
		// Email only threads through reply chains. Matching on subject
		// would merge unrelated senders' mail into one ticket.
		cleanSubject := NormalizeSubject(msg.Subject)
		if cleanSubject == "" {
			cleanSubject = "Email from " + msg.FromAddress
		}
		var ownerID *string
		if sender != nil {
			ownerID = &sender.ID
		}
		ticket, err = s.createTicket(ctx, cleanSubject, ownerID, sender)
		if err != nil {
			return nil, err
		}
		outcome = intakeOutcomeNew
	}

	emailMsg := &domain.EmailMessage{
		TicketID:       &ticket.ID,
		EmailAccountID: accountID,
		MessageID:      msg.MessageID,
		InReplyTo:      msg.InReplyTo,
		Subject:        msg.Subject,
		FromAddress:    msg.FromAddress,
		ToAddresses:    msg.ToAddresses,
		CcAddresses:    msg.CcAddresses,
		BodyText:       msg.BodyText,
		BodyHTML:       msg.BodyHTML,
		Direction:      domain.DirectionInbound,
		Status:         domain.EmailStatusReceived,
		ReceivedAt:     time.Now().UTC(),
	}
	if err := s.emailMessages.Append(ctx, emailMsg); err != nil {
		if errors.Is(err, repository.ErrDuplicateMessage) {
			// Lost the race to another delivery of the same message.
			s.record(intakeOutcomeDupe)
			return &IntakeResult{Outcome: intakeOutcomeDupe, TicketID: ticket.ID}, nil
		}
		return nil, err
	}
	s.threading.Remember(ctx, msg.MessageID, ticket.ID)

	body := fmt.Sprintf("Email received from %s:\n\n%s", msg.FromAddress, truncate(msg.BodyText, ticketMessageLimit))
	ticketMsg := &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderCustomer,
		Body:     body,
	}
	if err := s.ticketMessages.Create(ctx, ticketMsg); err != nil {
		return nil, err
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketMessageAdded,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   ticketMsg.ID,
			Sender:      domain.SenderCustomer,
			BodyPreview: truncate(msg.BodyText, 120),
		},
	})

	if outcome == intakeOutcomeNew {
		if _, err := s.routing.ApplyRules(ctx, ticket.ID); err != nil {
			// Routing failure leaves the ticket unrouted, not unfiled.
			s.logger.Warn("routing pass failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.record(outcome)
	return &IntakeResult{Outcome: outcome, TicketID: ticket.ID}, nil
}

// SubmitWebForm files a request coming from the authenticated web form.
// Open tickets with the same subject and owner are reused instead of
// duplicated.
func (s *IntakeService) SubmitWebForm(ctx context.Context, ownerUserID, subject, body string, priority domain.TicketPriority) (*IntakeResult, error) {
	if subject == "" {
		return nil, util.NewValidationError("subject is required", nil)
	}
	if body == "" {
		return nil, util.NewValidationError("body is required", nil)
	}
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	cleanSubject := NormalizeSubject(subject)
	outcome := intakeOutcomeThread
	ticket, err := s.findOpenMatch(ctx, contextWebForm, cleanSubject, &ownerUserID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		ticket = &domain.Ticket{
			Context:     contextWebForm,
			Subject:     cleanSubject,
			Status:      domain.TicketStatusOpen,
			Priority:    priority,
			OwnerUserID: &ownerUserID,
		}
		if err := s.attachSLA(ctx, ticket); err != nil {
			return nil, err
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return nil, err
		}
		s.publishCreated(ctx, ticket, "web_form")
		outcome = intakeOutcomeNew
	}

	if err := s.ticketMessages.Create(ctx, &domain.TicketMessage{
		TicketID: ticket.ID,
		Sender:   domain.SenderCustomer,
		AuthorID: &ownerUserID,
		Body:     truncate(body, ticketMessageLimit),
	}); err != nil {
		return nil, err
	}

	if outcome == intakeOutcomeNew {
		if _, err := s.routing.ApplyRules(ctx, ticket.ID); err != nil {
			s.logger.Warn("routing pass failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.record(outcome)
	return &IntakeResult{Outcome: outcome, TicketID: ticket.ID}, nil
}

func (s *IntakeService) findOpenMatch(ctx context.Context, ticketContext, subject string, ownerID *string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindOpenMatch(ctx, ticketContext, subject, ownerID)
	if err != nil {
		domainErr := util.ToDomainError(err)
		if domainErr.Code == "NOT_FOUND" {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

func (s *IntakeService) createTicket(ctx context.Context, subject string, ownerID *string, sender *domain.User) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Context:     contextEmail,
		Subject:     subject,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		OwnerUserID: ownerID,
	}
	if sender != nil {
		ticket.OrganizationID = sender.OrganizationID
	}
	if err := s.attachSLA(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("created ticket from email",
		zap.String("ticket_id", ticket.ID),
		zap.String("subject", subject))
	s.publishCreated(ctx, ticket, "email")
	return ticket, nil
}

func (s *IntakeService) attachSLA(ctx context.Context, ticket *domain.Ticket) error {
	def, err := s.slas.ActiveByPriority(ctx, ticket.Priority)
	if err != nil {
		return err
	}
	if def != nil {
		ticket.SLAID = &def.ID
	}
	return nil
}

func (s *IntakeService) handleFiltered(ctx context.Context, msg *domain.InboundMessage, accountID *string, classification domain.ClassificationResult) {
	if s.cfg.LogFilteredMessages {
		filtered := &domain.EmailMessage{
			EmailAccountID: accountID,
			MessageID:      msg.MessageID,
			Subject:        msg.Subject,
			FromAddress:    msg.FromAddress,
			ToAddresses:    msg.ToAddresses,
			BodyText:       truncate(msg.BodyText, filteredBodyLimit),
			Direction:      domain.DirectionInbound,
			Status:         domain.EmailStatusFiltered,
			ReceivedAt:     time.Now().UTC(),
		}
		if err := s.emailMessages.InsertFiltered(ctx, filtered); err != nil && !errors.Is(err, repository.ErrDuplicateMessage) {
			s.logger.Warn("failed to log filtered email", zap.Error(err))
		}
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMessageFiltered,
		Timestamp: time.Now().UTC(),
		Payload: events.MessageFilteredPayload{
			MessageID:   msg.MessageID,
			FromAddress: msg.FromAddress,
			Category:    classification.Category,
			Reasons:     classification.Reasons,
		},
	})
}

func (s *IntakeService) publishCreated(ctx context.Context, ticket *domain.Ticket, source string) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketCreatedPayload{
			Context:  ticket.Context,
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
			Source:   source,
		},
	})
}

func (s *IntakeService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordIntake(outcome)
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
