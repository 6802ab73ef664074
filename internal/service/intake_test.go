package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

type intakeFixture struct {
	svc            *IntakeService
	tickets        *fakeTicketRepo
	emails         *fakeEmailMessageRepo
	ticketMessages *fakeTicketMessageRepo
	users          *fakeUserRepo
	slas           *fakeSLARepo
	rules          *fakeRuleRepo
	dispatcher     *fakeDispatcher
	metrics        *observability.Metrics
}

func newIntakeFixture(cfg config.IntakeConfig) *intakeFixture {
	f := &intakeFixture{
		tickets:        newFakeTicketRepo(),
		emails:         newFakeEmailMessageRepo(),
		ticketMessages: &fakeTicketMessageRepo{},
		users:          newFakeUserRepo(),
		slas:           &fakeSLARepo{},
		rules:          &fakeRuleRepo{},
		dispatcher:     &fakeDispatcher{},
		metrics:        observability.NewMetrics(),
	}
	logger := zap.NewNop()

	threading := NewThreadingService(ThreadingDependencies{
		EmailMessages: f.emails,
		Tickets:       f.tickets,
		Redis:         nil,
		Config:        cfg,
		Logger:        logger,
	})
	classifier := NewClassifierService(ClassifierDependencies{
		Resolver: threading,
		Config:   cfg,
		Logger:   logger,
	})
	routing := NewRoutingService(RoutingDependencies{
		Rules:          f.rules,
		Logs:           &fakeRoutingLogRepo{},
		Tickets:        f.tickets,
		TicketMessages: f.ticketMessages,
		Tags:           newFakeTagRepo(),
		Users:          f.users,
		Dispatcher:     f.dispatcher,
		Logger:         logger,
	})
	f.svc = NewIntakeService(IntakeDependencies{
		Tickets:        f.tickets,
		EmailMessages:  f.emails,
		TicketMessages: f.ticketMessages,
		Users:          f.users,
		SLAs:           f.slas,
		Classifier:     classifier,
		Threading:      threading,
		Routing:        routing,
		Dispatcher:     f.dispatcher,
		Metrics:        f.metrics,
		Config:         cfg,
		Logger:         logger,
	})
	return f
}

func legitimateMessage(messageID string) *domain.InboundMessage {
	return &domain.InboundMessage{
		Subject:     "Re: Printer on floor 3 is broken",
		FromAddress: "casey@customer.example.com",
		MessageID:   messageID,
		BodyText:    "The printer near the kitchen shows a paper jam error even though there is no jam. Can someone take a look?",
	}
}

func TestProcessInboundCreatesTicket(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{SpamFilterEnabled: true})

	result, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<first@example.com>"), nil)
	require.NoError(t, err)

	assert.Equal(t, "created", result.Outcome)
	require.NotEmpty(t, result.TicketID)

	ticket, err := f.tickets.GetByID(context.Background(), result.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Printer on floor 3 is broken", ticket.Subject) // reply prefix stripped
	assert.Equal(t, "email", ticket.Context)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)

	emails, err := f.emails.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, 1, emails[0].ThreadPosition)
	assert.Equal(t, domain.DirectionInbound, emails[0].Direction)

	messages, err := f.ticketMessages.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, strings.HasPrefix(messages[0].Body, "Email received from casey@customer.example.com:\n\n"))

	created := f.dispatcher.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)
}

func TestProcessInboundDuplicateMessageIsIdempotent(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	first, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<dup@example.com>"), nil)
	require.NoError(t, err)
	second, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<dup@example.com>"), nil)
	require.NoError(t, err)

	assert.Equal(t, "created", first.Outcome)
	assert.Equal(t, "duplicate", second.Outcome)
	assert.Equal(t, first.TicketID, second.TicketID)

	count, err := f.tickets.CountAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	snapshot := f.metrics.IntakeSnapshot()
	assert.EqualValues(t, 1, snapshot["created"])
	assert.EqualValues(t, 1, snapshot["duplicate"])
}

func TestProcessInboundThreadsReplyIntoExistingTicket(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	first, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<root@example.com>"), nil)
	require.NoError(t, err)

	reply := legitimateMessage("<reply@example.com>")
	reply.Subject = "Some unrelated subject line"
	reply.InReplyTo = "<root@example.com>"
	second, err := f.svc.ProcessInbound(context.Background(), reply, nil)
	require.NoError(t, err)

	assert.Equal(t, "threaded", second.Outcome)
	assert.Equal(t, first.TicketID, second.TicketID)

	emails, err := f.emails.ListByTicket(context.Background(), first.TicketID)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, 2, emails[1].ThreadPosition)

	count, err := f.tickets.CountAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestProcessInboundSameSubjectWithoutReplyChainOpensNewTicket(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	first, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<alice@example.com>"), nil)
	require.NoError(t, err)

	// A different stranger, same subject, no reply headers. Their mail
	// must never land in the first sender's ticket.
	other := legitimateMessage("<bob@example.com>")
	other.FromAddress = "bob@elsewhere.example.org"
	second, err := f.svc.ProcessInbound(context.Background(), other, nil)
	require.NoError(t, err)

	assert.Equal(t, "created", second.Outcome)
	require.NotEqual(t, first.TicketID, second.TicketID)

	count, err := f.tickets.CountAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestProcessInboundFiltersSpamFromUnknownSender(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{
		SpamFilterEnabled:   true,
		LogFilteredMessages: true,
	})

	long := strings.Repeat("Claim your prize now! ", 60)
	result, err := f.svc.ProcessInbound(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		MessageID:   "<spam@example.com>",
		BodyText:    long,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "filtered", result.Outcome)
	assert.True(t, result.Filtered)
	require.NotNil(t, result.Classification)
	assert.True(t, result.Classification.IsSpam)

	count, err := f.tickets.CountAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// The audit record keeps a truncated copy of the body.
	require.Len(t, f.emails.filtered, 1)
	assert.Equal(t, domain.EmailStatusFiltered, f.emails.filtered[0].Status)
	assert.LessOrEqual(t, len(f.emails.filtered[0].BodyText), 500)

	filtered := f.dispatcher.ofType(events.EventMessageFiltered)
	require.Len(t, filtered, 1)
}

func TestProcessInboundRegisteredSenderBypassesFilter(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{SpamFilterEnabled: true})
	require.NoError(t, f.users.Create(context.Background(), &domain.User{
		Name:   "Known Customer",
		Email:  "stranger@example.com",
		Role:   domain.RoleEndUser,
		Status: domain.UserStatusActive,
	}))

	result, err := f.svc.ProcessInbound(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		MessageID:   "<notspam@example.com>",
		BodyText:    "claim your prize",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "created", result.Outcome)
	assert.False(t, result.Filtered)

	ticket, err := f.tickets.GetByID(context.Background(), result.TicketID)
	require.NoError(t, err)
	require.NotNil(t, ticket.OwnerUserID)
}

func TestProcessInboundSpamReplyToKnownThreadIsAccepted(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{SpamFilterEnabled: true})

	first, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<root@example.com>"), nil)
	require.NoError(t, err)

	result, err := f.svc.ProcessInbound(context.Background(), &domain.InboundMessage{
		Subject:     "Congratulations you won a prize",
		FromAddress: "stranger@example.com",
		MessageID:   "<followup@example.com>",
		InReplyTo:   "<root@example.com>",
		BodyText:    "claim your prize",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "threaded", result.Outcome)
	assert.Equal(t, first.TicketID, result.TicketID)
}

func TestProcessInboundAttachesSLA(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})
	require.NoError(t, f.slas.Create(context.Background(), &domain.SLADefinition{
		Name:                  "standard",
		Priority:              domain.TicketPriorityMedium,
		ResponseTimeMinutes:   60,
		ResolutionTimeMinutes: 480,
		IsActive:              true,
	}))

	result, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<sla@example.com>"), nil)
	require.NoError(t, err)

	ticket, err := f.tickets.GetByID(context.Background(), result.TicketID)
	require.NoError(t, err)
	require.NotNil(t, ticket.SLAID)
	assert.Equal(t, "sla-1", *ticket.SLAID)
}

func TestProcessInboundEmptySubjectFallback(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	msg := legitimateMessage("<nosubject@example.com>")
	msg.Subject = "Re: "
	result, err := f.svc.ProcessInbound(context.Background(), msg, nil)
	require.NoError(t, err)

	ticket, err := f.tickets.GetByID(context.Background(), result.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Email from casey@customer.example.com", ticket.Subject)
}

func TestProcessInboundRejectsMissingSender(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	_, err := f.svc.ProcessInbound(context.Background(), &domain.InboundMessage{
		Subject:  "No envelope sender",
		BodyText: "body",
	}, nil)
	require.Error(t, err)
}

func TestProcessInboundRunsRoutingOnlyForNewTickets(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})
	require.NoError(t, f.rules.Create(context.Background(), &domain.RoutingRule{
		Name:        "always urgent",
		Priority:    5,
		IsActive:    true,
		ActionType:  domain.ActionSetPriority,
		ActionValue: "URGENT",
	}))

	first, err := f.svc.ProcessInbound(context.Background(), legitimateMessage("<route1@example.com>"), nil)
	require.NoError(t, err)
	routedAfterFirst := len(f.dispatcher.ofType(events.EventTicketRouted))
	assert.Equal(t, 1, routedAfterFirst)

	reply := legitimateMessage("<route2@example.com>")
	reply.InReplyTo = "<route1@example.com>"
	second, err := f.svc.ProcessInbound(context.Background(), reply, nil)
	require.NoError(t, err)
	assert.Equal(t, "threaded", second.Outcome)
	assert.Equal(t, first.TicketID, second.TicketID)

	// The routing pass did not run a second time.
	assert.Equal(t, routedAfterFirst, len(f.dispatcher.ofType(events.EventTicketRouted)))
}

func TestSubmitWebFormCreatesAndReusesTicket(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})
	owner := &domain.User{Name: "Casey", Email: "casey@customer.example.com", Role: domain.RoleEndUser, Status: domain.UserStatusActive}
	require.NoError(t, f.users.Create(context.Background(), owner))

	first, err := f.svc.SubmitWebForm(context.Background(), owner.ID, "Laptop will not boot", "It shows a black screen on power up.", domain.TicketPriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, "created", first.Outcome)

	ticket, err := f.tickets.GetByID(context.Background(), first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "web_form", ticket.Context)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	require.NotNil(t, ticket.OwnerUserID)
	assert.Equal(t, owner.ID, *ticket.OwnerUserID)

	second, err := f.svc.SubmitWebForm(context.Background(), owner.ID, "Re: Laptop will not boot", "Still broken after a reboot.", "")
	require.NoError(t, err)
	assert.Equal(t, "threaded", second.Outcome)
	assert.Equal(t, first.TicketID, second.TicketID)

	messages, err := f.ticketMessages.ListByTicket(context.Background(), first.TicketID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestSubmitWebFormValidation(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	_, err := f.svc.SubmitWebForm(context.Background(), "user-1", "", "body", "")
	require.Error(t, err)

	_, err = f.svc.SubmitWebForm(context.Background(), "user-1", "subject", "", "")
	require.Error(t, err)
}

func TestSubmitWebFormDoesNotReuseOtherOwnersTicket(t *testing.T) {
	f := newIntakeFixture(config.IntakeConfig{})

	first, err := f.svc.SubmitWebForm(context.Background(), "user-1", "Shared subject", "body one", "")
	require.NoError(t, err)
	second, err := f.svc.SubmitWebForm(context.Background(), "user-2", "Shared subject", "body two", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.TicketID, second.TicketID)
}
