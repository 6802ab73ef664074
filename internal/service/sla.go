package service

import (
	"context"
	"time"

	"github.com/rickar/cal/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// SLADependencies wires the SLA tracker.
type SLADependencies struct {
	Tickets repository.TicketRepository
	SLAs    repository.SLARepository
	Logger  *zap.Logger
	// Now overrides the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// SLAService derives deadline status for tickets on demand. Nothing is
// persisted; violations are recomputed from the ticket timestamps and the
// applicable definition each time.
type SLAService struct {
	tickets repository.TicketRepository
	slas    repository.SLARepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewSLAService instantiates the SLA tracker.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &SLAService{
		tickets: deps.Tickets,
		slas:    deps.SLAs,
		logger:  deps.Logger,
		now:     now,
	}
}

// GetStatus computes the SLA report for a ticket. The bound definition wins;
// otherwise the active definition for the ticket's priority applies; with
// neither, the report is Defined=false.
func (s *SLAService) GetStatus(ctx context.Context, ticketID string) (*domain.SLAStatus, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}

	def, err := s.resolveDefinition(ctx, ticket)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return &domain.SLAStatus{Defined: false}, nil
	}
	return s.Evaluate(ticket, def), nil
}

// Evaluate computes the report for a known ticket and definition pair.
func (s *SLAService) Evaluate(ticket *domain.Ticket, def *domain.SLADefinition) *domain.SLAStatus {
	createdAt := ticket.CreatedAt.UTC()
	expectedResponse := s.deadline(def, createdAt, def.ResponseTimeMinutes)
	expectedResolution := s.deadline(def, createdAt, def.ResolutionTimeMinutes)

	status := &domain.SLAStatus{
		Defined:              true,
		DefinitionID:         def.ID,
		ExpectedResponseAt:   expectedResponse,
		ExpectedResolutionAt: expectedResolution,
		FirstResponseAt:      ticket.FirstResponseAt,
		ResolvedAt:           ticket.ResolvedAt,
	}
	status.Response = s.violation(expectedResponse, ticket.FirstResponseAt)
	status.Resolution = s.violation(expectedResolution, ticket.ResolvedAt)
	return status
}

// CreateDefinition validates and stores a new SLA definition.
func (s *SLAService) CreateDefinition(ctx context.Context, def *domain.SLADefinition) error {
	if def.Name == "" {
		return util.NewValidationError("name is required", nil)
	}
	if _, ok := domain.ParsePriority(string(def.Priority)); !ok {
		return util.NewValidationError("invalid priority", map[string]any{"priority": string(def.Priority)})
	}
	if def.ResponseTimeMinutes <= 0 || def.ResolutionTimeMinutes <= 0 {
		return util.NewValidationError("response and resolution minutes must be positive", nil)
	}
	if def.BusinessHoursOnly && def.BusinessEndHour <= def.BusinessStartHour {
		return util.NewValidationError("business end hour must be after start hour", nil)
	}
	return s.slas.Create(ctx, def)
}

// ListDefinitions returns all definitions, newest first.
func (s *SLAService) ListDefinitions(ctx context.Context) ([]domain.SLADefinition, error) {
	return s.slas.List(ctx)
}

func (s *SLAService) resolveDefinition(ctx context.Context, ticket *domain.Ticket) (*domain.SLADefinition, error) {
	if ticket.SLAID != nil {
		def, err := s.slas.GetByID(ctx, *ticket.SLAID)
		if err != nil {
			return nil, err
		}
		if def != nil {
			return def, nil
		}
		// A dangling binding falls back to the priority default.
		s.logger.Warn("ticket references missing sla definition",
			zap.String("ticket_id", ticket.ID),
			zap.String("sla_id", *ticket.SLAID))
	}
	return s.slas.ActiveByPriority(ctx, ticket.Priority)
}

// deadline adds the allowance to the start either on the wall clock or, for
// business-hours definitions, only across working hours.
func (s *SLAService) deadline(def *domain.SLADefinition, start time.Time, minutes int) time.Time {
	allowance := time.Duration(minutes) * time.Minute
	if !def.BusinessHoursOnly {
		return start.Add(allowance)
	}
	return businessCalendar(def).AddWorkHours(start, allowance)
}

// violation compares the deadline against what happened. A missed deadline
// with no event yet is live: its magnitude grows until the event occurs.
func (s *SLAService) violation(expected time.Time, actual *time.Time) *domain.SLAViolation {
	if actual != nil {
		if !actual.After(expected) {
			return nil
		}
		return &domain.SLAViolation{
			ExpectedAt:       expected,
			ActualAt:         actual,
			ViolationMinutes: actual.Sub(expected).Minutes(),
		}
	}
	now := s.now().UTC()
	if !now.After(expected) {
		return nil
	}
	return &domain.SLAViolation{
		ExpectedAt:       expected,
		ViolationMinutes: now.Sub(expected).Minutes(),
		Live:             true,
	}
}

func businessCalendar(def *domain.SLADefinition) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	workdays := map[time.Weekday]bool{}
	for _, day := range def.BusinessDays {
		workdays[day] = true
	}
	if len(workdays) == 0 {
		// Default to Monday through Friday.
		for day := time.Monday; day <= time.Friday; day++ {
			workdays[day] = true
		}
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		c.SetWorkday(day, workdays[day])
	}

	startHour := def.BusinessStartHour
	endHour := def.BusinessEndHour
	if endHour <= startHour {
		startHour, endHour = 9, 17
	}
	c.SetWorkHours(time.Duration(startHour)*time.Hour, time.Duration(endHour)*time.Hour)
	return c
}
