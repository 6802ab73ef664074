package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TicketsHandler exposes the ticket surface for end users and agents.
type TicketsHandler struct {
	tickets *service.TicketService
	intake  *service.IntakeService
	routing *service.RoutingService
	sla     *service.SLAService
	logs    repository.RoutingLogRepository
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(
	tickets *service.TicketService,
	intake *service.IntakeService,
	routing *service.RoutingService,
	sla *service.SLAService,
	logs repository.RoutingLogRepository,
) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, intake: intake, routing: routing, sla: sla, logs: logs}
}

// Submit handles POST /tickets for the authenticated web form.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	priority := domain.TicketPriorityMedium
	if strings.TrimSpace(req.Priority) != "" {
		parsed, valid := domain.ParsePriority(req.Priority)
		if !valid {
			return fiber.NewError(http.StatusBadRequest, "invalid priority")
		}
		priority = parsed
	}

	result, err := h.intake.SubmitWebForm(c.UserContext(), principal.User.ID, req.Subject, req.Body, priority)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.IntakeResponse{
		Outcome:  result.Outcome,
		TicketID: result.TicketID,
	}})
}

// List handles GET /tickets. End users see their own tickets; agents see all.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}

	filter := repository.TicketFilter{
		Limit:  c.QueryInt("page_size", 20),
		Offset: (c.QueryInt("page", 1) - 1) * c.QueryInt("page_size", 20),
	}
	if !principal.Role.CanBeAssigned() {
		ownerID := principal.User.ID
		filter.OwnerUserID = &ownerID
	}
	if status := c.Query("status"); status != "" {
		filter.Statuses = []domain.TicketStatus{domain.TicketStatus(strings.ToUpper(status))}
	}
	if priority := c.Query("priority"); priority != "" {
		parsed, valid := domain.ParsePriority(priority)
		if !valid {
			return fiber.NewError(http.StatusBadRequest, "invalid priority filter")
		}
		filter.Priorities = []domain.TicketPriority{parsed}
	}
	if ticketContext := c.Query("context"); ticketContext != "" {
		filter.Context = &ticketContext
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}

	tickets, err := h.tickets.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	summaries := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		summaries = append(summaries, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// Get handles GET /tickets/:id and returns the full thread.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	thread, err := h.tickets.GetThread(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.authorizeRead(c, thread.Ticket); err != nil {
		return err
	}

	detail := dto.TicketDetailResponse{
		TicketSummary:   dto.NewTicketSummary(thread.Ticket),
		OwnerUserID:     thread.Ticket.OwnerUserID,
		SLAID:           thread.Ticket.SLAID,
		FirstResponseAt: thread.Ticket.FirstResponseAt,
		ResolvedAt:      thread.Ticket.ResolvedAt,
		Tags:            thread.Tags,
	}
	for _, msg := range thread.Messages {
		detail.Messages = append(detail.Messages, dto.TicketMessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			AuthorID:  msg.AuthorID,
			Body:      msg.Body,
			CreatedAt: msg.CreatedAt,
		})
	}
	for _, email := range thread.Emails {
		detail.Emails = append(detail.Emails, dto.EmailMessageResponse{
			ID:             email.ID,
			MessageID:      email.MessageID,
			Subject:        email.Subject,
			FromAddress:    email.FromAddress,
			Direction:      email.Direction,
			Status:         email.Status,
			ThreadPosition: email.ThreadPosition,
			ReceivedAt:     email.ReceivedAt,
		})
	}
	return c.JSON(fiber.Map{"data": detail})
}

// Reply handles POST /tickets/:id/reply for agents.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	var req dto.AgentReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	msg, err := h.tickets.AddAgentReply(c.UserContext(), c.Params("id"), principal.User.ID, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketMessageResponse{
		ID:        msg.ID,
		Sender:    msg.Sender,
		AuthorID:  msg.AuthorID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}})
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.AgentEmail == "" {
		return fiber.NewError(http.StatusBadRequest, "agent_email required")
	}

	ticket, err := h.tickets.AssignTicket(c.UserContext(), c.Params("id"), req.AgentEmail)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Close handles POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req dto.CloseTicketRequest
	_ = c.BodyParser(&req)

	ticket, err := h.tickets.CloseTicket(c.UserContext(), c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// SLAStatus handles GET /tickets/:id/sla.
func (h *TicketsHandler) SLAStatus(c *fiber.Ctx) error {
	status, err := h.sla.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAStatusResponse(status)})
}

// RoutingLogs handles GET /tickets/:id/routing-logs.
func (h *TicketsHandler) RoutingLogs(c *fiber.Ctx) error {
	entries, err := h.logs.ListByTicket(c.UserContext(), c.Params("id"), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	result := make([]dto.RoutingLogResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, dto.RoutingLogResponse{
			ID:                entry.ID,
			RoutingRuleID:     entry.RoutingRuleID,
			RuleName:          entry.RuleName,
			ActionTaken:       entry.ActionTaken,
			MatchedConditions: entry.MatchedConditions,
			CreatedAt:         entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": result})
}

// Reroute handles POST /tickets/:id/route and re-runs the rule pass.
func (h *TicketsHandler) Reroute(c *fiber.Ctx) error {
	outcome, err := h.routing.ApplyRules(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"rules_evaluated": outcome.RulesEvaluated,
		"rules_matched":   outcome.RulesMatched,
		"actions_taken":   outcome.ActionsTaken,
	}})
}

// Stats handles GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.tickets.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"total":          stats.Total,
		"open":           stats.Open,
		"human_assigned": stats.HumanAssigned,
		"closed":         stats.Closed,
	}})
}

func (h *TicketsHandler) authorizeRead(c *fiber.Ctx, ticket *domain.Ticket) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	if principal.Role.CanBeAssigned() {
		return nil
	}
	if ticket.OwnerUserID != nil && *ticket.OwnerUserID == principal.User.ID {
		return nil
	}
	return fiber.NewError(http.StatusForbidden, "not your ticket")
}
