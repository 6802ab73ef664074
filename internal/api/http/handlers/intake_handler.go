package handlers

import (
	"bytes"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/service"
)

// IntakeHandler receives raw inbound email, typically from a provider
// webhook, and runs it through the intake pipeline.
type IntakeHandler struct {
	parser *mail.Parser
	intake *service.IntakeService
	poller *service.PollerService
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(parser *mail.Parser, intake *service.IntakeService, poller *service.PollerService) *IntakeHandler {
	return &IntakeHandler{parser: parser, intake: intake, poller: poller}
}

// ReceiveEmail handles POST /intake/email with a raw RFC 5322 body.
func (h *IntakeHandler) ReceiveEmail(c *fiber.Ctx) error {
	raw := c.Body()
	if len(raw) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty message body")
	}

	msg, err := h.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "unparseable message: "+err.Error())
	}

	var accountID *string
	if id := c.Query("account_id"); id != "" {
		accountID = &id
	}

	result, err := h.intake.ProcessInbound(c.UserContext(), msg, accountID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.IntakeResponse{
		Outcome:        result.Outcome,
		TicketID:       result.TicketID,
		Filtered:       result.Filtered,
		Classification: dto.NewClassificationResponse(result.Classification),
	}})
}

// PollNow handles POST /intake/poll and triggers an immediate polling pass.
func (h *IntakeHandler) PollNow(c *fiber.Ctx) error {
	summary, err := h.poller.PollAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"accounts_polled": summary.AccountsPolled,
		"fetched":         summary.Fetched,
		"processed":       summary.Processed,
		"failed":          summary.Failed,
	}})
}
