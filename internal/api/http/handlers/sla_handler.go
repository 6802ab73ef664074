package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// SLAHandler is the admin surface for SLA definitions.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: sla}
}

// Create handles POST /sla-definitions.
func (h *SLAHandler) Create(c *fiber.Ctx) error {
	var req dto.SLADefinitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	priority, valid := domain.ParsePriority(req.Priority)
	if !valid {
		return fiber.NewError(http.StatusBadRequest, "invalid priority")
	}

	def := &domain.SLADefinition{
		Name:                  req.Name,
		Priority:              priority,
		ResponseTimeMinutes:   req.ResponseTimeMinutes,
		ResolutionTimeMinutes: req.ResolutionTimeMinutes,
		BusinessHoursOnly:     req.BusinessHoursOnly,
		BusinessStartHour:     req.BusinessStartHour,
		BusinessEndHour:       req.BusinessEndHour,
		IsActive:              true,
	}
	for _, day := range req.BusinessDays {
		if day < 0 || day > 6 {
			return fiber.NewError(http.StatusBadRequest, "business_days must be 0 (Sunday) through 6 (Saturday)")
		}
		def.BusinessDays = append(def.BusinessDays, time.Weekday(day))
	}
	if req.IsActive != nil {
		def.IsActive = *req.IsActive
	}
	if err := h.sla.CreateDefinition(c.UserContext(), def); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSLADefinitionResponse(def)})
}

// List handles GET /sla-definitions.
func (h *SLAHandler) List(c *fiber.Ctx) error {
	defs, err := h.sla.ListDefinitions(c.UserContext())
	if err != nil {
		return err
	}
	result := make([]dto.SLADefinitionResponse, 0, len(defs))
	for i := range defs {
		result = append(result, dto.NewSLADefinitionResponse(&defs[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}
