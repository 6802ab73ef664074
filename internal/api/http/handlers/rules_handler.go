package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// RulesHandler is the admin surface for routing rules.
type RulesHandler struct {
	rules *service.RuleService
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.RuleService) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// Create handles POST /rules.
func (h *RulesHandler) Create(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	rule := &domain.RoutingRule{
		Name:        req.Name,
		Priority:    req.Priority,
		IsActive:    true,
		Conditions:  req.Conditions,
		ActionType:  domain.RuleActionType(strings.ToUpper(req.ActionType)),
		ActionValue: req.ActionValue,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if err := h.rules.CreateRule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

// Update handles PUT /rules/:id.
func (h *RulesHandler) Update(c *fiber.Ctx) error {
	var req dto.RuleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	rule, err := h.rules.GetRule(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	rule.Name = req.Name
	rule.Priority = req.Priority
	rule.Conditions = req.Conditions
	rule.ActionType = domain.RuleActionType(strings.ToUpper(req.ActionType))
	rule.ActionValue = req.ActionValue
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if err := h.rules.UpdateRule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

// Delete handles DELETE /rules/:id.
func (h *RulesHandler) Delete(c *fiber.Ctx) error {
	if err := h.rules.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// List handles GET /rules.
func (h *RulesHandler) List(c *fiber.Ctx) error {
	var orgID *string
	if id := c.Query("organization_id"); id != "" {
		orgID = &id
	}
	rules, err := h.rules.ListRules(c.UserContext(), orgID)
	if err != nil {
		return err
	}
	result := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		result = append(result, dto.NewRuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}
