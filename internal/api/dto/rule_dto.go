package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RuleRequest payload for creating or updating a routing rule.
type RuleRequest struct {
	Name        string                `json:"name"`
	Priority    int                   `json:"priority"`
	IsActive    *bool                 `json:"is_active"`
	Conditions  domain.RuleConditions `json:"conditions"`
	ActionType  string                `json:"action_type"`
	ActionValue string                `json:"action_value"`
}

// RuleResponse mirrors a stored rule.
type RuleResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Priority    int                   `json:"priority"`
	IsActive    bool                  `json:"is_active"`
	Conditions  domain.RuleConditions `json:"conditions"`
	ActionType  domain.RuleActionType `json:"action_type"`
	ActionValue string                `json:"action_value"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewRuleResponse maps a domain rule.
func NewRuleResponse(rule *domain.RoutingRule) RuleResponse {
	return RuleResponse{
		ID:          rule.ID,
		Name:        rule.Name,
		Priority:    rule.Priority,
		IsActive:    rule.IsActive,
		Conditions:  rule.Conditions,
		ActionType:  rule.ActionType,
		ActionValue: rule.ActionValue,
		CreatedAt:   rule.CreatedAt,
		UpdatedAt:   rule.UpdatedAt,
	}
}

// RoutingLogResponse is one audit entry.
type RoutingLogResponse struct {
	ID                string                `json:"id"`
	RoutingRuleID     string                `json:"routing_rule_id"`
	RuleName          string                `json:"rule_name"`
	ActionTaken       string                `json:"action_taken"`
	MatchedConditions domain.RuleConditions `json:"matched_conditions"`
	CreatedAt         time.Time             `json:"created_at"`
}
