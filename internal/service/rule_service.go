package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// RuleDependencies wires the rule admin service.
type RuleDependencies struct {
	Rules  repository.RoutingRuleRepository
	Tags   repository.TagRepository
	Logger *zap.Logger
}

// RuleService is the admin surface for routing rules. Validation happens
// here so the engine can assume stored rules are well formed.
type RuleService struct {
	rules  repository.RoutingRuleRepository
	tags   repository.TagRepository
	logger *zap.Logger
}

// NewRuleService instantiates the rule admin service.
func NewRuleService(deps RuleDependencies) *RuleService {
	return &RuleService{rules: deps.Rules, tags: deps.Tags, logger: deps.Logger}
}

func (s *RuleService) CreateRule(ctx context.Context, rule *domain.RoutingRule) error {
	if err := s.validate(ctx, rule); err != nil {
		return err
	}
	return s.rules.Create(ctx, rule)
}

func (s *RuleService) UpdateRule(ctx context.Context, rule *domain.RoutingRule) error {
	if rule.ID == "" {
		return util.NewValidationError("rule id is required", nil)
	}
	if err := s.validate(ctx, rule); err != nil {
		return err
	}
	return s.rules.Update(ctx, rule)
}

func (s *RuleService) DeleteRule(ctx context.Context, id string) error {
	return s.rules.Delete(ctx, id)
}

func (s *RuleService) GetRule(ctx context.Context, id string) (*domain.RoutingRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return rule, nil
}

func (s *RuleService) ListRules(ctx context.Context, orgID *string) ([]domain.RoutingRule, error) {
	return s.rules.List(ctx, orgID)
}

func (s *RuleService) validate(ctx context.Context, rule *domain.RoutingRule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return util.NewValidationError("rule name is required", nil)
	}
	if strings.TrimSpace(rule.ActionValue) == "" {
		return util.NewValidationError("action value is required", nil)
	}

	switch rule.ActionType {
	case domain.ActionAssignToAgent, domain.ActionAssignToGroup, domain.ActionSetCategory:
	case domain.ActionSetPriority:
		if _, ok := domain.ParsePriority(rule.ActionValue); !ok {
			return util.NewValidationError("invalid priority value", map[string]any{"value": rule.ActionValue})
		}
	case domain.ActionAddTag:
		tag, err := s.tags.GetByName(ctx, rule.ActionValue)
		if err != nil {
			return err
		}
		if tag == nil {
			return util.NewValidationError("tag does not exist", map[string]any{"tag": rule.ActionValue})
		}
	default:
		return util.NewValidationError("unknown action type", map[string]any{"action_type": string(rule.ActionType)})
	}

	for _, priority := range rule.Conditions.Priorities {
		if _, ok := domain.ParsePriority(priority); !ok {
			return util.NewValidationError("invalid priority condition", map[string]any{"value": priority})
		}
	}
	return nil
}
