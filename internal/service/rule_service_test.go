package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func newRuleService(tags *fakeTagRepo) (*RuleService, *fakeRuleRepo) {
	rules := &fakeRuleRepo{}
	if tags == nil {
		tags = newFakeTagRepo()
	}
	svc := NewRuleService(RuleDependencies{Rules: rules, Tags: tags, Logger: zap.NewNop()})
	return svc, rules
}

func TestCreateRuleValidation(t *testing.T) {
	svc, _ := newRuleService(nil)

	tests := []struct {
		name string
		rule domain.RoutingRule
	}{
		{"missing name", domain.RoutingRule{ActionType: domain.ActionSetCategory, ActionValue: "x"}},
		{"missing action value", domain.RoutingRule{Name: "r", ActionType: domain.ActionSetCategory}},
		{"unknown action type", domain.RoutingRule{Name: "r", ActionType: "DO_SOMETHING", ActionValue: "x"}},
		{"bad priority value", domain.RoutingRule{Name: "r", ActionType: domain.ActionSetPriority, ActionValue: "WHENEVER"}},
		{"unknown tag", domain.RoutingRule{Name: "r", ActionType: domain.ActionAddTag, ActionValue: "ghost"}},
		{"bad priority condition", domain.RoutingRule{
			Name: "r", ActionType: domain.ActionSetCategory, ActionValue: "x",
			Conditions: domain.RuleConditions{Priorities: []string{"SOMETIMES"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			assert.Error(t, svc.CreateRule(context.Background(), &rule))
		})
	}
}

func TestCreateRuleAcceptsValidRule(t *testing.T) {
	tags := newFakeTagRepo()
	require.NoError(t, tags.Create(context.Background(), &domain.Tag{Name: "billing"}))
	svc, rules := newRuleService(tags)

	rule := &domain.RoutingRule{
		Name:        "tag billing",
		Priority:    5,
		IsActive:    true,
		Conditions:  domain.RuleConditions{Keywords: []string{"invoice"}, Priorities: []string{"high"}},
		ActionType:  domain.ActionAddTag,
		ActionValue: "billing",
	}
	require.NoError(t, svc.CreateRule(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)

	stored, err := rules.GetByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "tag billing", stored.Name)
}

func TestUpdateRuleRequiresID(t *testing.T) {
	svc, _ := newRuleService(nil)

	err := svc.UpdateRule(context.Background(), &domain.RoutingRule{
		Name:        "no id",
		ActionType:  domain.ActionSetCategory,
		ActionValue: "x",
	})
	require.Error(t, err)
}

func TestDeleteRule(t *testing.T) {
	svc, rules := newRuleService(nil)
	rule := &domain.RoutingRule{Name: "r", ActionType: domain.ActionSetCategory, ActionValue: "x"}
	require.NoError(t, svc.CreateRule(context.Background(), rule))

	require.NoError(t, svc.DeleteRule(context.Background(), rule.ID))

	listed, err := rules.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
