package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
)

// RoutingDependencies wires the routing engine.
type RoutingDependencies struct {
	Rules          repository.RoutingRuleRepository
	Logs           repository.RoutingLogRepository
	Tickets        repository.TicketRepository
	TicketMessages repository.TicketMessageRepository
	Tags           repository.TagRepository
	Users          repository.UserRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// RoutingService evaluates active routing rules against a ticket and applies
// the actions of every matching rule. Rules are evaluated in descending
// priority, so a later (lower priority) rule can overwrite a field an
// earlier one set.
type RoutingService struct {
	rules          repository.RoutingRuleRepository
	logs           repository.RoutingLogRepository
	tickets        repository.TicketRepository
	ticketMessages repository.TicketMessageRepository
	tags           repository.TagRepository
	users          repository.UserRepository
	dispatcher     events.Dispatcher
	logger         *zap.Logger
}

// NewRoutingService instantiates the routing engine.
func NewRoutingService(deps RoutingDependencies) *RoutingService {
	return &RoutingService{
		rules:          deps.Rules,
		logs:           deps.Logs,
		tickets:        deps.Tickets,
		ticketMessages: deps.TicketMessages,
		tags:           deps.Tags,
		users:          deps.Users,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
	}
}

// RoutingOutcome summarizes one routing pass.
type RoutingOutcome struct {
	RulesEvaluated int
	RulesMatched   int
	ActionsTaken   []string
}

// ApplyRules runs every active rule against the ticket. A failing action is
// skipped and logged; it never aborts the pass. Re-running the pass on an
// unchanged ticket is safe: assignments and field sets converge and tag
// attachment is a no-op on conflict.
func (s *RoutingService) ApplyRules(ctx context.Context, ticketID string) (*RoutingOutcome, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}

	rules, err := s.rules.ListActive(ctx, ticket.OrganizationID)
	if err != nil {
		return nil, err
	}
	outcome := &RoutingOutcome{RulesEvaluated: len(rules)}
	if len(rules) == 0 {
		return outcome, nil
	}

	searchText, err := s.buildSearchText(ctx, ticket)
	if err != nil {
		return nil, err
	}
	ticketTags, err := s.tags.ListTicketTagNames(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	dirty := false
	for _, rule := range rules {
		matched, err := s.ruleMatches(ctx, rule, ticket, searchText, ticketTags)
		if err != nil {
			s.logger.Warn("rule condition evaluation failed",
				zap.String("rule_id", rule.ID), zap.Error(err))
			continue
		}
		if !matched {
			continue
		}

		changed, err := s.applyAction(ctx, rule, ticket)
		if err != nil {
			s.logger.Warn("routing action failed",
				zap.String("rule_id", rule.ID),
				zap.String("action", string(rule.ActionType)),
				zap.String("value", rule.ActionValue),
				zap.Error(err))
			continue
		}
		if changed {
			dirty = true
		}

		actionTaken := fmt.Sprintf("%s: %s", rule.ActionType, rule.ActionValue)
		outcome.RulesMatched++
		outcome.ActionsTaken = append(outcome.ActionsTaken, actionTaken)

		if err := s.logs.Create(ctx, &domain.RoutingLog{
			TicketID:          ticket.ID,
			RoutingRuleID:     rule.ID,
			RuleName:          rule.Name,
			ActionTaken:       actionTaken,
			MatchedConditions: rule.Conditions,
		}); err != nil {
			s.logger.Warn("failed to record routing log", zap.Error(err))
		}
	}

	if dirty {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketRouted,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketRoutedPayload{
			RulesEvaluated: outcome.RulesEvaluated,
			RulesMatched:   outcome.RulesMatched,
		},
	})
	return outcome, nil
}

func (s *RoutingService) buildSearchText(ctx context.Context, ticket *domain.Ticket) (string, error) {
	messages, err := s.ticketMessages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(strings.ToLower(ticket.Subject))
	for _, msg := range messages {
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(msg.Body))
	}
	sb.WriteString(" ")
	sb.WriteString(strings.ToLower(ticket.Context))
	return sb.String(), nil
}

// ruleMatches applies AND semantics across condition groups and OR within a
// group. A rule with no conditions matches every ticket.
func (s *RoutingService) ruleMatches(ctx context.Context, rule domain.RoutingRule, ticket *domain.Ticket, searchText string, ticketTags []string) (bool, error) {
	cond := rule.Conditions

	if len(cond.Keywords) > 0 {
		if !anyContained(searchText, cond.Keywords) {
			return false, nil
		}
	}

	if len(cond.IssueTypes) > 0 {
		category := ""
		if ticket.Category != nil {
			category = strings.ToLower(*ticket.Category)
		}
		ticketContext := strings.ToLower(ticket.Context)
		found := false
		for _, issueType := range cond.IssueTypes {
			needle := strings.ToLower(issueType)
			if strings.Contains(category, needle) || strings.Contains(ticketContext, needle) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	if len(cond.Tags) > 0 {
		if !anyEqualFold(ticketTags, cond.Tags) {
			return false, nil
		}
	}

	if len(cond.Contexts) > 0 {
		if !containsFold(cond.Contexts, ticket.Context) {
			return false, nil
		}
	}

	if len(cond.Priorities) > 0 {
		if !containsFold(cond.Priorities, string(ticket.Priority)) {
			return false, nil
		}
	}

	return true, nil
}

// applyAction mutates the in-memory ticket for field actions and reports
// whether a persist is needed. Tag attachment writes directly.
func (s *RoutingService) applyAction(ctx context.Context, rule domain.RoutingRule, ticket *domain.Ticket) (bool, error) {
	switch rule.ActionType {
	case domain.ActionAssignToAgent:
		agent, err := s.users.FindAgentByEmail(ctx, rule.ActionValue)
		if err != nil {
			return false, err
		}
		if agent == nil {
			return false, fmt.Errorf("agent not found: %s", rule.ActionValue)
		}
		ticket.AssignedTo = &agent.ID
		ticket.Status = domain.TicketStatusHumanAssigned
		s.publishAssignment(ctx, ticket, rule.ID)
		return true, nil

	case domain.ActionAssignToGroup:
		group := strings.TrimSpace(rule.ActionValue)
		if group == "" {
			return false, fmt.Errorf("empty group name")
		}
		ticket.AssignedGroup = &group
		return true, nil

	case domain.ActionSetPriority:
		priority, ok := domain.ParsePriority(rule.ActionValue)
		if !ok {
			return false, fmt.Errorf("invalid priority: %s", rule.ActionValue)
		}
		if ticket.Priority == priority {
			return false, nil
		}
		oldPriority := ticket.Priority
		ticket.Priority = priority
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketPriorityChanged,
			TicketID:  ticket.ID,
			Timestamp: time.Now().UTC(),
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: priority,
			},
		})
		return true, nil

	case domain.ActionAddTag:
		tag, err := s.tags.GetByName(ctx, rule.ActionValue)
		if err != nil {
			return false, err
		}
		if tag == nil {
			return false, fmt.Errorf("tag not found: %s", rule.ActionValue)
		}
		return false, s.tags.AttachTicketTag(ctx, ticket.ID, tag.ID)

	case domain.ActionSetCategory:
		category := rule.ActionValue
		ticket.Category = &category
		return true, nil
	}
	return false, fmt.Errorf("unknown action type: %s", rule.ActionType)
}

func (s *RoutingService) publishAssignment(ctx context.Context, ticket *domain.Ticket, ruleID string) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketAssignedPayload{
			AssignedTo: ticket.AssignedTo,
			RuleID:     &ruleID,
		},
	})
}

func anyContained(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

func anyEqualFold(values, candidates []string) bool {
	for _, candidate := range candidates {
		for _, value := range values {
			if strings.EqualFold(value, candidate) {
				return true
			}
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
