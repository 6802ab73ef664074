package domain

import "time"

// RoutingLog is an immutable audit entry for one applied routing action.
type RoutingLog struct {
	ID                string
	TicketID          string
	RoutingRuleID     string
	RuleName          string
	ActionTaken       string
	MatchedConditions RuleConditions
	CreatedAt         time.Time
}
