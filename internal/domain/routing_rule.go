package domain

import "time"

// RuleActionType is the closed set of routing actions.
type RuleActionType string

const (
	ActionAssignToAgent RuleActionType = "ASSIGN_TO_AGENT"
	ActionAssignToGroup RuleActionType = "ASSIGN_TO_GROUP"
	ActionSetPriority   RuleActionType = "SET_PRIORITY"
	ActionAddTag        RuleActionType = "ADD_TAG"
	ActionSetCategory   RuleActionType = "SET_CATEGORY"
)

// RuleConditions groups the optional condition sets of a routing rule.
// An absent (empty) group always passes; all present groups must pass.
type RuleConditions struct {
	Keywords   []string `json:"keywords,omitempty"`
	IssueTypes []string `json:"issue_types,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Contexts   []string `json:"context,omitempty"`
	Priorities []string `json:"priority,omitempty"`
}

// Empty reports whether no condition group is present.
func (c RuleConditions) Empty() bool {
	return len(c.Keywords) == 0 && len(c.IssueTypes) == 0 && len(c.Tags) == 0 &&
		len(c.Contexts) == 0 && len(c.Priorities) == 0
}

// RoutingRule routes tickets by ordered evaluation. Higher Priority values
// are evaluated first; every matching rule's action is applied, so later
// rules can overwrite fields set by earlier ones.
type RoutingRule struct {
	ID             string
	OrganizationID *string
	Name           string
	Priority       int
	IsActive       bool
	Conditions     RuleConditions
	ActionType     RuleActionType
	ActionValue    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
