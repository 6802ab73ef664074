package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RoutingRuleRepository manages routing rule persistence.
type RoutingRuleRepository interface {
	Create(ctx context.Context, rule *domain.RoutingRule) error
	Update(ctx context.Context, rule *domain.RoutingRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.RoutingRule, error)
	// ListActive returns active rules in evaluation order: priority
	// descending, creation order ascending on ties. Organization-scoped
	// rules when orgID is set, global rules otherwise.
	ListActive(ctx context.Context, orgID *string) ([]domain.RoutingRule, error)
	List(ctx context.Context, orgID *string) ([]domain.RoutingRule, error)
}

type routingRuleRepository struct {
	pool *pgxpool.Pool
}

// NewRoutingRuleRepository instantiates repository.
func NewRoutingRuleRepository(pool *pgxpool.Pool) RoutingRuleRepository {
	return &routingRuleRepository{pool: pool}
}

func (r *routingRuleRepository) Create(ctx context.Context, rule *domain.RoutingRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO routing_rules (organization_id, name, priority, is_active, conditions, action_type, action_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.OrganizationID,
		rule.Name,
		rule.Priority,
		rule.IsActive,
		conditions,
		rule.ActionType,
		rule.ActionValue,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *routingRuleRepository) Update(ctx context.Context, rule *domain.RoutingRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}
	const query = `
        UPDATE routing_rules SET name=$1, priority=$2, is_active=$3, conditions=$4,
            action_type=$5, action_value=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Priority,
		rule.IsActive,
		conditions,
		rule.ActionType,
		rule.ActionValue,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) GetByID(ctx context.Context, id string) (*domain.RoutingRule, error) {
	const query = `
        SELECT id, organization_id, name, priority, is_active, conditions, action_type, action_value, created_at, updated_at
        FROM routing_rules WHERE id=$1`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &rules[0], nil
}

func (r *routingRuleRepository) ListActive(ctx context.Context, orgID *string) ([]domain.RoutingRule, error) {
	const query = `
        SELECT id, organization_id, name, priority, is_active, conditions, action_type, action_value, created_at, updated_at
        FROM routing_rules
        WHERE is_active=TRUE AND organization_id IS NOT DISTINCT FROM $1
        ORDER BY priority DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *routingRuleRepository) List(ctx context.Context, orgID *string) ([]domain.RoutingRule, error) {
	const query = `
        SELECT id, organization_id, name, priority, is_active, conditions, action_type, action_value, created_at, updated_at
        FROM routing_rules
        WHERE organization_id IS NOT DISTINCT FROM $1
        ORDER BY priority DESC, created_at ASC`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]domain.RoutingRule, error) {
	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		var conditions []byte
		if err := rows.Scan(
			&rule.ID,
			&rule.OrganizationID,
			&rule.Name,
			&rule.Priority,
			&rule.IsActive,
			&conditions,
			&rule.ActionType,
			&rule.ActionValue,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(conditions) > 0 {
			if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
				return nil, err
			}
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}
