package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// RoutingLogRepository stores routing audit entries.
type RoutingLogRepository interface {
	Create(ctx context.Context, entry *domain.RoutingLog) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.RoutingLog, error)
}

type routingLogRepository struct {
	pool *pgxpool.Pool
}

// NewRoutingLogRepository instantiates repository.
func NewRoutingLogRepository(pool *pgxpool.Pool) RoutingLogRepository {
	return &routingLogRepository{pool: pool}
}

func (r *routingLogRepository) Create(ctx context.Context, entry *domain.RoutingLog) error {
	matched, err := json.Marshal(entry.MatchedConditions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO routing_logs (ticket_id, routing_rule_id, rule_name, action_taken, matched_conditions)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.RoutingRuleID,
		entry.RuleName,
		entry.ActionTaken,
		matched,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *routingLogRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.RoutingLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, ticket_id, routing_rule_id, rule_name, action_taken, matched_conditions, created_at
        FROM routing_logs WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingLog
	for rows.Next() {
		var entry domain.RoutingLog
		var matched []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.RoutingRuleID,
			&entry.RuleName,
			&entry.ActionTaken,
			&matched,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(matched) > 0 {
			if err := json.Unmarshal(matched, &entry.MatchedConditions); err != nil {
				return nil, err
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
