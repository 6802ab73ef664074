package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const slaColumns = `id, name, priority, response_time_minutes, resolution_time_minutes,
        business_hours_only, business_start_hour, business_end_hour, business_days, is_active, created_at`

// SLARepository manages SLA definitions.
type SLARepository interface {
	Create(ctx context.Context, def *domain.SLADefinition) error
	GetByID(ctx context.Context, id string) (*domain.SLADefinition, error)
	// ActiveByPriority returns the most recently created active definition
	// for the priority, or nil when none exists.
	ActiveByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLADefinition, error)
	List(ctx context.Context) ([]domain.SLADefinition, error)
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

func (r *slaRepository) Create(ctx context.Context, def *domain.SLADefinition) error {
	const query = `
        INSERT INTO sla_definitions
            (name, priority, response_time_minutes, resolution_time_minutes,
             business_hours_only, business_start_hour, business_end_hour, business_days, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	days := weekdaysToInts(def.BusinessDays)
	return r.pool.QueryRow(ctx, query,
		def.Name,
		def.Priority,
		def.ResponseTimeMinutes,
		def.ResolutionTimeMinutes,
		def.BusinessHoursOnly,
		def.BusinessStartHour,
		def.BusinessEndHour,
		days,
		def.IsActive,
	).Scan(&def.ID, &def.CreatedAt)
}

func (r *slaRepository) GetByID(ctx context.Context, id string) (*domain.SLADefinition, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_definitions WHERE id=$1`
	def, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

func (r *slaRepository) ActiveByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLADefinition, error) {
	query := `SELECT ` + slaColumns + `
        FROM sla_definitions
        WHERE priority=$1 AND is_active=true
        ORDER BY created_at DESC
        LIMIT 1`
	def, err := r.scanOne(r.pool.QueryRow(ctx, query, priority))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLADefinition, error) {
	query := `SELECT ` + slaColumns + ` FROM sla_definitions ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []domain.SLADefinition
	for rows.Next() {
		def, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

func (r *slaRepository) scanOne(row pgx.Row) (*domain.SLADefinition, error) {
	var def domain.SLADefinition
	var days []int
	if err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Priority,
		&def.ResponseTimeMinutes,
		&def.ResolutionTimeMinutes,
		&def.BusinessHoursOnly,
		&def.BusinessStartHour,
		&def.BusinessEndHour,
		&days,
		&def.IsActive,
		&def.CreatedAt,
	); err != nil {
		return nil, err
	}
	def.BusinessDays = intsToWeekdays(days)
	return &def, nil
}

func weekdaysToInts(days []time.Weekday) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, int(d))
	}
	return out
}

func intsToWeekdays(days []int) []time.Weekday {
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}
