package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TagRepository manages tags and ticket-tag links.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetByName(ctx context.Context, name string) (*domain.Tag, error)
	IDsByNames(ctx context.Context, names []string) (map[string]string, error)
	List(ctx context.Context) ([]domain.Tag, error)
	AttachTicketTag(ctx context.Context, ticketID, tagID string) error
	ListTicketTagNames(ctx context.Context, ticketID string) ([]string, error)
}

type tagRepository struct {
	pool *pgxpool.Pool
}

// NewTagRepository instantiates repository.
func NewTagRepository(pool *pgxpool.Pool) TagRepository {
	return &tagRepository{pool: pool}
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	const query = `INSERT INTO tags (name) VALUES ($1) RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(tag.Name))).Scan(&tag.ID, &tag.CreatedAt)
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	const query = `SELECT id, name, created_at FROM tags WHERE lower(name)=lower($1)`
	var tag domain.Tag
	err := r.pool.QueryRow(ctx, query, name).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

// IDsByNames resolves existing tag names to ids; missing names are absent
// from the returned map, not errors.
func (r *tagRepository) IDsByNames(ctx context.Context, names []string) (map[string]string, error) {
	result := make(map[string]string, len(names))
	if len(names) == 0 {
		return result, nil
	}
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(name)))
	}
	const query = `SELECT id, name FROM tags WHERE lower(name) = ANY($1)`
	rows, err := r.pool.Query(ctx, query, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[strings.ToLower(name)] = id
	}
	return result, rows.Err()
}

func (r *tagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	const query = `SELECT id, name, created_at FROM tags ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// AttachTicketTag links a tag to a ticket. Re-attaching the same tag is a
// no-op so routing rules can be re-applied safely.
func (r *tagRepository) AttachTicketTag(ctx context.Context, ticketID, tagID string) error {
	const query = `
        INSERT INTO ticket_tags (ticket_id, tag_id) VALUES ($1,$2)
        ON CONFLICT (ticket_id, tag_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, ticketID, tagID)
	return err
}

func (r *tagRepository) ListTicketTagNames(ctx context.Context, ticketID string) ([]string, error) {
	const query = `
        SELECT t.name FROM tags t
        JOIN ticket_tags tt ON tt.tag_id = t.id
        WHERE tt.ticket_id = $1
        ORDER BY t.name ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
