package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrDuplicateMessage signals that a message id was already ingested. The
// caller must treat this as success and reuse the existing ticket.
var ErrDuplicateMessage = errors.New("email message already ingested")

// EmailMessageRepository manages the per-ticket email index. The
// message_id unique constraint plus the transactional append enforce the
// deduplication and thread-position invariants at the persistence boundary.
type EmailMessageRepository interface {
	// Append stores an inbound/outbound email on a ticket, assigning the
	// next thread position atomically. Returns ErrDuplicateMessage when the
	// message id already exists; msg.ThreadPosition is populated on success.
	Append(ctx context.Context, msg *domain.EmailMessage) error
	// InsertFiltered records a filtered message for audit; no ticket link.
	InsertFiltered(ctx context.Context, msg *domain.EmailMessage) error
	// GetByMessageID returns (nil, nil) when the message id is unknown;
	// an unseen id is an expected outcome, not an error.
	GetByMessageID(ctx context.Context, messageID string) (*domain.EmailMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.EmailMessage, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type emailMessageRepository struct {
	pool *pgxpool.Pool
}

// NewEmailMessageRepository builds repository.
func NewEmailMessageRepository(pool *pgxpool.Pool) EmailMessageRepository {
	return &emailMessageRepository{pool: pool}
}

const emailColumns = `id, ticket_id, email_account_id, message_id, in_reply_to, subject,
        from_address, to_addresses, cc_addresses, body_text, body_html,
        direction, status, thread_position, received_at, created_at`

func (r *emailMessageRepository) Append(ctx context.Context, msg *domain.EmailMessage) error {
	if msg.TicketID == nil {
		return errors.New("append requires a ticket id")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Serialize appends per ticket so concurrent deliveries cannot claim
	// the same thread position.
	if _, err := tx.Exec(ctx, `SELECT id FROM tickets WHERE id=$1 FOR UPDATE`, *msg.TicketID); err != nil {
		return err
	}

	var position int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM email_messages WHERE ticket_id=$1`, *msg.TicketID,
	).Scan(&position); err != nil {
		return err
	}
	msg.ThreadPosition = position + 1

	const insert = `
        INSERT INTO email_messages (ticket_id, email_account_id, message_id, in_reply_to, subject,
            from_address, to_addresses, cc_addresses, body_text, body_html,
            direction, status, thread_position, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (message_id) DO NOTHING
        RETURNING id, created_at`
	err = tx.QueryRow(ctx, insert,
		msg.TicketID,
		msg.EmailAccountID,
		msg.MessageID,
		msg.InReplyTo,
		msg.Subject,
		msg.FromAddress,
		msg.ToAddresses,
		msg.CcAddresses,
		msg.BodyText,
		msg.BodyHTML,
		msg.Direction,
		msg.Status,
		msg.ThreadPosition,
		msg.ReceivedAt,
	).Scan(&msg.ID, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Another delivery won the unique-constraint race.
		return ErrDuplicateMessage
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *emailMessageRepository) InsertFiltered(ctx context.Context, msg *domain.EmailMessage) error {
	const insert = `
        INSERT INTO email_messages (ticket_id, email_account_id, message_id, in_reply_to, subject,
            from_address, to_addresses, cc_addresses, body_text, body_html,
            direction, status, thread_position, received_at)
        VALUES (NULL,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,0,$12)
        ON CONFLICT (message_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, insert,
		msg.EmailAccountID,
		msg.MessageID,
		msg.InReplyTo,
		msg.Subject,
		msg.FromAddress,
		msg.ToAddresses,
		msg.CcAddresses,
		msg.BodyText,
		msg.BodyHTML,
		msg.Direction,
		msg.Status,
		msg.ReceivedAt,
	).Scan(&msg.ID, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateMessage
	}
	return err
}

func (r *emailMessageRepository) GetByMessageID(ctx context.Context, messageID string) (*domain.EmailMessage, error) {
	query := `SELECT ` + emailColumns + ` FROM email_messages WHERE message_id=$1`
	var msg domain.EmailMessage
	if err := r.pool.QueryRow(ctx, query, messageID).Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.EmailAccountID,
		&msg.MessageID,
		&msg.InReplyTo,
		&msg.Subject,
		&msg.FromAddress,
		&msg.ToAddresses,
		&msg.CcAddresses,
		&msg.BodyText,
		&msg.BodyHTML,
		&msg.Direction,
		&msg.Status,
		&msg.ThreadPosition,
		&msg.ReceivedAt,
		&msg.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *emailMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.EmailMessage, error) {
	query := `SELECT ` + emailColumns + ` FROM email_messages
        WHERE ticket_id=$1 ORDER BY thread_position ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailMessage
	for rows.Next() {
		var msg domain.EmailMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.EmailAccountID,
			&msg.MessageID,
			&msg.InReplyTo,
			&msg.Subject,
			&msg.FromAddress,
			&msg.ToAddresses,
			&msg.CcAddresses,
			&msg.BodyText,
			&msg.BodyHTML,
			&msg.Direction,
			&msg.Status,
			&msg.ThreadPosition,
			&msg.ReceivedAt,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *emailMessageRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM email_messages WHERE ticket_id=$1`, ticketID,
	).Scan(&count)
	return count, err
}
