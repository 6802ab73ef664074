package mail

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Fetcher retrieves raw messages from a mailbox provider. Implementations
// wrap whatever transport the account uses; the poller only depends on this
// interface.
type Fetcher interface {
	// Fetch returns messages received after the cursor, oldest first, at
	// most limit of them.
	Fetch(ctx context.Context, account *domain.EmailAccount, since time.Time, limit int) ([]*domain.InboundMessage, error)
}

// NoopFetcher is the default when no mailbox transport is configured. Intake
// then happens through the webhook endpoint only.
type NoopFetcher struct{}

func (NoopFetcher) Fetch(context.Context, *domain.EmailAccount, time.Time, int) ([]*domain.InboundMessage, error) {
	return nil, nil
}
