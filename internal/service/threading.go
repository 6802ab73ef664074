package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
)

var replyPrefixPattern = regexp.MustCompile(`(?i)^(?:\s*(?:re|fwd?|fw)\s*:\s*)+`)

// NormalizeSubject strips repeated reply and forward prefixes so threads can
// be matched on the underlying subject line.
func NormalizeSubject(subject string) string {
	return strings.TrimSpace(replyPrefixPattern.ReplaceAllString(subject, ""))
}

// ThreadingDependencies wires the threading service.
type ThreadingDependencies struct {
	EmailMessages repository.EmailMessageRepository
	Tickets       repository.TicketRepository
	Redis         *persistence.Redis
	Config        config.IntakeConfig
	Logger        *zap.Logger
}

// ThreadingService resolves which ticket, if any, an inbound message belongs
// to, and detects redelivered messages before the database does.
type ThreadingService struct {
	emailMessages repository.EmailMessageRepository
	tickets       repository.TicketRepository
	redis         *persistence.Redis
	cfg           config.IntakeConfig
	logger        *zap.Logger
}

// NewThreadingService instantiates the threading service.
func NewThreadingService(deps ThreadingDependencies) *ThreadingService {
	return &ThreadingService{
		emailMessages: deps.EmailMessages,
		tickets:       deps.Tickets,
		redis:         deps.Redis,
		cfg:           deps.Config,
		logger:        deps.Logger,
	}
}

// ThreadResolution is the outcome of resolving an inbound message against
// existing threads.
type ThreadResolution struct {
	// TicketID is set when the message continues an existing thread.
	TicketID string
	// Duplicate is set when this exact message id was already ingested;
	// TicketID then points at the ticket that absorbed it.
	Duplicate bool
}

// Resolve looks the message up by id and by reply headers. The cache is an
// optimization only; the unique constraint on message ids is authoritative
// and Append still guards against races.
func (s *ThreadingService) Resolve(ctx context.Context, msg *domain.InboundMessage) (ThreadResolution, error) {
	if msg.MessageID != "" {
		if ticketID, ok := s.redis.SeenTicket(ctx, msg.MessageID); ok {
			return ThreadResolution{TicketID: ticketID, Duplicate: true}, nil
		}
		existing, err := s.emailMessages.GetByMessageID(ctx, msg.MessageID)
		if err != nil {
			return ThreadResolution{}, err
		}
		if existing != nil {
			ticketID := ""
			if existing.TicketID != nil {
				ticketID = *existing.TicketID
			}
			return ThreadResolution{TicketID: ticketID, Duplicate: true}, nil
		}
	}

	// Walk In-Reply-To first, then References newest to oldest.
	candidates := make([]string, 0, len(msg.References)+1)
	if msg.InReplyTo != "" {
		candidates = append(candidates, msg.InReplyTo)
	}
	for i := len(msg.References) - 1; i >= 0; i-- {
		candidates = append(candidates, msg.References[i])
	}
	for _, candidate := range candidates {
		parent, err := s.emailMessages.GetByMessageID(ctx, candidate)
		if err != nil {
			return ThreadResolution{}, err
		}
		if parent != nil && parent.TicketID != nil {
			return ThreadResolution{TicketID: *parent.TicketID}, nil
		}
	}
	return ThreadResolution{}, nil
}

// Remember records the message id -> ticket binding in the fast-path cache.
func (s *ThreadingService) Remember(ctx context.Context, messageID, ticketID string) {
	ttl := s.cfg.DedupTTL()
	s.redis.RememberMessage(ctx, messageID, ticketID, ttl)
}

// KnownMessageID reports whether the given message id has been ingested.
// It lets the classifier treat replies into known threads as legitimate.
func (s *ThreadingService) KnownMessageID(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	if _, ok := s.redis.SeenTicket(ctx, messageID); ok {
		return true, nil
	}
	existing, err := s.emailMessages.GetByMessageID(ctx, messageID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}
