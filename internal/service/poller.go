package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// PollerDependencies wires the mailbox poller.
type PollerDependencies struct {
	Accounts repository.EmailAccountRepository
	Fetcher  mail.Fetcher
	Intake   *IntakeService
	Config   config.PollingConfig
	Logger   *zap.Logger
}

// PollerService drains configured mailboxes into the intake pipeline. The
// cursor on each account bounds how far back a poll reaches, so restarts
// never replay the whole mailbox.
type PollerService struct {
	accounts repository.EmailAccountRepository
	fetcher  mail.Fetcher
	intake   *IntakeService
	cfg      config.PollingConfig
	logger   *zap.Logger
}

// NewPollerService instantiates the poller.
func NewPollerService(deps PollerDependencies) *PollerService {
	return &PollerService{
		accounts: deps.Accounts,
		fetcher:  deps.Fetcher,
		intake:   deps.Intake,
		cfg:      deps.Config,
		logger:   deps.Logger,
	}
}

// PollSummary reports one polling pass.
type PollSummary struct {
	AccountsPolled int
	Fetched        int
	Processed      int
	Failed         int
}

// PollAll polls every active, poll-enabled account once.
func (s *PollerService) PollAll(ctx context.Context) (*PollSummary, error) {
	accounts, err := s.accounts.ListPollable(ctx)
	if err != nil {
		return nil, err
	}
	summary := &PollSummary{}
	for i := range accounts {
		account := &accounts[i]
		fetched, processed, failed := s.pollOne(ctx, account)
		summary.AccountsPolled++
		summary.Fetched += fetched
		summary.Processed += processed
		summary.Failed += failed
	}
	return summary, nil
}

// PollAccount polls a single account by id.
func (s *PollerService) PollAccount(ctx context.Context, accountID string) (*PollSummary, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	fetched, processed, failed := s.pollOne(ctx, account)
	return &PollSummary{AccountsPolled: 1, Fetched: fetched, Processed: processed, Failed: failed}, nil
}

func (s *PollerService) pollOne(ctx context.Context, account *domain.EmailAccount) (fetched, processed, failed int) {
	since := s.cursor(account)
	messages, err := s.fetcher.Fetch(ctx, account, since, s.cfg.MaxPerPoll)
	if err != nil {
		s.logger.Error("mailbox fetch failed",
			zap.String("account_id", account.ID),
			zap.String("email", account.Email),
			zap.Error(err))
		return 0, 0, 0
	}
	fetched = len(messages)

	polledAt := time.Now().UTC()
	for _, msg := range messages {
		if _, err := s.intake.ProcessInbound(ctx, msg, &account.ID); err != nil {
			failed++
			s.logger.Warn("failed to process polled message",
				zap.String("account_id", account.ID),
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
			continue
		}
		processed++
	}

	// The cursor advances even when individual messages fail; dedup makes
	// a later replay of those ids harmless.
	if err := s.accounts.UpdateLastPolled(ctx, account.ID, polledAt); err != nil {
		s.logger.Warn("failed to advance poll cursor",
			zap.String("account_id", account.ID), zap.Error(err))
	}
	return fetched, processed, failed
}

func (s *PollerService) cursor(account *domain.EmailAccount) time.Time {
	lookback := time.Duration(s.cfg.LookbackDays) * 24 * time.Hour
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	floor := time.Now().UTC().Add(-lookback)
	if account.LastPolledAt == nil || account.LastPolledAt.Before(floor) {
		return floor
	}
	return *account.LastPolledAt
}
