package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/service"
)

// PollWorker schedules periodic mailbox polls.
type PollWorker struct {
	cron   *cron.Cron
	poller *service.PollerService
	cfg    config.PollingConfig
	logger *zap.Logger
}

// NewPollWorker constructs the worker without starting it.
func NewPollWorker(poller *service.PollerService, cfg config.PollingConfig, logger *zap.Logger) *PollWorker {
	return &PollWorker{
		cron:   cron.New(cron.WithSeconds()),
		poller: poller,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the polling schedule and begins execution. It is a no-op
// when polling is disabled.
func (w *PollWorker) Start() error {
	if !w.cfg.Enabled {
		w.logger.Info("mailbox polling disabled")
		return nil
	}

	spec := fmt.Sprintf("@every %s", w.cfg.Interval())
	if _, err := w.cron.AddFunc(spec, w.runOnce); err != nil {
		return fmt.Errorf("schedule mailbox poll: %w", err)
	}
	w.cron.Start()
	w.logger.Info("mailbox polling started", zap.Duration("interval", w.cfg.Interval()))
	return nil
}

// Stop halts the schedule and waits for a running poll to finish.
func (w *PollWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
}

func (w *PollWorker) runOnce() {
	summary, err := w.poller.PollAll(context.Background())
	if err != nil {
		w.logger.Error("mailbox poll failed", zap.Error(err))
		return
	}
	w.logger.Info("mailbox poll finished",
		zap.Int("accounts", summary.AccountsPolled),
		zap.Int("fetched", summary.Fetched),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed))
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
