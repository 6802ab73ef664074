package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	ticketMessageRepo := repository.NewTicketMessageRepository(pool)
	emailMessageRepo := repository.NewEmailMessageRepository(pool)
	emailAccountRepo := repository.NewEmailAccountRepository(pool)
	ruleRepo := repository.NewRoutingRuleRepository(pool)
	routingLogRepo := repository.NewRoutingLogRepository(pool)
	tagRepo := repository.NewTagRepository(pool)
	slaRepo := repository.NewSLARepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:  userRepo,
		Tokens: tokens,
		Config: cfg.Auth,
		Logger: logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	threading := service.NewThreadingService(service.ThreadingDependencies{
		EmailMessages: emailMessageRepo,
		Tickets:       ticketRepo,
		Redis:         redis,
		Config:        cfg.Intake,
		Logger:        logger,
	})
	classifier := service.NewClassifierService(service.ClassifierDependencies{
		Resolver: threading,
		Config:   cfg.Intake,
		Logger:   logger,
	})
	routing := service.NewRoutingService(service.RoutingDependencies{
		Rules:          ruleRepo,
		Logs:           routingLogRepo,
		Tickets:        ticketRepo,
		TicketMessages: ticketMessageRepo,
		Tags:           tagRepo,
		Users:          userRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		Tickets:        ticketRepo,
		EmailMessages:  emailMessageRepo,
		TicketMessages: ticketMessageRepo,
		Users:          userRepo,
		SLAs:           slaRepo,
		Classifier:     classifier,
		Threading:      threading,
		Routing:        routing,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Config:         cfg.Intake,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Tickets:        ticketRepo,
		TicketMessages: ticketMessageRepo,
		EmailMessages:  emailMessageRepo,
		Tags:           tagRepo,
		Users:          userRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		Tickets: ticketRepo,
		SLAs:    slaRepo,
		Logger:  logger,
	})
	ruleService := service.NewRuleService(service.RuleDependencies{
		Rules:  ruleRepo,
		Tags:   tagRepo,
		Logger: logger,
	})
	poller := service.NewPollerService(service.PollerDependencies{
		Accounts: emailAccountRepo,
		Fetcher:  mail.NoopFetcher{},
		Intake:   intake,
		Config:   cfg.Polling,
		Logger:   logger,
	})

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notifications)

	pollWorker := worker.NewPollWorker(poller, cfg.Polling, logger)
	if err := pollWorker.Start(); err != nil {
		logger.Fatal("failed to start poll worker", zap.Error(err))
	}
	defer pollWorker.Stop()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	parser := mail.NewParser()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, intake, routing, slaService, routingLogRepo),
		Intake:         handlers.NewIntakeHandler(parser, intake, poller),
		Rules:          handlers.NewRulesHandler(ruleService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
