package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/cauafreitas/portfolio-api/internal/config"
	"github.com/cauafreitas/portfolio-api/internal/delivery"
	"github.com/cauafreitas/portfolio-api/internal/dispatch"
	"github.com/cauafreitas/portfolio-api/internal/handler"
	"github.com/cauafreitas/portfolio-api/internal/infra/postgresql"
	"github.com/cauafreitas/portfolio-api/internal/infra/postgresql/migrations"
	infraredis "github.com/cauafreitas/portfolio-api/internal/infra/redis"
	"github.com/cauafreitas/portfolio-api/internal/observability"
	"github.com/cauafreitas/portfolio-api/internal/provider"
	"github.com/cauafreitas/portfolio-api/internal/ratelimit"
	"github.com/cauafreitas/portfolio-api/internal/repository"
	"github.com/cauafreitas/portfolio-api/internal/service"
	"github.com/cauafreitas/portfolio-api/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()
	reporter := observability.NewZapReporter(logger)

	// Storage is optional: without a DSN the API stays up and delivery keeps
	// working, but persistence fails fast per request.
	var (
		messageRepo  repository.MessageRepository = repository.NewUnavailableMessageStore()
		feedbackRepo repository.FeedbackRepository = repository.NewUnavailableFeedbackStore()
		sqlDB        *sql.DB
	)
	if cfg.DatabaseDSN != "" {
		db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("postgres initialization failed", zap.Error(err))
		}
		if err := migrations.Migrate(db); err != nil {
			logger.Fatal("database migrations failed", zap.Error(err))
		}
		sqlDB, err = db.DB()
		if err != nil {
			logger.Fatal("postgres underlying db init failed", zap.Error(err))
		}
		defer sqlDB.Close()

		messageRepo = repository.NewGormMessageRepo(db)
		feedbackRepo = repository.NewGormFeedbackRepo(db)
	} else {
		logger.Warn("DATABASE_DSN not set, message store disabled")
	}

	// Rate limiting prefers redis; a single instance falls back to an
	// in-memory window.
	var rdb *goredis.Client
	var contactLimiter, feedbackLimiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		contactLimiter, err = infraredis.NewRateLimiter(rdb, "contact", cfg.ContactRateLimit, cfg.RateLimitWindow())
		if err != nil {
			logger.Fatal("contact rate limiter init failed", zap.Error(err))
		}
		feedbackLimiter, err = infraredis.NewRateLimiter(rdb, "feedback", cfg.FeedbackRateLimit, cfg.RateLimitWindow())
		if err != nil {
			logger.Fatal("feedback rate limiter init failed", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_URL not set, using in-memory rate limiting")
		contactLimiter, err = ratelimit.NewMemoryLimiter(cfg.ContactRateLimit, cfg.RateLimitWindow())
		if err != nil {
			logger.Fatal("contact rate limiter init failed", zap.Error(err))
		}
		feedbackLimiter, err = ratelimit.NewMemoryLimiter(cfg.FeedbackRateLimit, cfg.RateLimitWindow())
		if err != nil {
			logger.Fatal("feedback rate limiter init failed", zap.Error(err))
		}
	}

	options, err := buildTransportOptions(cfg)
	if err != nil {
		logger.Fatal("transport setup failed", zap.Error(err))
	}

	strategy, err := delivery.NewStrategy(options, reporter, metrics, logger)
	if err != nil {
		logger.Fatal("delivery strategy init failed", zap.Error(err))
	}

	var executor *dispatch.Executor
	var enqueuer service.Enqueuer
	if cfg.BackgroundDelivery {
		executor = dispatch.NewExecutor(cfg.DispatchBuffer, cfg.DispatchConcurrency, logger)
		enqueuer = executor
	}

	contactService, err := service.NewContactService(service.ContactServiceParams{
		Messages:        messageRepo,
		Feedback:        feedbackRepo,
		Strategy:        strategy,
		ContactLimiter:  contactLimiter,
		FeedbackLimiter: feedbackLimiter,
		Executor:        enqueuer,
		Reporter:        reporter,
		Metrics:         metrics,
		Logger:          logger,
		Recipient:       cfg.EmailTo,
		Sender:          cfg.EmailFrom,
	})
	if err != nil {
		logger.Fatal("contact service init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(transport.RequestContext())
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterContactRoutes(app, contactService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	if executor != nil {
		g.Go(func() error {
			return executor.Start(groupCtx)
		})
	}

	g.Go(func() error {
		logger.Info("portfolio api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		if executor != nil {
			executor.Close()
		}
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

// buildTransportOptions assembles the ordered transport table. The API
// transport and the two SMTP port/mode pairs are always present; only their
// order changes with PRIMARY_TRANSPORT.
func buildTransportOptions(cfg *config.Config) ([]delivery.Option, error) {
	apiTransport, err := provider.NewAPITransport(cfg.EmailAPIURL, cfg.EmailAPIKey)
	if err != nil {
		return nil, err
	}

	smtpTLS, err := provider.NewSMTPTransport(provider.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPTLSPort,
		Mode:     provider.ModeImplicitTLS,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
	})
	if err != nil {
		return nil, err
	}

	smtpStartTLS, err := provider.NewSMTPTransport(provider.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPStartTLSPort,
		Mode:     provider.ModeSTARTTLS,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.SendTimeout()
	api := delivery.Option{Transport: apiTransport, Timeout: timeout}
	tls := delivery.Option{Transport: smtpTLS, Timeout: timeout}
	startTLS := delivery.Option{Transport: smtpStartTLS, Timeout: timeout}

	if cfg.PrimaryTransport == "smtp" {
		return []delivery.Option{tls, startTLS, api}, nil
	}
	return []delivery.Option{api, tls, startTLS}, nil
}
