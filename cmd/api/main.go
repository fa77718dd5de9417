// Package main is the entrypoint for the lawyer panel API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/cache"
	"github.com/advocacia-ai/painel/internal/config"
	"github.com/advocacia-ai/painel/internal/crypto"
	"github.com/advocacia-ai/painel/internal/handler"
	"github.com/advocacia-ai/painel/internal/mail"
	"github.com/advocacia-ai/painel/internal/metrics"
	"github.com/advocacia-ai/painel/internal/middleware"
	"github.com/advocacia-ai/painel/internal/repository"
	"github.com/advocacia-ai/painel/internal/server"
	"github.com/advocacia-ai/painel/internal/service"
)

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := initLogger(cfg)

	// Secrets are read once here and injected; nothing below reads the environment.
	sealer, err := crypto.NewSealer([]byte(cfg.EncryptionKey))
	if err != nil {
		logger.Error("failed to initialize field encryption", "error", err)
		return err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		logger.Error("failed to initialize token issuer", "error", err)
		return err
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, sealer)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.RunMigrations {
		if err := repo.Migrate(ctx); err != nil {
			logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			return err
		}
		logger.Info("migrations applied")
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return err
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	var recorder metrics.Recorder = metrics.NewNoop()
	var metricsHandler *handler.MetricsHandler
	if cfg.MetricsEnabled {
		inMemory := metrics.NewInMemory()
		recorder = inMemory
		metricsHandler = handler.NewMetricsHandler(inMemory)
	}

	// Mail: requests enqueue, the worker delivers with retries.
	publisher := mail.NewPublisher(cacheClient.Client(), logger, recorder)
	worker := mail.NewWorker(cacheClient.Client(), newMailSender(cfg, logger), logger, mail.NewConsumerID(), recorder)
	worker.SetMaxAttempts(cfg.MailMaxAttempts)

	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mail worker stopped", "error", err)
		}
	}()

	authService := service.NewAuthService(repo, tokens, publisher, cacheClient, service.AuthConfig{
		AccessTTL:            cfg.AccessTokenTTL,
		ResetTTL:             cfg.ResetTokenTTL,
		VerifyTTL:            cfg.VerifyTokenTTL,
		PublicURL:            cfg.PublicURL,
		LoginAttemptsPerHour: cfg.LoginAttemptsPerHour,
		LoginBurst:           cfg.LoginBurst,
	}, logger, recorder)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:       logger,
		Health:       handler.NewHealthHandler(repo, cacheClient, logger),
		Auth:         handler.NewAuthHandler(authService, logger),
		Profile:      handler.NewProfileHandler(service.NewProfileService(repo), logger),
		Leads:        handler.NewLeadHandler(service.NewLeadService(repo, cacheClient, logger, recorder), logger),
		Conversation: handler.NewConversationHandler(service.NewConversationService(repo, repo, cacheClient, logger, recorder), logger),
		Notes:        handler.NewNoteHandler(service.NewNoteService(repo, repo), logger),
		Tasks:        handler.NewTaskHandler(service.NewTaskService(repo, cacheClient, logger), logger),
		Dashboard:    handler.NewDashboardHandler(service.NewDashboardService(repo, cacheClient, cfg.StatsCacheTTL, logger), logger),
		Metrics:      metricsHandler,
		Resolver:     authService,
		RateLimit: middleware.RateLimitConfig{
			Logger:           logger,
			Limiter:          cacheClient,
			IPEnabled:        cfg.RateLimitAuthEnabled,
			IPRPS:            cfg.RateLimitAuthRPS,
			IPBurst:          cfg.RateLimitAuthBurst,
			PrincipalEnabled: cfg.RateLimitAPIEnabled,
			PrincipalRPM:     cfg.RateLimitAPIRPM,
			PrincipalBurst:   cfg.RateLimitAPIBurst,
		},
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        cors,
		MaxBodySize: cfg.MaxRequestBodySize,
		TrustProxy:  cfg.TrustProxy,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// LIFO: the publisher drains first, then the worker stops consuming.
	srv.OnShutdown("mail_worker", worker.Shutdown)
	srv.OnShutdown("mail_publisher", publisher.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"mail_provider", cfg.MailProvider,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// newMailSender picks the delivery backend named by MAIL_PROVIDER.
func newMailSender(cfg *config.Config, logger *slog.Logger) mail.Sender {
	switch cfg.MailProvider {
	case config.MailProviderSMTP:
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	case config.MailProviderPostmark:
		return mail.NewPostmarkSender(cfg.PostmarkToken, cfg.MailFrom)
	default:
		return mail.NewLogSender(logger)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "painel-api")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
