package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-waitlist-api/internal/application/notify"
	"github.com/go-waitlist-api/internal/application/ranking"
	"github.com/go-waitlist-api/internal/config"
	"github.com/go-waitlist-api/internal/infrastructure/awscfg"
	"github.com/go-waitlist-api/internal/infrastructure/dns"
	"github.com/go-waitlist-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-waitlist-api/internal/infrastructure/jwt"
	"github.com/go-waitlist-api/internal/infrastructure/memory"
	"github.com/go-waitlist-api/internal/infrastructure/postgres"
	redisinfra "github.com/go-waitlist-api/internal/infrastructure/redis"
	"github.com/go-waitlist-api/internal/infrastructure/resend"
	s3infra "github.com/go-waitlist-api/internal/infrastructure/s3"
	"github.com/go-waitlist-api/internal/infrastructure/smtp"
	"github.com/go-waitlist-api/internal/infrastructure/sns"
	transporthttp "github.com/go-waitlist-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func run(ctx context.Context, cfg *config.Config) error {
	// AWS config is only needed for DynamoDB, SNS and S3.
	var awsCfg aws.Config
	if cfg.StoreDriver == config.StoreDynamo || cfg.SNSTopicARN != "" || cfg.S3BucketName != "" {
		var err error
		if awsCfg, err = awscfg.Load(ctx, cfg); err != nil {
			return err
		}
	}

	deps := &transporthttp.Deps{Hub: notify.NewHub()}
	closeStore, err := wireStore(ctx, cfg, awsCfg, deps)
	if err != nil {
		return err
	}
	defer closeStore()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}
	deps.JWTProvider = jwtProvider

	if deps.Mailer, err = newMailer(cfg); err != nil {
		return err
	}

	if cfg.RedisURL != "" {
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			// The signup route falls back to the in-process limiter.
			slog.Warn("redis unavailable, using in-process rate limiter", "err", err)
		} else {
			defer client.Close()
			deps.WindowLimiter = redisinfra.NewSlidingWindowLimiter(client, "ratelimit:waitlist", cfg.RateLimitRequests, cfg.RateLimitWindow)
		}
	}

	if cfg.CheckEmailDomain {
		deps.DomainChecker = dns.NewMXValidator(cfg.DNSTimeout)
	}

	if cfg.SNSTopicARN != "" {
		deps.Publishers = append(deps.Publishers, sns.NewPublisher(sns.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.SNSTopicARN))
	}

	if cfg.S3BucketName != "" && cfg.LeaderboardSnapshotInterval > 0 {
		store := s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName)
		snap := ranking.NewSnapshotter(ranking.NewService(deps.EntrantRepo, cfg.LeaderboardSize), store, cfg.LeaderboardSnapshotInterval)
		go snap.Run(ctx)
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// wireStore fills the repository fields of deps for the configured driver and
// returns a func releasing its resources.
func wireStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, deps *transporthttp.Deps) (func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDynamo:
		client := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
		// Creates missing tables; a no-op against provisioned environments.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		t := cfg.DynamoTables
		deps.EntrantRepo = dynamo.NewEntrantRepo(client, t.Entrants, t.RefCodes)
		deps.IdentityRepo = dynamo.NewIdentityRepo(client, t.Identities)
		deps.SessionRepo = dynamo.NewSessionRepo(client, t.Sessions)
		deps.VerificationRepo = dynamo.NewVerificationRepo(client, t.Verifications)
		deps.SubscriberRepo = dynamo.NewSubscriberRepo(client, t.Subscribers)
		return func() {}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.EntrantRepo = postgres.NewEntrantRepo(db)
		deps.IdentityRepo = postgres.NewIdentityRepo(db)
		deps.SessionRepo = postgres.NewSessionRepo(db)
		deps.VerificationRepo = postgres.NewVerificationRepo(db)
		deps.SubscriberRepo = postgres.NewSubscriberRepo(db)
		return func() { _ = db.Close() }, nil

	case config.StoreMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		deps.EntrantRepo = memory.NewEntrantRepo()
		deps.IdentityRepo = memory.NewIdentityRepo()
		deps.SessionRepo = memory.NewSessionRepo()
		deps.VerificationRepo = memory.NewVerificationRepo()
		deps.SubscriberRepo = memory.NewSubscriberRepo()
		return func() {}, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// newMailer prefers Resend when an API key is configured.
func newMailer(cfg *config.Config) (transporthttp.Mailer, error) {
	if cfg.ResendAPIKey != "" {
		m, err := resend.NewMailer(cfg.ResendAPIKey, cfg.MailFrom)
		if err != nil {
			return nil, fmt.Errorf("resend mailer: %w", err)
		}
		return m, nil
	}
	slog.Info("RESEND_API_KEY not set, sending mail over SMTP", "host", cfg.SMTPHost)
	return smtp.NewMailer(cfg), nil
}
