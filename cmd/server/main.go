package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/202030481266/FengWenServer/internal/astrology"
	"github.com/202030481266/FengWenServer/internal/auth"
	"github.com/202030481266/FengWenServer/internal/config"
	"github.com/202030481266/FengWenServer/internal/database"
	"github.com/202030481266/FengWenServer/internal/email"
	"github.com/202030481266/FengWenServer/internal/platform/logging"
	"github.com/202030481266/FengWenServer/internal/redis"
	"github.com/202030481266/FengWenServer/internal/server"
	"github.com/202030481266/FengWenServer/internal/shopify"
	"github.com/202030481266/FengWenServer/internal/translation"
	"github.com/202030481266/FengWenServer/internal/verification"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	// Repositories
	recordRepo := database.NewRecordRepo(pool)
	productRepo := database.NewProductRepo(pool)
	translationRepo := database.NewTranslationRepo(pool)
	siteConfigRepo := database.NewSiteConfigRepo(pool)

	// Redis-backed stores
	verificationStore := redis.NewVerificationStore(redisClient.Underlying())
	sendLimiter := redis.NewSendLimiter(redisClient.Underlying(), clock, cfg.VerificationCooldown, cfg.VerificationDailyCap)
	resultCache := redis.NewResultCache(redisClient.Underlying())

	// Glossary terms for the translator; a failed initial load is not fatal,
	// the manager refreshes lazily.
	terms := translation.NewTermsManager(translationRepo, clock)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := terms.Load(ctx); err != nil {
			slog.Warn("Initial glossary load failed", "error", err)
		}
		cancel()
	}
	translator := translation.NewService(cfg.TranslationAPIKey, cfg.TranslationAPIURL, cfg.TranslationModel, terms)

	shopifyClient := shopify.NewClient(shopify.Config{
		ShopDomain:       cfg.ShopifyShopDomain,
		AccessToken:      cfg.ShopifyAccessToken,
		WebhookSecret:    cfg.ShopifyWebhookSecret,
		ProductVariantID: cfg.ShopifyProductVariantID,
		APIVersion:       cfg.ShopifyAPIVersion,
	})

	emailSvc := email.NewService(email.NewSMTPProvider(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}), cfg.VerificationCodeTTL)

	verificationSvc := verification.NewService(verificationStore, sendLimiter, emailSvc, cfg.VerificationCodeTTL, cfg.VerifiedStatusTTL)

	readingAPI := astrology.NewClient(cfg.AstrologyAPIKey, cfg.AstrologyAPIURL)
	readingSvc := astrology.NewService(recordRepo, readingAPI, translator, shopifyClient, cfg.CheckoutFallbackURL)

	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPassword, clock)
	if err != nil {
		slog.Error("Failed to create auth manager", "error", err)
		os.Exit(1)
	}

	// The storefront always shows three tiles, backfill placeholders early
	// so the first page load never races the insert.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := productRepo.EnsureThree(ctx); err != nil {
			slog.Warn("Product backfill failed", "error", err)
		}
		cancel()
	}

	srv := server.NewServer(cfg, server.Dependencies{
		DB:           pool,
		Redis:        redisClient,
		Records:      recordRepo,
		Products:     productRepo,
		Translations: translationRepo,
		SiteConfig:   siteConfigRepo,
		Cache:        resultCache,
		Readings:     readingSvc,
		Verification: verificationSvc,
		Mailer:       emailSvc,
		Webhook:      shopifyClient,
		Auth:         authManager,
	})

	done := runGracefulShutdown(srv)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
