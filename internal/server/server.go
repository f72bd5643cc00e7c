// Package server wires the HTTP surface: public reading endpoints, the
// admin API, the Shopify webhook and the observability endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/202030481266/FengWenServer/internal/auth"
	"github.com/202030481266/FengWenServer/internal/config"
	"github.com/202030481266/FengWenServer/internal/domain"
	apperrors "github.com/202030481266/FengWenServer/internal/errors"
	"github.com/202030481266/FengWenServer/internal/platform/correlation"
)

// readingPipeline runs the astrology record lifecycle.
type readingPipeline interface {
	CreateRecord(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error)
	ProcessComplete(ctx context.Context, record *domain.AstrologyRecord) map[string]any
}

// verifier manages the email verification code lifecycle.
type verifier interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	IsRecentlyVerified(ctx context.Context, email string) (bool, error)
	PendingCode(ctx context.Context, email string) (string, error)
}

// resultMailer delivers the unlocked reading after purchase.
type resultMailer interface {
	SendReadingResult(ctx context.Context, address, name string, reading map[string]any) error
}

// webhookVerifier checks Shopify webhook signatures.
type webhookVerifier interface {
	VerifyWebhook(body []byte, signature string) bool
}

// pinger is the shape shared by the pgx pool and the Redis client wrapper,
// used by the readiness checks.
type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies carries everything the handlers need. Interfaces keep the
// handler tests free of real infrastructure.
type Dependencies struct {
	DB           pinger
	Redis        pinger
	Records      domain.RecordRepository
	Products     domain.ProductRepository
	Translations domain.TranslationRepository
	SiteConfig   domain.SiteConfigRepository
	Cache        domain.ResultCache
	Readings     readingPipeline
	Verification verifier
	Mailer       resultMailer
	Webhook      webhookVerifier
	Auth         *auth.Manager
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	deps      Dependencies
	startTime time.Time
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(requestLogMiddleware())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:      e,
		config:    cfg,
		deps:      deps,
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// correlationMiddleware attaches a correlation ID to every request context
// so slog records and the response header carry it. Inbound IDs are reused.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(correlation.HeaderName)
			if id == "" {
				id = uuid.NewString()
			}

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(correlation.HeaderName, id)

			return next(c)
		}
	}
}

func requestLogMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			slog.InfoContext(c.Request().Context(), "Request handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}
