package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/202030481266/FengWenServer/internal/metrics"
	"github.com/202030481266/FengWenServer/internal/platform/retry"
)

// Service sends the application's transactional mail: verification codes
// and purchased reading results.
type Service struct {
	provider Provider
	codeTTL  time.Duration
}

func NewService(provider Provider, codeTTL time.Duration) *Service {
	return &Service{provider: provider, codeTTL: codeTTL}
}

func classifySendError(err error) retry.Action {
	var se *SendError
	if errors.As(err, &se) {
		switch se.Kind {
		case KindRateLimited:
			return retry.After
		case KindSendFailed:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	return retry.Retry
}

func (s *Service) send(ctx context.Context, kind string, msg Message) error {
	policy := retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   time.Second,
		RateLimitBackoff: 10 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Email send retry", "kind", kind, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	err := retry.DoVoid(ctx, policy, classifySendError, func() error {
		return s.provider.Send(ctx, msg)
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "error").Inc()
		return err
	}
	metrics.EmailsSent.WithLabelValues(kind, "success").Inc()
	return nil
}

// SendVerificationCode delivers a verification code email.
func (s *Service) SendVerificationCode(ctx context.Context, address, code string) error {
	if !ValidFormat(address) {
		return &SendError{Kind: KindInvalidFormat, Message: fmt.Sprintf("invalid email address %q", address)}
	}

	body, err := RenderVerification(code, int(s.codeTTL.Minutes()))
	if err != nil {
		return err
	}

	slog.Info("Sending verification code email", "email", address)
	return s.send(ctx, "verification", Message{
		To:      address,
		Subject: "Email Verification Code",
		HTML:    body,
	})
}

// SendReadingResult delivers the unlocked reading after purchase.
func (s *Service) SendReadingResult(ctx context.Context, address, name string, reading map[string]any) error {
	if !ValidFormat(address) {
		return &SendError{Kind: KindInvalidFormat, Message: fmt.Sprintf("invalid email address %q", address)}
	}

	body, err := RenderResult(name, FormatReadingBody(reading))
	if err != nil {
		return err
	}

	slog.Info("Sending reading result email", "email", address)
	return s.send(ctx, "result", Message{
		To:      address,
		Subject: "Your Complete Astrology Reading",
		HTML:    body,
	})
}
