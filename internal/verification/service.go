// Package verification manages the email verification code lifecycle:
// issue a short-lived numeric code, check it exactly once, and remember
// the verified status for the follow-up request.
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/202030481266/FengWenServer/internal/domain"
	"github.com/202030481266/FengWenServer/internal/metrics"
)

const codeLength = 6

// Sender delivers the code to the address.
type Sender interface {
	SendVerificationCode(ctx context.Context, address, code string) error
}

// Service issues and checks verification codes.
type Service struct {
	store       domain.VerificationStore
	limiter     domain.SendLimiter
	sender      Sender
	codeTTL     time.Duration
	verifiedTTL time.Duration
}

func NewService(store domain.VerificationStore, limiter domain.SendLimiter, sender Sender, codeTTL, verifiedTTL time.Duration) *Service {
	return &Service{
		store:       store,
		limiter:     limiter,
		sender:      sender,
		codeTTL:     codeTTL,
		verifiedTTL: verifiedTTL,
	}
}

// GenerateCode produces a random numeric code with leading zeros allowed.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}

// SendCode issues a fresh code and emails it. Returns ErrCodeInvalid
// variants never; rate limiting surfaces as a typed error for the handler.
func (s *Service) SendCode(ctx context.Context, email string) error {
	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		return fmt.Errorf("send limiter check failed: %w", err)
	}
	if !allowed {
		return domain.ErrSendRateLimited
	}

	code, err := GenerateCode()
	if err != nil {
		return err
	}

	if err := s.store.StoreCode(ctx, email, code, s.codeTTL); err != nil {
		return err
	}

	if err := s.sender.SendVerificationCode(ctx, email, code); err != nil {
		// The stored code stays valid; a later resend overwrites it.
		return fmt.Errorf("verification email failed: %w", err)
	}

	metrics.VerificationCodesIssued.Inc()
	slog.Info("Verification code issued", "email", email)
	return nil
}

// VerifyCode checks the code and, on success, consumes it while marking the
// email recently verified.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {
	stored, err := s.store.GetCode(ctx, email)
	if err != nil {
		metrics.VerificationAttempts.WithLabelValues("expired").Inc()
		return err
	}

	if stored != code {
		metrics.VerificationAttempts.WithLabelValues("invalid").Inc()
		return domain.ErrCodeInvalid
	}

	if err := s.store.ConsumeCode(ctx, email, s.verifiedTTL); err != nil {
		return err
	}

	metrics.VerificationAttempts.WithLabelValues("success").Inc()
	slog.Info("Email verified", "email", email)
	return nil
}

// IsRecentlyVerified reports whether the email passed verification within
// the verified TTL window.
func (s *Service) IsRecentlyVerified(ctx context.Context, email string) (bool, error) {
	return s.store.IsVerified(ctx, email)
}

// PendingCode returns the stored code for debugging endpoints.
func (s *Service) PendingCode(ctx context.Context, email string) (string, error) {
	return s.store.GetCode(ctx, email)
}

// Clear wipes all verification state for the email.
func (s *Service) Clear(ctx context.Context, email string) error {
	return s.store.Clear(ctx, email)
}
