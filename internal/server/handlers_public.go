package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/202030481266/FengWenServer/internal/domain"
	"github.com/202030481266/FengWenServer/internal/email"
	apperrors "github.com/202030481266/FengWenServer/internal/errors"
	rediscache "github.com/202030481266/FengWenServer/internal/redis"
)

type userInfoRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	BirthTime string `json:"birth_time"`
	Gender    string `json:"gender"`
}

func (r *userInfoRequest) validate() error {
	if !email.ValidFormat(r.Email) {
		return apperrors.ValidationError("invalid email address").WithTag(apperrors.TagInvalidEmail)
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.ValidationError("name is required")
	}
	if !strings.EqualFold(r.Gender, "male") && !strings.EqualFold(r.Gender, "female") {
		return apperrors.ValidationError("gender must be Male or Female")
	}
	if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		return apperrors.ValidationError("birth_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", r.BirthTime); err != nil {
		return apperrors.ValidationError("birth_time must be HH:MM")
	}
	return nil
}

type verificationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// verificationError maps verification failures onto client-facing errors.
func verificationError(err error) error {
	switch {
	case errors.Is(err, domain.ErrCodeExpired):
		return apperrors.ValidationError("verification code has expired").WithTag(apperrors.TagCodeExpired)
	case errors.Is(err, domain.ErrCodeInvalid):
		return apperrors.ValidationError("invalid verification code").WithTag(apperrors.TagInvalidCode)
	case errors.Is(err, domain.ErrSendRateLimited):
		return apperrors.RateLimitError("too many verification emails for this address, try again later")
	default:
		return err
	}
}

// handleSubmitInfo stores the birth data and responds immediately. The full
// reading only runs once the email is verified.
func (s *Server) handleSubmitInfo(c echo.Context) error {
	var req userInfoRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	record, err := s.deps.Readings.CreateRecord(c.Request().Context(), req.Email, req.Name, req.BirthDate, req.BirthTime, req.Gender)
	if err != nil {
		return apperrors.InternalError("failed to create record", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"record_id":  record.ID,
		"lunar_date": record.LunarDate,
		"message":    "Information received. Verify your email to unlock your reading.",
	})
}

func (s *Server) handleSendVerification(c echo.Context) error {
	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if !email.ValidFormat(req.Email) {
		return apperrors.ValidationError("invalid email address").WithTag(apperrors.TagInvalidEmail)
	}

	if err := s.deps.Verification.SendCode(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrSendRateLimited) {
			return verificationError(err)
		}
		return apperrors.InternalError("failed to send verification code", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Verification code sent"})
}

// handleVerifyEmail is the single-step flow: verify the code and run the
// full reading pipeline against the caller's most recent record.
func (s *Server) handleVerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()

	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.deps.Verification.VerifyCode(ctx, req.Email, req.Code); err != nil {
		return verificationError(err)
	}

	record, err := s.deps.Records.GetLatestByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return apperrors.NotFoundError("no record found for this email")
		}
		return apperrors.InternalError("failed to load record", err)
	}

	response := s.deps.Readings.ProcessComplete(ctx, record)

	return c.JSON(http.StatusOK, map[string]any{
		"astrology_results": response["astrology_results"],
		"checkout_url":      response["shopify_url"],
		"message":           "Complete payment to receive your full reading via email.",
	})
}

// handleVerifyEmailFirst is step 1 of the 2-step flow: consume the code and
// mark the email recently verified.
func (s *Server) handleVerifyEmailFirst(c echo.Context) error {
	var req verificationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.deps.Verification.VerifyCode(c.Request().Context(), req.Email, req.Code); err != nil {
		return verificationError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":  "Email verified successfully",
		"verified": true,
	})
}

// handleCalculate is step 2 of the 2-step flow: requires a recently verified
// email, then runs the pipeline. Responses are cached per request hash so a
// page reload does not re-run the upstream calls.
func (s *Server) handleCalculate(c echo.Context) error {
	ctx := c.Request().Context()

	var req userInfoRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	verified, err := s.deps.Verification.IsRecentlyVerified(ctx, req.Email)
	if err != nil {
		return apperrors.InternalError("failed to check verification status", err)
	}
	if !verified {
		return apperrors.ValidationError("please verify your email first").WithTag(apperrors.TagNotVerified)
	}

	cacheKey := rediscache.CacheKey(req.Email, req.Name, req.BirthDate, req.BirthTime, req.Gender)
	var cached map[string]any
	if hit, err := s.deps.Cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return c.JSON(http.StatusOK, cached)
	}

	record, err := s.deps.Readings.CreateRecord(ctx, req.Email, req.Name, req.BirthDate, req.BirthTime, req.Gender)
	if err != nil {
		return apperrors.InternalError("failed to create record", err)
	}

	response := s.deps.Readings.ProcessComplete(ctx, record)

	if err := s.deps.Cache.Set(ctx, cacheKey, response, s.config.ResultCacheTTL); err != nil {
		slog.WarnContext(ctx, "Failed to cache reading response", "record_id", record.ID, "error", err)
	}

	return c.JSON(http.StatusOK, response)
}

// handleProducts serves the three landing-page tiles. Text fields are
// escaped and redirect targets validated before leaving the server.
func (s *Server) handleProducts(c echo.Context) error {
	products, err := s.deps.Products.EnsureThree(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load products", err)
	}

	result := make([]map[string]any, 0, len(products))
	for _, p := range products {
		redirect := p.RedirectURL
		if !validRedirectURL(redirect) {
			slog.Warn("Product redirect URL rejected", "product_id", p.ID, "url", redirect)
			redirect = "#"
		}
		result = append(result, map[string]any{
			"id":           p.ID,
			"name":         cleanText(p.Name),
			"image_url":    cleanText(p.ImageURL),
			"redirect_url": redirect,
		})
	}

	return c.JSON(http.StatusOK, result)
}
