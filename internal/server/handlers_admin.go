package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/202030481266/FengWenServer/internal/auth"
	"github.com/202030481266/FengWenServer/internal/domain"
	"github.com/202030481266/FengWenServer/internal/email"
	apperrors "github.com/202030481266/FengWenServer/internal/errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	token, err := s.deps.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return apperrors.UnauthorizedError("invalid username or password")
		}
		return apperrors.InternalError("login failed", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   s.config.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError("invalid id")
	}
	return id, nil
}

type translationRequest struct {
	ChineseText string `json:"chinese_text"`
	EnglishText string `json:"english_text"`
}

func (r *translationRequest) validate() error {
	if strings.TrimSpace(r.ChineseText) == "" || strings.TrimSpace(r.EnglishText) == "" {
		return apperrors.ValidationError("chinese_text and english_text are required")
	}
	return nil
}

func translationJSON(p *domain.TranslationPair) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"chinese_text": p.ChineseText,
		"english_text": p.EnglishText,
		"created_at":   p.CreatedAt,
		"updated_at":   p.UpdatedAt,
	}
}

func (s *Server) handleListTranslations(c echo.Context) error {
	pairs, err := s.deps.Translations.List(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list translations", err)
	}

	result := make([]map[string]any, 0, len(pairs))
	for i := range pairs {
		result = append(result, translationJSON(&pairs[i]))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateTranslation(c echo.Context) error {
	var req translationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	pair, err := s.deps.Translations.Create(c.Request().Context(), strings.TrimSpace(req.ChineseText), strings.TrimSpace(req.EnglishText))
	if err != nil {
		return apperrors.InternalError("failed to create translation", err)
	}
	return c.JSON(http.StatusCreated, translationJSON(pair))
}

func (s *Server) handleUpdateTranslation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req translationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	pair, err := s.deps.Translations.Update(c.Request().Context(), id, strings.TrimSpace(req.ChineseText), strings.TrimSpace(req.EnglishText))
	if err != nil {
		if errors.Is(err, domain.ErrTranslationNotFound) {
			return apperrors.NotFoundError("translation not found")
		}
		return apperrors.InternalError("failed to update translation", err)
	}
	return c.JSON(http.StatusOK, translationJSON(pair))
}

func (s *Server) handleDeleteTranslation(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := s.deps.Translations.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, domain.ErrTranslationNotFound) {
			return apperrors.NotFoundError("translation not found")
		}
		return apperrors.InternalError("failed to delete translation", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "deleted"})
}

func productJSON(p *domain.Product) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"name":         p.Name,
		"image_url":    p.ImageURL,
		"redirect_url": p.RedirectURL,
		"updated_at":   p.UpdatedAt,
	}
}

func (s *Server) handleAdminProducts(c echo.Context) error {
	products, err := s.deps.Products.List(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list products", err)
	}

	result := make([]map[string]any, 0, len(products))
	for i := range products {
		result = append(result, productJSON(&products[i]))
	}
	return c.JSON(http.StatusOK, result)
}

type productUpdateRequest struct {
	Name        *string `json:"name"`
	ImageURL    *string `json:"image_url"`
	RedirectURL *string `json:"redirect_url"`
}

func (s *Server) handleUpdateProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req productUpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Name == nil && req.ImageURL == nil && req.RedirectURL == nil {
		return apperrors.ValidationError("nothing to update")
	}
	if req.RedirectURL != nil && !validRedirectURL(*req.RedirectURL) {
		return apperrors.ValidationError("redirect_url domain is not allowed")
	}

	product, err := s.deps.Products.Update(c.Request().Context(), id, req.Name, req.ImageURL, req.RedirectURL)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return apperrors.NotFoundError("product not found")
		}
		return apperrors.InternalError("failed to update product", err)
	}
	return c.JSON(http.StatusOK, productJSON(product))
}

func (s *Server) handleGetConfig(c echo.Context) error {
	key := c.Param("key")

	cfg, err := s.deps.SiteConfig.Get(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			return apperrors.NotFoundError("config key not found")
		}
		return apperrors.InternalError("failed to load config", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"key":        cfg.Key,
		"value":      cfg.Value,
		"updated_at": cfg.UpdatedAt,
	})
}

type configRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleSetConfig(c echo.Context) error {
	key := c.Param("key")

	var req configRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	cfg, err := s.deps.SiteConfig.Set(c.Request().Context(), key, req.Value)
	if err != nil {
		return apperrors.InternalError("failed to save config", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"key":        cfg.Key,
		"value":      cfg.Value,
		"updated_at": cfg.UpdatedAt,
	})
}

// handleVerificationCode exposes the pending code for an address. Test
// environments use it to complete the flow without a mailbox.
func (s *Server) handleVerificationCode(c echo.Context) error {
	address := c.Param("email")
	if !email.ValidFormat(address) {
		return apperrors.ValidationError("invalid email address").WithTag(apperrors.TagInvalidEmail)
	}

	code, err := s.deps.Verification.PendingCode(c.Request().Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrCodeExpired) {
			return apperrors.NotFoundError("no pending verification code")
		}
		return apperrors.InternalError("failed to load verification code", err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"email":             address,
		"verification_code": code,
	})
}
