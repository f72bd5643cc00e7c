package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/202030481266/FengWenServer/internal/errors"
)

// ContextKey is where the middleware stores the authenticated username.
const ContextKey = "admin_user"

// CookieName is the fallback token location for browser-based admin pages.
const CookieName = "access_token"

// Middleware guards admin routes. The token comes from the Authorization
// bearer header or, failing that, the access_token cookie.
func Middleware(manager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				if cookie, err := c.Cookie(CookieName); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				return apperrors.UnauthorizedError("missing authentication token")
			}

			username, err := manager.Validate(token)
			if err != nil {
				return apperrors.UnauthorizedError("invalid or expired token")
			}

			c.Set(ContextKey, username)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
