package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/202030481266/FengWenServer/internal/auth"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Public API
	api := s.echo.Group("/api")
	api.POST("/submit-info", s.handleSubmitInfo)
	api.POST("/send-verification", s.handleSendVerification)
	api.POST("/verify-email", s.handleVerifyEmail)
	api.POST("/verify-email-first", s.handleVerifyEmailFirst)
	api.POST("/astrology/calculate", s.handleCalculate)
	api.GET("/products", s.handleProducts)

	// Webhook (signature-verified, never behind admin auth)
	api.POST("/webhook/shopify", s.handleShopifyWebhook)

	// Admin API (JWT protected except login)
	api.POST("/admin/login", s.handleAdminLogin)

	admin := api.Group("/admin", auth.Middleware(s.deps.Auth))
	admin.GET("/translations", s.handleListTranslations)
	admin.POST("/translations", s.handleCreateTranslation)
	admin.PUT("/translations/:id", s.handleUpdateTranslation)
	admin.DELETE("/translations/:id", s.handleDeleteTranslation)
	admin.GET("/products", s.handleAdminProducts)
	admin.PUT("/products/:id", s.handleUpdateProduct)
	admin.GET("/config/:key", s.handleGetConfig)
	admin.PUT("/config/:key", s.handleSetConfig)
	admin.GET("/verification-code/:email", s.handleVerificationCode)
}
