package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/202030481266/FengWenServer/internal/domain"
	apperrors "github.com/202030481266/FengWenServer/internal/errors"
	"github.com/202030481266/FengWenServer/internal/metrics"
	"github.com/202030481266/FengWenServer/internal/shopify"
)

// handleShopifyWebhook processes order notifications. Shopify delivers
// at-least-once and retries on non-2xx, so everything that is not an actual
// processing failure answers 200.
func (s *Server) handleShopifyWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperrors.ValidationError("failed to read webhook body")
	}

	signature := c.Request().Header.Get(shopify.SignatureHeader)
	if !s.deps.Webhook.VerifyWebhook(body, signature) {
		metrics.WebhooksProcessed.WithLabelValues("invalid_signature").Inc()
		return apperrors.UnauthorizedError("invalid webhook signature")
	}

	var order shopify.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return apperrors.ValidationError("invalid webhook payload")
	}

	recordID, ok := shopify.ExtractRecordID(&order)
	if !ok {
		metrics.WebhooksProcessed.WithLabelValues("unmatched").Inc()
		slog.WarnContext(ctx, "Webhook order carries no record id", "order_id", order.ID)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	record, err := s.deps.Records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			metrics.WebhooksProcessed.WithLabelValues("unmatched").Inc()
			slog.WarnContext(ctx, "Webhook references unknown record", "record_id", recordID, "order_id", order.ID)
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		}
		return apperrors.InternalError("failed to load record", err)
	}

	orderID := strconv.FormatInt(order.ID, 10)
	if err := s.deps.Records.MarkPurchased(ctx, record.ID, orderID); err != nil {
		if errors.Is(err, domain.ErrOrderAlreadyProcessed) {
			metrics.WebhooksProcessed.WithLabelValues("duplicate").Inc()
			return c.JSON(http.StatusOK, map[string]string{"status": "already_processed"})
		}
		return apperrors.InternalError("failed to mark record purchased", err)
	}

	// Purchase flips the masking, so cached masked responses must go.
	if err := s.deps.Cache.InvalidateEmail(ctx, record.Email); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate cached readings", "email", record.Email, "error", err)
	}

	if err := s.deps.Mailer.SendReadingResult(ctx, record.Email, record.Name, resultEmailPayload(record)); err != nil {
		// The purchase is already recorded, a lost email must not make
		// Shopify redeliver the order.
		slog.ErrorContext(ctx, "Failed to send reading result email", "record_id", record.ID, "error", err)
	}

	metrics.WebhooksProcessed.WithLabelValues("processed").Inc()
	slog.InfoContext(ctx, "Order processed", "record_id", record.ID, "order_id", orderID)
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// resultEmailPayload picks the best stored rendition for the result email.
func resultEmailPayload(record *domain.AstrologyRecord) map[string]any {
	for _, raw := range []string{record.FullResultEN, record.FullResultZH} {
		if raw == "" {
			continue
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return decoded
		}
	}
	return map[string]any{"message": "Your astrology reading is ready."}
}
