package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/domain"
)

func orderPayload(recordID string) map[string]any {
	return map[string]any{
		"id":    998877,
		"email": "buyer@example.com",
		"line_items": []map[string]any{
			{
				"variant_id": 12345,
				"quantity":   1,
				"properties": []map[string]any{{"name": "record_id", "value": recordID}},
			},
		},
	}
}

func TestShopifyWebhook(t *testing.T) {
	record := &domain.AstrologyRecord{
		ID:           7,
		Email:        "buyer@example.com",
		Name:         "Buyer",
		FullResultEN: `{"bazi":{"summary":"reading"}}`,
	}

	var markedOrderID string
	var invalidated string
	mailer := &mockMailer{}

	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Records = &mockRecords{
			getByIDFn: func(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
				assert.Equal(t, int64(7), id)
				return record, nil
			},
			markPurchasedFn: func(ctx context.Context, id int64, shopifyOrderID string) error {
				markedOrderID = shopifyOrderID
				return nil
			},
		}
		deps.Cache = &mockCache{
			invalidateFn: func(ctx context.Context, email string) error {
				invalidated = email
				return nil
			},
		}
		deps.Mailer = mailer
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", orderPayload("7"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeBody(t, rec)["status"])
	assert.Equal(t, "998877", markedOrderID)
	assert.Equal(t, "buyer@example.com", invalidated)
	assert.Equal(t, []string{"buyer@example.com"}, mailer.sent)
}

func TestShopifyWebhook_InvalidSignature(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Webhook = &mockWebhookVerifier{valid: false}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", orderPayload("7"), nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShopifyWebhook_DuplicateOrder(t *testing.T) {
	mailer := &mockMailer{}
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Records = &mockRecords{
			getByIDFn: func(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
				return &domain.AstrologyRecord{ID: 7, Email: "buyer@example.com"}, nil
			},
			markPurchasedFn: func(ctx context.Context, id int64, shopifyOrderID string) error {
				return domain.ErrOrderAlreadyProcessed
			},
		}
		deps.Mailer = mailer
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", orderPayload("7"), nil)

	// Redelivery must get a 200 or Shopify keeps retrying.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "already_processed", decodeBody(t, rec)["status"])
	assert.Empty(t, mailer.sent)
}

func TestShopifyWebhook_NoRecordID(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := map[string]any{"id": 998877, "email": "buyer@example.com"}
	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", payload, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decodeBody(t, rec)["status"])
}

func TestShopifyWebhook_UnknownRecord(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Records = &mockRecords{
			getByIDFn: func(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
				return nil, domain.ErrRecordNotFound
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", orderPayload("404"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decodeBody(t, rec)["status"])
}

func TestShopifyWebhook_EmailFailureStillSucceeds(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Records = &mockRecords{
			getByIDFn: func(ctx context.Context, id int64) (*domain.AstrologyRecord, error) {
				return &domain.AstrologyRecord{ID: 7, Email: "buyer@example.com", Name: "Buyer"}, nil
			},
			markPurchasedFn: func(ctx context.Context, id int64, shopifyOrderID string) error { return nil },
		}
		deps.Mailer = &mockMailer{err: assert.AnError}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/webhook/shopify", orderPayload("7"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decodeBody(t, rec)["status"])
}

func TestResultEmailPayload(t *testing.T) {
	withEN := &domain.AstrologyRecord{FullResultEN: `{"a":1}`, FullResultZH: `{"b":2}`}
	assert.Equal(t, map[string]any{"a": float64(1)}, resultEmailPayload(withEN))

	zhOnly := &domain.AstrologyRecord{FullResultZH: `{"b":2}`}
	assert.Equal(t, map[string]any{"b": float64(2)}, resultEmailPayload(zhOnly))

	empty := &domain.AstrologyRecord{}
	assert.Contains(t, resultEmailPayload(empty), "message")
}
