package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/202030481266/FengWenServer/internal/metrics"
)

// Config carries the store credentials and checkout settings.
type Config struct {
	ShopDomain       string
	AccessToken      string
	WebhookSecret    string
	ProductVariantID string
	APIVersion       string
}

// Client talks to the Shopify Admin API and builds checkout URLs.
//
// Standard accounts cannot use the Checkout API, so the checkout ladder is:
// cart permalink with metadata params first, draft order invoice URL as the
// fallback.
type Client struct {
	httpClient *http.Client
	cfg        Config
	adminURL   string
}

func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		adminURL:   fmt.Sprintf("https://%s/admin/api/%s", cfg.ShopDomain, cfg.APIVersion),
	}
}

// CreateCheckoutURL builds a checkout URL carrying the record id. The cart
// permalink needs no API call and is preferred; a missing variant id pushes
// us down to the draft order path.
func (c *Client) CreateCheckoutURL(ctx context.Context, email string, recordID int64) (string, error) {
	if cartURL := c.cartPermalink(email, recordID); cartURL != "" {
		metrics.CheckoutURLsCreated.WithLabelValues("cart_permalink").Inc()
		return cartURL, nil
	}

	slog.Info("Cart permalink unavailable, falling back to draft order", "record_id", recordID)
	invoiceURL, err := c.createDraftOrder(ctx, email, recordID)
	if err != nil {
		return "", fmt.Errorf("checkout URL creation failed: %w", err)
	}
	metrics.CheckoutURLsCreated.WithLabelValues("draft_order").Inc()
	return invoiceURL, nil
}

// cartPermalink builds https://<shop>/cart/<variant>:1 with metadata query
// params. Returns "" when the variant id is not configured.
func (c *Client) cartPermalink(email string, recordID int64) string {
	if c.cfg.ProductVariantID == "" {
		return ""
	}

	params := url.Values{
		"record_id":      {fmt.Sprintf("%d", recordID)},
		"service":        {"astrology_reading"},
		"customer_email": {email},
		"note":           {fmt.Sprintf("Astrology Reading - Record ID: %d", recordID)},
	}

	return fmt.Sprintf("https://%s/cart/%s:1?%s", c.cfg.ShopDomain, c.cfg.ProductVariantID, params.Encode())
}

// createDraftOrder creates a draft order tagged with the record id and
// returns its invoice URL.
func (c *Client) createDraftOrder(ctx context.Context, email string, recordID int64) (string, error) {
	recordIDStr := fmt.Sprintf("%d", recordID)
	payload := draftOrderRequest{
		DraftOrder: draftOrder{
			LineItems: []draftLineItem{{
				VariantID: c.cfg.ProductVariantID,
				Quantity:  1,
				Properties: []Attribute{
					{Name: "record_id", Value: recordIDStr},
				},
			}},
			Customer: draftCustomer{Email: email},
			Note:     "Astrology Reading - Record ID: " + recordIDStr,
			Tags:     "astrology,record_" + recordIDStr,
			NoteAttributes: []Attribute{
				{Name: "record_id", Value: recordIDStr},
				{Name: "service", Value: "astrology_reading"},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL+"/draft_orders.json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build draft order request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("draft order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("draft order creation returned status %d: %s", resp.StatusCode, raw)
	}

	var decoded draftOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode draft order response: %w", err)
	}
	if decoded.DraftOrder.InvoiceURL == "" {
		return "", fmt.Errorf("draft order %d has no invoice URL", decoded.DraftOrder.ID)
	}
	return decoded.DraftOrder.InvoiceURL, nil
}

// GetOrder fetches order details from the Admin API.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminURL+"/orders/"+orderID+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("order lookup returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Order Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &decoded.Order, nil
}
