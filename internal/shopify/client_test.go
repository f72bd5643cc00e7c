package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutURL_CartPermalink(t *testing.T) {
	client := testClient("secret")

	checkoutURL, err := client.CreateCheckoutURL(context.Background(), "alice@example.com", 42)
	require.NoError(t, err)

	parsed, err := url.Parse(checkoutURL)
	require.NoError(t, err)
	assert.Equal(t, "teststore.example.com", parsed.Host)
	assert.Equal(t, "/cart/12345:1", parsed.Path)
	assert.Equal(t, "42", parsed.Query().Get("record_id"))
	assert.Equal(t, "astrology_reading", parsed.Query().Get("service"))
	assert.Equal(t, "alice@example.com", parsed.Query().Get("customer_email"))
}

func TestCreateCheckoutURL_DraftOrderFallback(t *testing.T) {
	var gotPayload draftOrderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Shopify-Access-Token"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/draft_orders.json"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"draft_order": map[string]any{
				"id":          9001,
				"invoice_url": "https://teststore.example.com/invoices/abc",
			},
		})
	}))
	defer server.Close()

	// No variant id forces the draft order path
	client := NewClient(Config{
		ShopDomain:  "teststore.example.com",
		AccessToken: "token",
		APIVersion:  "2024-01",
	})
	client.adminURL = server.URL

	checkoutURL, err := client.CreateCheckoutURL(context.Background(), "bob@example.com", 77)
	require.NoError(t, err)
	assert.Equal(t, "https://teststore.example.com/invoices/abc", checkoutURL)

	assert.Equal(t, "bob@example.com", gotPayload.DraftOrder.Customer.Email)
	assert.Equal(t, "astrology,record_77", gotPayload.DraftOrder.Tags)
	require.NotEmpty(t, gotPayload.DraftOrder.NoteAttributes)
	assert.Equal(t, "record_id", gotPayload.DraftOrder.NoteAttributes[0].Name)
	assert.Equal(t, "77", gotPayload.DraftOrder.NoteAttributes[0].Value)
}

func TestCreateCheckoutURL_DraftOrderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": "variant not found"}`))
	}))
	defer server.Close()

	client := NewClient(Config{ShopDomain: "teststore.example.com", APIVersion: "2024-01"})
	client.adminURL = server.URL

	_, err := client.CreateCheckoutURL(context.Background(), "bob@example.com", 77)
	assert.Error(t, err)
}

func TestGetOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/orders/1001.json"))
		json.NewEncoder(w).Encode(map[string]any{
			"order": map[string]any{
				"id":    1001,
				"email": "carol@example.com",
				"tags":  "astrology,record_5",
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{ShopDomain: "teststore.example.com", APIVersion: "2024-01"})
	client.adminURL = server.URL

	order, err := client.GetOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), order.ID)
	assert.Equal(t, "carol@example.com", order.Email)

	id, found := ExtractRecordID(order)
	assert.True(t, found)
	assert.Equal(t, int64(5), id)
}
