package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// SignatureHeader carries the webhook HMAC on Shopify requests.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

var customerNotePattern = regexp.MustCompile(`record_(\d+)`)

// VerifyWebhook checks the HMAC-SHA256 signature (base64) of a webhook body
// with a constant-time compare. An unconfigured secret accepts everything,
// which only development setups should rely on.
func (c *Client) VerifyWebhook(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		slog.Warn("Webhook secret not configured, accepting unverified webhook")
		return true
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		slog.Warn("Invalid webhook signature")
		return false
	}
	return true
}

// ExtractRecordID digs the astrology record id out of an order. Checkout
// methods scatter it across different fields, so every known location is
// tried in order.
func ExtractRecordID(order *Order) (int64, bool) {
	// 1. Line item properties
	for _, item := range order.LineItems {
		for _, prop := range item.Properties {
			name := strings.ToLower(prop.Name)
			if name == "record_id" || name == "record id" {
				return parseRecordID(prop.Value)
			}
		}
	}

	// 2. Note attributes
	for _, attr := range order.NoteAttributes {
		if strings.ToLower(attr.Name) == "record_id" {
			return parseRecordID(attr.Value)
		}
	}

	// 3. Order note ("... Record ID: 42")
	if idx := strings.Index(order.Note, "Record ID:"); idx >= 0 {
		rest := strings.Fields(strings.TrimSpace(order.Note[idx+len("Record ID:"):]))
		if len(rest) > 0 {
			return parseRecordID(rest[0])
		}
	}

	// 4. Tags ("astrology,record_42")
	if strings.Contains(order.Tags, "record_") {
		for _, tag := range strings.Split(order.Tags, ",") {
			tag = strings.TrimSpace(tag)
			if strings.HasPrefix(tag, "record_") {
				return parseRecordID(strings.TrimPrefix(tag, "record_"))
			}
		}
	}

	// 5. Cart attributes
	if raw, ok := order.CartAttributes["record_id"]; ok {
		switch v := raw.(type) {
		case string:
			return parseRecordID(v)
		case float64:
			return int64(v), true
		}
	}

	// 6. Customer note ("record_42")
	if order.Customer != nil {
		if match := customerNotePattern.FindStringSubmatch(order.Customer.Note); match != nil {
			return parseRecordID(match[1])
		}
	}

	// 7. Order attributes
	for _, attr := range order.OrderAttributes {
		if strings.ToLower(attr.Name) == "record_id" {
			return parseRecordID(attr.Value)
		}
	}

	slog.Warn("Could not find record id in order", "order_id", order.ID)
	return 0, false
}

func parseRecordID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
