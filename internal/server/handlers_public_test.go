package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/domain"
)

func validUserInfo() map[string]any {
	return map[string]any{
		"email":      "alice@example.com",
		"name":       "Alice",
		"birth_date": "1990-05-12",
		"birth_time": "08:30",
		"gender":     "Female",
	}
}

func TestSubmitInfo(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Readings = &mockReadings{
			createFn: func(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
				assert.Equal(t, "alice@example.com", email)
				return &domain.AstrologyRecord{ID: 42, LunarDate: "1990-04-18"}, nil
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/submit-info", validUserInfo(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(42), body["record_id"])
	assert.Equal(t, "1990-04-18", body["lunar_date"])
}

func TestSubmitInfo_Validation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		mutate func(m map[string]any)
		code   string
	}{
		{"bad email", func(m map[string]any) { m["email"] = "not-an-email" }, "INVALID_EMAIL"},
		{"empty name", func(m map[string]any) { m["name"] = "  " }, "BAD_REQUEST"},
		{"bad gender", func(m map[string]any) { m["gender"] = "other" }, "BAD_REQUEST"},
		{"bad date", func(m map[string]any) { m["birth_date"] = "12/05/1990" }, "BAD_REQUEST"},
		{"bad time", func(m map[string]any) { m["birth_time"] = "8am" }, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validUserInfo()
			tt.mutate(payload)

			rec := doJSON(t, srv, http.MethodPost, "/api/submit-info", payload, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
		})
	}
}

func TestSendVerification(t *testing.T) {
	var sentTo string
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			sendFn: func(ctx context.Context, email string) error {
				sentTo = email
				return nil
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/send-verification", map[string]any{"email": "bob@example.com"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob@example.com", sentTo)
}

func TestSendVerification_RateLimited(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			sendFn: func(ctx context.Context, email string) error { return domain.ErrSendRateLimited },
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/send-verification", map[string]any{"email": "bob@example.com"}, nil)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT", decodeBody(t, rec)["code"])
}

func TestVerifyEmail(t *testing.T) {
	record := &domain.AstrologyRecord{ID: 7, Email: "alice@example.com", Name: "Alice"}
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			verifyFn: func(ctx context.Context, email, code string) error {
				assert.Equal(t, "123456", code)
				return nil
			},
		}
		deps.Records = &mockRecords{
			latestByEmailFn: func(ctx context.Context, email string) (*domain.AstrologyRecord, error) {
				return record, nil
			},
		}
		deps.Readings = &mockReadings{
			processFn: func(ctx context.Context, r *domain.AstrologyRecord) map[string]any {
				return map[string]any{
					"astrology_results": map[string]any{"bazi": "result"},
					"shopify_url":       "https://shop.example.com/cart",
				}
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/verify-email", map[string]any{"email": "alice@example.com", "code": "123456"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "https://shop.example.com/cart", body["checkout_url"])
	assert.Contains(t, body, "astrology_results")
}

func TestVerifyEmail_BadCode(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			verifyFn: func(ctx context.Context, email, code string) error { return domain.ErrCodeInvalid },
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/verify-email", map[string]any{"email": "a@b.com", "code": "000000"}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CODE", decodeBody(t, rec)["code"])
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			verifyFn: func(ctx context.Context, email, code string) error { return domain.ErrCodeExpired },
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/verify-email", map[string]any{"email": "a@b.com", "code": "000000"}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CODE_EXPIRED", decodeBody(t, rec)["code"])
}

func TestVerifyEmail_NoRecord(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			verifyFn: func(ctx context.Context, email, code string) error { return nil },
		}
		deps.Records = &mockRecords{
			latestByEmailFn: func(ctx context.Context, email string) (*domain.AstrologyRecord, error) {
				return nil, domain.ErrRecordNotFound
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/verify-email", map[string]any{"email": "a@b.com", "code": "123456"}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyEmailFirst(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			verifyFn: func(ctx context.Context, email, code string) error { return nil },
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/verify-email-first", map[string]any{"email": "a@b.com", "code": "123456"}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["verified"])
}

func TestCalculate_NotVerified(t *testing.T) {
	created := false
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			recentFn: func(ctx context.Context, email string) (bool, error) { return false, nil },
		}
		deps.Readings = &mockReadings{
			createFn: func(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
				created = true
				return nil, nil
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/astrology/calculate", validUserInfo(), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NOT_VERIFIED", decodeBody(t, rec)["code"])
	assert.False(t, created)
}

func TestCalculate_CacheHit(t *testing.T) {
	created := false
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			recentFn: func(ctx context.Context, email string) (bool, error) { return true, nil },
		}
		deps.Cache = &mockCache{
			getFn: func(ctx context.Context, key string, dest any) (bool, error) {
				raw, _ := json.Marshal(map[string]any{"astrology_results": "cached"})
				require.NoError(t, json.Unmarshal(raw, dest))
				return true, nil
			},
		}
		deps.Readings = &mockReadings{
			createFn: func(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
				created = true
				return nil, nil
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/astrology/calculate", validUserInfo(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cached", decodeBody(t, rec)["astrology_results"])
	assert.False(t, created, "cache hit must skip the pipeline")
}

func TestCalculate_CacheMiss(t *testing.T) {
	var cachedKey string
	var cachedTTL time.Duration
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Verification = &mockVerifier{
			recentFn: func(ctx context.Context, email string) (bool, error) { return true, nil },
		}
		deps.Cache = &mockCache{
			setFn: func(ctx context.Context, key string, value any, ttl time.Duration) error {
				cachedKey = key
				cachedTTL = ttl
				return nil
			},
		}
		deps.Readings = &mockReadings{
			createFn: func(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
				return &domain.AstrologyRecord{ID: 1, Email: email, Name: name}, nil
			},
			processFn: func(ctx context.Context, r *domain.AstrologyRecord) map[string]any {
				return map[string]any{"astrology_results": "fresh", "shopify_url": "https://x"}
			},
		}
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/astrology/calculate", validUserInfo(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh", decodeBody(t, rec)["astrology_results"])
	assert.Contains(t, cachedKey, "alice@example.com")
	assert.Equal(t, time.Hour, cachedTTL)
}

func TestProducts(t *testing.T) {
	srv := newTestServer(t, func(deps *Dependencies) {
		deps.Products = &mockProducts{
			ensureThreeFn: func(ctx context.Context) ([]domain.Product, error) {
				return []domain.Product{
					{ID: 1, Name: "<script>alert(1)</script>", ImageURL: "https://cdn.example.com/a.png", RedirectURL: "https://evil.example.org/phish"},
					{ID: 2, Name: "Crystal Reading", RedirectURL: "https://shop.fengculture.com/item"},
					{ID: 3, Name: "Product 3", RedirectURL: "#"},
				}, nil
			},
		}
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/products", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 3)

	assert.NotContains(t, products[0]["name"], "<script>")
	assert.Equal(t, "#", products[0]["redirect_url"], "unlisted domain is replaced")
	assert.Equal(t, "https://shop.fengculture.com/item", products[1]["redirect_url"])
	assert.Equal(t, "#", products[2]["redirect_url"])
}
