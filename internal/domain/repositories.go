package domain

import (
	"context"
	"time"
)

// RecordRepository persists astrology records in PostgreSQL.
type RecordRepository interface {
	Create(ctx context.Context, record *AstrologyRecord) (*AstrologyRecord, error)
	GetByID(ctx context.Context, id int64) (*AstrologyRecord, error)
	GetLatestByEmail(ctx context.Context, email string) (*AstrologyRecord, error)
	SaveResults(ctx context.Context, id int64, previewZH, previewEN, fullZH, fullEN string) error
	// MarkPurchased sets is_purchased and records the Shopify order id.
	// Returns ErrOrderAlreadyProcessed when the order id was already consumed
	// by any record, keeping webhook processing idempotent.
	MarkPurchased(ctx context.Context, id int64, shopifyOrderID string) error
}

// ProductRepository persists storefront products.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	// EnsureThree backfills placeholder rows until at least three products
	// exist, then returns the first three by id.
	EnsureThree(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, id int64, name, imageURL, redirectURL *string) (*Product, error)
}

// TranslationRepository persists the admin-maintained glossary.
type TranslationRepository interface {
	List(ctx context.Context) ([]TranslationPair, error)
	Create(ctx context.Context, chineseText, englishText string) (*TranslationPair, error)
	Update(ctx context.Context, id int64, chineseText, englishText string) (*TranslationPair, error)
	Delete(ctx context.Context, id int64) error
}

// SiteConfigRepository persists key/value site settings with upsert semantics.
type SiteConfigRepository interface {
	Get(ctx context.Context, key string) (*SiteConfig, error)
	Set(ctx context.Context, key, value string) (*SiteConfig, error)
	List(ctx context.Context) ([]SiteConfig, error)
}

// VerificationStore holds verification codes and verified flags in Redis.
type VerificationStore interface {
	StoreCode(ctx context.Context, email, code string, ttl time.Duration) error
	GetCode(ctx context.Context, email string) (string, error)
	// ConsumeCode deletes the code and sets the verified flag atomically.
	ConsumeCode(ctx context.Context, email string, verifiedTTL time.Duration) error
	IsVerified(ctx context.Context, email string) (bool, error)
	Clear(ctx context.Context, email string) error
}

// SendLimiter rate-limits verification email sends per address.
type SendLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
}

// ResultCache caches computed reading responses keyed by request hash.
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidateEmail(ctx context.Context, email string) error
}
