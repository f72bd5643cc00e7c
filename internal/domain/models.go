package domain

import "time"

// AstrologyRecord is one user's submitted birth data and computed reading.
// Result columns hold JSON produced by the reading pipeline; the zh columns
// carry the upstream payloads, the en columns their translations.
type AstrologyRecord struct {
	ID              int64
	Email           string
	Name            string
	BirthDate       time.Time
	BirthTime       string // "HH:MM"
	Gender          string // "Male" or "Female"
	LunarDate       string
	PreviewResultZH string
	PreviewResultEN string
	FullResultZH    string
	FullResultEN    string
	IsPurchased     bool
	ShopifyOrderID  string
	CreatedAt       time.Time
}

// Product is one of the three storefront tiles shown on the landing page.
type Product struct {
	ID          int64
	Name        string
	ImageURL    string
	RedirectURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TranslationPair is a glossary entry maintained by admins. Multi-line pairs
// are split line-by-line when both sides have the same number of lines.
type TranslationPair struct {
	ID          int64
	ChineseText string
	EnglishText string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SiteConfig is a single key/value setting. Keys are unique.
type SiteConfig struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}
