package astrology

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/202030481266/FengWenServer/internal/domain"
	"github.com/202030481266/FengWenServer/internal/metrics"
)

// ReadingAPI fetches raw readings from the fortune-telling provider.
type ReadingAPI interface {
	PreviewResult(ctx context.Context, name, gender string, birthDate time.Time, birthTime string) (map[string]any, error)
	FullResults(ctx context.Context, name, gender string, birthDate time.Time, birthTime string) map[string]any
}

// Translator produces the English rendition of a Chinese reading.
type Translator interface {
	TranslateReading(ctx context.Context, payload map[string]any, subjectName string) (map[string]any, error)
}

// CheckoutCreator builds a Shopify checkout URL bound to a record.
type CheckoutCreator interface {
	CreateCheckoutURL(ctx context.Context, email string, recordID int64) (string, error)
}

// Service runs the reading pipeline: create record, fetch preview, fetch
// full results, translate, attach checkout URL. Every stage is idempotent
// against the stored record so retries and the webhook path can re-enter
// the pipeline safely.
type Service struct {
	records             domain.RecordRepository
	api                 ReadingAPI
	translator          Translator
	checkout            CheckoutCreator
	fallbackCheckoutURL string
}

func NewService(records domain.RecordRepository, api ReadingAPI, translator Translator, checkout CheckoutCreator, fallbackCheckoutURL string) *Service {
	return &Service{
		records:             records,
		api:                 api,
		translator:          translator,
		checkout:            checkout,
		fallbackCheckoutURL: fallbackCheckoutURL,
	}
}

// CreateRecord validates the birth date, derives the lunar date and inserts
// a fresh record.
func (s *Service) CreateRecord(ctx context.Context, email, name, birthDate, birthTime, gender string) (*domain.AstrologyRecord, error) {
	parsed, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return nil, fmt.Errorf("invalid birth date %q: %w", birthDate, err)
	}

	record, err := s.records.Create(ctx, &domain.AstrologyRecord{
		Email:     email,
		Name:      name,
		BirthDate: parsed,
		BirthTime: birthTime,
		Gender:    gender,
		LunarDate: GregorianToLunar(parsed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	return record, nil
}

// responseOK reports whether an upstream response carries usable data.
func responseOK(payload map[string]any) bool {
	if payload == nil {
		return false
	}
	errcode, ok := payload["errcode"].(float64)
	if !ok || errcode != 0 {
		return false
	}
	return payload["data"] != nil
}

// GeneratePreview fetches and stores the bazi preview with its English
// translation. Skips work already done.
func (s *Service) GeneratePreview(ctx context.Context, record *domain.AstrologyRecord) error {
	if record.PreviewResultZH != "" {
		return nil
	}

	preview, err := s.api.PreviewResult(ctx, record.Name, record.Gender, record.BirthDate, record.BirthTime)
	if err != nil {
		return fmt.Errorf("preview fetch failed: %w", err)
	}
	if !responseOK(preview) {
		return fmt.Errorf("preview response unusable for record %d", record.ID)
	}

	translated, err := s.translator.TranslateReading(ctx, preview, record.Name)
	if err != nil {
		return fmt.Errorf("preview translation failed: %w", err)
	}

	zh, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("failed to marshal preview: %w", err)
	}
	en, err := json.Marshal(translated)
	if err != nil {
		return fmt.Errorf("failed to marshal translated preview: %w", err)
	}

	if err := s.records.SaveResults(ctx, record.ID, string(zh), string(en), "", ""); err != nil {
		return err
	}
	record.PreviewResultZH = string(zh)
	record.PreviewResultEN = string(en)
	metrics.ReadingsGenerated.WithLabelValues("preview").Inc()
	return nil
}

// GenerateFull fetches all three readings and stores whichever endpoints
// succeeded. Skips work already done.
func (s *Service) GenerateFull(ctx context.Context, record *domain.AstrologyRecord) error {
	if record.FullResultZH != "" {
		return nil
	}

	results := s.api.FullResults(ctx, record.Name, record.Gender, record.BirthDate, record.BirthTime)

	valid := make(map[string]any)
	for name, result := range results {
		payload, ok := result.(map[string]any)
		if !ok {
			continue
		}
		if _, failed := payload["error"]; failed {
			slog.Warn("Full reading endpoint failed", "endpoint", name, "record_id", record.ID)
			continue
		}
		if responseOK(payload) {
			valid[name] = payload
		}
	}

	if len(valid) == 0 {
		return fmt.Errorf("no usable full results for record %d", record.ID)
	}

	zh, err := json.Marshal(valid)
	if err != nil {
		return fmt.Errorf("failed to marshal full results: %w", err)
	}

	if err := s.records.SaveResults(ctx, record.ID, "", "", string(zh), ""); err != nil {
		return err
	}
	record.FullResultZH = string(zh)
	metrics.ReadingsGenerated.WithLabelValues("full").Inc()
	return nil
}

// GenerateTranslation produces the English version of the stored full
// results. Skips work already done or not yet possible.
func (s *Service) GenerateTranslation(ctx context.Context, record *domain.AstrologyRecord) error {
	if record.FullResultEN != "" || record.FullResultZH == "" {
		return nil
	}

	var full map[string]any
	if err := json.Unmarshal([]byte(record.FullResultZH), &full); err != nil {
		return fmt.Errorf("stored full result unreadable for record %d: %w", record.ID, err)
	}

	translated, err := s.translator.TranslateReading(ctx, full, record.Name)
	if err != nil {
		return fmt.Errorf("full translation failed: %w", err)
	}

	en, err := json.Marshal(translated)
	if err != nil {
		return fmt.Errorf("failed to marshal translated full results: %w", err)
	}

	if err := s.records.SaveResults(ctx, record.ID, "", "", "", string(en)); err != nil {
		return err
	}
	record.FullResultEN = string(en)
	metrics.ReadingsGenerated.WithLabelValues("translation").Inc()
	return nil
}

// ProcessComplete runs the whole pipeline and formats the client response.
// Stage failures are logged, not fatal: the response degrades to whatever
// results exist.
func (s *Service) ProcessComplete(ctx context.Context, record *domain.AstrologyRecord) map[string]any {
	if err := s.GeneratePreview(ctx, record); err != nil {
		slog.Error("Preview stage failed", "record_id", record.ID, "error", err)
	}
	if err := s.GenerateFull(ctx, record); err != nil {
		slog.Error("Full results stage failed", "record_id", record.ID, "error", err)
	}
	if err := s.GenerateTranslation(ctx, record); err != nil {
		slog.Error("Translation stage failed", "record_id", record.ID, "error", err)
	}

	checkoutURL, err := s.checkout.CreateCheckoutURL(ctx, record.Email, record.ID)
	if err != nil {
		slog.Error("Checkout URL creation failed", "record_id", record.ID, "error", err)
		checkoutURL = s.fallbackCheckoutURL
	}

	return s.FormatResponse(record, checkoutURL)
}

// FormatResponse assembles the client payload from whatever results the
// record holds. Unpurchased records get the masked rendition.
func (s *Service) FormatResponse(record *domain.AstrologyRecord, checkoutURL string) map[string]any {
	if checkoutURL == "" {
		checkoutURL = s.fallbackCheckoutURL
	}

	var results any
	switch {
	case record.FullResultEN != "":
		results = decodeOrWrap(record.FullResultEN)
	case record.PreviewResultEN != "":
		results = decodeOrWrap(record.PreviewResultEN)
	default:
		// Nothing to mask yet, the reading is still in flight.
		return map[string]any{
			"astrology_results": map[string]any{
				"base_info": map[string]any{
					"name":       record.Name,
					"birth_date": record.BirthDate.Format("2006-01-02"),
					"birth_time": record.BirthTime,
					"gender":     record.Gender,
				},
				"message": fmt.Sprintf("Dear %s, your astrology reading is being processed.", record.Name),
				"status":  "processing",
			},
			"shopify_url": checkoutURL,
		}
	}

	if !record.IsPurchased {
		results = MaskPayload(results, defaultPreviewLen)
	}

	response := map[string]any{
		"astrology_results": results,
		"shopify_url":       checkoutURL,
	}

	var chinese any
	switch {
	case record.FullResultZH != "":
		chinese = decodeOrWrap(record.FullResultZH)
	case record.PreviewResultZH != "":
		chinese = decodeOrWrap(record.PreviewResultZH)
	}
	if chinese != nil {
		if !record.IsPurchased {
			chinese = MaskPayload(chinese, defaultPreviewLen)
		}
		response["chinese"] = chinese
	}

	return response
}

func decodeOrWrap(raw string) any {
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]any{"message": raw}
	}
	return decoded
}
