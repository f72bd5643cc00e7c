package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/202030481266/FengWenServer/internal/metrics"
)

const (
	maxConcurrentBatches = 32
	batchSize            = 2
)

var numberedLinePattern = regexp.MustCompile(`^(\d+)\.\s+(.+)`)

const systemPromptBase = `You are a professional Chinese-English translator for traditional astrology.

RULES:
1. Translate ALL numbered items EXACTLY - no explanations, no additions
2. Return in same format: "1. [translation]", "2. [translation]", etc.
3. Translate completely - no Chinese characters left
4. Keep mystical fortune-telling tone
5. Use proper astrology terms

Terms:
- 乾造 = Male Fortune
- 坤造 = Female Fortune
- 正印 = Direct Seal
- 偏印 = Indirect Seal
- 正官 = Direct Officer
- 五行 = Five Elements
- 八字 = Eight Characters`

// Service translates the Chinese reading payloads into English through a
// chat-completion API (DeepSeek-compatible). Texts are collected from the
// JSON structure, batched into small numbered prompts, translated
// concurrently, and re-applied over keys and values.
type Service struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	model      string
	terms      *TermsManager
}

// NewService creates a translation service. terms may be nil, in which case
// only the built-in glossary is used.
func NewService(apiKey, apiURL, model string, terms *TermsManager) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		apiKey:     apiKey,
		apiURL:     apiURL,
		model:      model,
		terms:      terms,
	}
}

// HasChinese reports whether the text contains CJK unified ideographs.
func HasChinese(text string) bool {
	for _, r := range text {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// FindChineseTexts walks a decoded JSON structure and collects every unique
// Chinese text: map keys, whole string values, and the individual lines of
// multi-line values.
func FindChineseTexts(data any) []string {
	var texts []string
	var extract func(any)
	extract = func(node any) {
		switch v := node.(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				if trimmed := strings.TrimSpace(key); HasChinese(trimmed) && trimmed != "" {
					texts = append(texts, trimmed)
				}
				extract(v[key])
			}
		case []any:
			for _, item := range v {
				extract(item)
			}
		case string:
			trimmed := strings.TrimSpace(v)
			if !HasChinese(trimmed) || trimmed == "" {
				return
			}
			for _, line := range strings.Split(trimmed, "\n") {
				line = strings.TrimSpace(line)
				if line != "" && HasChinese(line) {
					texts = append(texts, line)
				}
			}
			texts = append(texts, trimmed)
		}
	}
	extract(data)

	seen := make(map[string]bool, len(texts))
	unique := make([]string, 0, len(texts))
	for _, text := range texts {
		if !seen[text] {
			seen[text] = true
			unique = append(unique, text)
		}
	}
	return unique
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *Service) systemPrompt(texts []string) string {
	if s.terms == nil {
		return systemPromptBase + "\n\nOnly return numbered translations."
	}

	selected := s.terms.SelectTerms(texts)
	if len(selected) == 0 {
		return systemPromptBase + "\n\nOnly return numbered translations."
	}

	keys := make([]string, 0, len(selected))
	for term := range selected {
		keys = append(keys, term)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(systemPromptBase)
	b.WriteString("\n\nGlossary:")
	for _, term := range keys {
		b.WriteString("\n- ")
		b.WriteString(term)
		b.WriteString(" = ")
		b.WriteString(selected[term])
	}
	b.WriteString("\n\nOnly return numbered translations.")
	return b.String()
}

// translateBatch translates one small batch in a single API call. Items
// missing from the reply fall back to their original text.
func (s *Service) translateBatch(ctx context.Context, texts []string, prompt string) map[string]string {
	if len(texts) == 0 {
		return map[string]string{}
	}

	numbered := make([]string, len(texts))
	for i, text := range texts {
		numbered[i] = strconv.Itoa(i+1) + ". " + text
	}

	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: "Translate:\n\n" + strings.Join(numbered, "\n\n")},
		},
		Temperature: 0.3,
		TopP:        0.8,
		MaxTokens:   2048,
	}

	content, err := s.complete(ctx, payload)
	if err != nil {
		slog.Error("Translation batch failed, keeping originals", "batch_size", len(texts), "error", err)
		metrics.TranslationBatches.WithLabelValues("error").Inc()
		fallback := make(map[string]string, len(texts))
		for _, text := range texts {
			fallback[text] = text
		}
		return fallback
	}

	translations := make(map[string]string, len(texts))
	for _, line := range strings.Split(content, "\n") {
		match := numberedLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil || index < 1 || index > len(texts) {
			continue
		}
		translations[texts[index-1]] = strings.TrimSpace(match[2])
	}

	for _, text := range texts {
		if _, ok := translations[text]; !ok {
			slog.Warn("Translation missing for item, keeping original", "text_prefix", prefix(text, 50))
			translations[text] = text
		}
	}

	metrics.TranslationBatches.WithLabelValues("success").Inc()
	return translations
}

func (s *Service) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

// BatchTranslate translates the texts with bounded concurrency. Per-batch
// failures degrade to original text, so the returned map always covers every
// input.
func (s *Service) BatchTranslate(ctx context.Context, texts []string) map[string]string {
	if len(texts) == 0 {
		return map[string]string{}
	}

	prompt := s.systemPrompt(texts)

	var batches [][]string
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[i:end])
	}

	slog.Info("Translating texts", "texts", len(texts), "batches", len(batches))

	var mu sync.Mutex
	all := make(map[string]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for _, batch := range batches {
		g.Go(func() error {
			result := s.translateBatch(gctx, batch, prompt)
			mu.Lock()
			for k, v := range result {
				all[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return all
}

// ApplyTranslations rewrites a decoded JSON structure with the translation
// map, covering map keys, whole string values, and individual lines of
// multi-line values.
func ApplyTranslations(data any, translations map[string]string) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			newKey := key
			if HasChinese(key) {
				if translated, ok := translations[strings.TrimSpace(key)]; ok {
					newKey = translated
				}
			}
			result[newKey] = ApplyTranslations(value, translations)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = ApplyTranslations(item, translations)
		}
		return result
	case string:
		if !HasChinese(v) {
			return v
		}
		if translated, ok := translations[strings.TrimSpace(v)]; ok {
			return translated
		}

		lines := strings.Split(v, "\n")
		changed := false
		for i, line := range lines {
			if translated, ok := translations[strings.TrimSpace(line)]; ok {
				lines[i] = translated
				changed = true
			}
		}
		if changed {
			return strings.Join(lines, "\n")
		}
		return v
	default:
		return data
	}
}

// TranslateReading is the main entry point: collect Chinese texts, refresh
// the glossary, translate, and re-apply. A payload without Chinese text is
// returned unchanged.
func (s *Service) TranslateReading(ctx context.Context, payload map[string]any, subjectName string) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("nothing to translate")
	}

	texts := FindChineseTexts(payload)
	if len(texts) == 0 {
		return payload, nil
	}

	if s.terms != nil {
		s.terms.EnsureFresh(ctx)
	}

	translations := s.BatchTranslate(ctx, texts)

	// The subject's name stays as-is even when it is Chinese.
	if subjectName != "" {
		delete(translations, strings.TrimSpace(subjectName))
	}

	translated := ApplyTranslations(payload, translations).(map[string]any)
	return translated, nil
}

func prefix(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
