package astrology

import "strings"

const (
	maskChar          = "*"
	defaultPreviewLen = 20
	maskRatio         = 0.7
	maxMaskChars      = 10
	teaserText        = "...解锁查看完整内容"
)

// MaskText hides the tail of a text value: keep a readable prefix, replace a
// share of the remainder with mask characters, and append the unlock teaser.
// Texts at or under the preview length pass through untouched.
func MaskText(text string, previewLength int) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}

	remaining := len(runes) - previewLength
	maskLength := int(float64(remaining) * maskRatio)
	if maskLength > maxMaskChars {
		maskLength = maxMaskChars
	}

	return string(runes[:previewLength]) + strings.Repeat(maskChar, maskLength) + teaserText
}

// MaskPayload walks a decoded JSON structure and masks every string value
// longer than the preview length. Keys are left intact so the client can
// still render the locked sections.
func MaskPayload(data any, previewLength int) any {
	switch v := data.(type) {
	case map[string]any:
		masked := make(map[string]any, len(v))
		for key, value := range v {
			masked[key] = MaskPayload(value, previewLength)
		}
		return masked
	case []any:
		masked := make([]any, len(v))
		for i, item := range v {
			masked[i] = MaskPayload(item, previewLength)
		}
		return masked
	case string:
		return MaskText(v, previewLength)
	default:
		return data
	}
}
