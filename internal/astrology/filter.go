package astrology

import (
	"regexp"
	"strings"
)

// Field names that carry image content. The upstream responses embed base64
// portraits and chart renderings that bloat stored results for no benefit.
var imageFieldPatterns = []*regexp.Regexp{
	regexp.MustCompile(`img`),
	regexp.MustCompile(`image`),
	regexp.MustCompile(`pic`),
	regexp.MustCompile(`photo`),
	regexp.MustCompile(`avatar`),
	regexp.MustCompile(`thumb`),
	regexp.MustCompile(`icon`),
	regexp.MustCompile(`logo`),
}

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

// FilterImageFields recursively removes image-carrying fields from a decoded
// JSON structure, matching on both field names and value content.
func FilterImageFields(data any) any {
	switch v := data.(type) {
	case map[string]any:
		filtered := make(map[string]any, len(v))
		for key, value := range v {
			if isImageFieldName(key) {
				continue
			}
			if s, ok := value.(string); ok && isImageData(s) {
				continue
			}
			filtered[key] = FilterImageFields(value)
		}
		return filtered
	case []any:
		filtered := make([]any, len(v))
		for i, item := range v {
			filtered[i] = FilterImageFields(item)
		}
		return filtered
	default:
		return data
	}
}

func isImageFieldName(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range imageFieldPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}
	return false
}

// isImageData reports whether a string value looks like inline image
// content: a data URL, a long base64 blob, or an image file URL.
func isImageData(value string) bool {
	if len(value) < 10 {
		return false
	}
	lower := strings.ToLower(value)

	if strings.HasPrefix(lower, "data:image") {
		return true
	}

	if len(value) > 1000 && base64Pattern.MatchString(value) {
		return true
	}

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		for _, ext := range imageExtensions {
			if strings.Contains(lower, ext) {
				return true
			}
		}
	}

	return false
}
