package server

import (
	"html"
	"net/url"
	"strings"
)

const maxCleanTextLen = 200

// allowedRedirectDomains bounds product redirect targets to prevent the
// landing page from becoming an open redirect.
var allowedRedirectDomains = []string{
	"fengculture.com",
	"universalfuture.online",
	"myshopify.com",
	"localhost",
	"127.0.0.1",
}

// cleanText trims, truncates and HTML-escapes user-supplied text before it
// is echoed back to browsers.
func cleanText(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > maxCleanTextLen {
		text = string(runes[:maxCleanTextLen])
	}
	return html.EscapeString(text)
}

// validRedirectURL reports whether a product redirect target is safe to
// serve. Empty and "#" placeholders pass, everything else must be an http(s)
// URL on an allowed domain.
func validRedirectURL(raw string) bool {
	if raw == "" || raw == "#" {
		return true
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.HasPrefix(parsed.Scheme, "http") {
		return false
	}

	domain := parsed.Hostname()
	for _, allowed := range allowedRedirectDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}
