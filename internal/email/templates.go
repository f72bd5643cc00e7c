package email

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f7f5f0; margin: 0; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h2 style="color: #6b4c9a; margin-top: 0;">Your Verification Code</h2>
    <p>Use the code below to verify your email address. It expires in {{.TTLMinutes}} minutes.</p>
    <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #2d2d2d; text-align: center; margin: 24px 0;">{{.Code}}</p>
    <p style="color: #888888; font-size: 12px;">If you did not request this code, you can safely ignore this email.</p>
  </div>
</body>
</html>`))

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f7f5f0; margin: 0; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h2 style="color: #6b4c9a; margin-top: 0;">Dear {{.Name}},</h2>
    <p>Thank you for your purchase. Your complete astrology reading is ready.</p>
    <div style="background: #faf8f4; border-radius: 6px; padding: 16px; margin: 16px 0;">
      {{.Body}}
    </div>
    <p style="color: #888888; font-size: 12px;">This reading was prepared for {{.Name}}. Keep it somewhere safe.</p>
  </div>
</body>
</html>`))

// RenderVerification builds the verification code email body.
func RenderVerification(code string, ttlMinutes int) (string, error) {
	var b strings.Builder
	err := verificationTemplate.Execute(&b, map[string]any{
		"Code":       code,
		"TTLMinutes": ttlMinutes,
	})
	if err != nil {
		return "", &SendError{Kind: KindTemplate, Message: "verification template failed", Cause: err}
	}
	return b.String(), nil
}

// RenderResult builds the reading result email body. body is trusted HTML
// produced by our own formatter.
func RenderResult(name, body string) (string, error) {
	var b strings.Builder
	err := resultTemplate.Execute(&b, map[string]any{
		"Name": name,
		"Body": template.HTML(body),
	})
	if err != nil {
		return "", &SendError{Kind: KindTemplate, Message: "result template failed", Cause: err}
	}
	return b.String(), nil
}

// FormatReadingBody turns a translated reading payload into simple HTML
// paragraphs. Nested structure flattens to section headings and text.
func FormatReadingBody(payload map[string]any) string {
	var b strings.Builder
	writeSection(&b, payload, 0)
	return b.String()
}

func writeSection(b *strings.Builder, node any, depth int) {
	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if depth == 0 {
				fmt.Fprintf(b, "<h3>%s</h3>\n", template.HTMLEscapeString(key))
			} else {
				fmt.Fprintf(b, "<p><strong>%s:</strong></p>\n", template.HTMLEscapeString(key))
			}
			writeSection(b, v[key], depth+1)
		}
	case []any:
		for _, item := range v {
			writeSection(b, item, depth)
		}
	case string:
		fmt.Fprintf(b, "<p>%s</p>\n", template.HTMLEscapeString(v))
	case float64:
		fmt.Fprintf(b, "<p>%v</p>\n", v)
	}
}
