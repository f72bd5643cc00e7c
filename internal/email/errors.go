package email

import (
	"fmt"
	"strings"
)

// Kind classifies a send failure so callers can decide whether to surface,
// retry, or drop.
type Kind int

const (
	KindSendFailed Kind = iota // generic delivery failure
	KindInvalidFormat
	KindNotExist
	KindBlacklisted
	KindRateLimited
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindInvalidFormat:
		return "invalid_format"
	case KindNotExist:
		return "not_exist"
	case KindBlacklisted:
		return "blacklisted"
	case KindRateLimited:
		return "rate_limited"
	case KindTemplate:
		return "template"
	default:
		return "send_failed"
	}
}

// SendError wraps a delivery failure with its classification.
type SendError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SendError) Unwrap() error { return e.Cause }

// Retryable reports whether a resend might succeed.
func (e *SendError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindSendFailed:
		return true
	default:
		return false
	}
}

// ClassifySMTPError maps an SMTP failure to a SendError by inspecting the
// server response text. Unrecognized failures classify as send_failed.
func ClassifySMTPError(err error) *SendError {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "550") && (strings.Contains(msg, "no such user") || strings.Contains(msg, "user unknown") || strings.Contains(msg, "does not exist")):
		return &SendError{Kind: KindNotExist, Message: "recipient does not exist", Cause: err}
	case strings.Contains(msg, "blacklist") || strings.Contains(msg, "blocked") || strings.Contains(msg, "554"):
		return &SendError{Kind: KindBlacklisted, Message: "recipient or sender blocked", Cause: err}
	case strings.Contains(msg, "rate") || strings.Contains(msg, "too many") || strings.Contains(msg, "421") || strings.Contains(msg, "450"):
		return &SendError{Kind: KindRateLimited, Message: "provider rate limit hit", Cause: err}
	default:
		return &SendError{Kind: KindSendFailed, Message: "delivery failed", Cause: err}
	}
}
