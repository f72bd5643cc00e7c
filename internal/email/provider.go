package email

import (
	"context"
	"regexp"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Provider delivers messages. Implementations return a *SendError on
// failure so the service can classify without knowing the transport.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidFormat reports whether the address passes the basic format check.
func ValidFormat(address string) bool {
	return emailPattern.MatchString(address)
}
