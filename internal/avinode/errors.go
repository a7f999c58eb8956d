package avinode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAuthFailure    = errors.New("authentication rejected by marketplace")
	ErrRateLimited    = errors.New("rate limited by marketplace")
	ErrUnreachable    = errors.New("marketplace unreachable")
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError is any other 4xx/5xx answer from the marketplace. Message is
// sanitized before the error is constructed.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace api error (status %d): %s", e.Status, e.Message)
}

// MalformedIdentifierError reports an identifier that cannot be resolved
// to a trip or RFQ. Never retried.
type MalformedIdentifierError struct {
	ID string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier %q", e.ID)
}

// MissingCriticalFieldError reports a source record whose absence of a
// critical field makes it unusable. The affected record is dropped, never
// substituted.
type MissingCriticalFieldError struct {
	Entity string
	Field  string
}

func (e *MissingCriticalFieldError) Error() string {
	return fmt.Sprintf("missing critical field %q on %s", e.Field, e.Entity)
}

// Sanitizer scrubs configured credentials from any outbound message.
// Credentials are never formatted into errors at construction time; this
// is a second layer against accidental leakage through upstream bodies.
type Sanitizer struct {
	secrets []string
}

func NewSanitizer(secrets ...string) *Sanitizer {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &Sanitizer{secrets: kept}
}

func (s *Sanitizer) Clean(msg string) string {
	for _, secret := range s.secrets {
		msg = strings.ReplaceAll(msg, secret, "[redacted]")
	}
	return msg
}
