package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
)

// Reason classifies a provider failure.
type Reason string

const (
	ReasonNetwork       Reason = "network"
	ReasonAuth          Reason = "auth"
	ReasonTimeout       Reason = "timeout"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonUnsupported   Reason = "unsupported"
	ReasonMalformed     Reason = "malformed"
	ReasonNotConfigured Reason = "not_configured"
	ReasonServer        Reason = "server"
)

// ErrNoProviderAvailable is returned when no provider is configured.
var ErrNoProviderAvailable = errors.New("no provider available")

// ErrUnknownProvider is returned for a name that is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Error is a failure of a single provider call.
type Error struct {
	Provider string
	Reason   Reason
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a provider failure.
func NewError(provider string, reason Reason, err error) *Error {
	return &Error{Provider: provider, Reason: reason, Err: err}
}

// AggregateError carries every per-provider failure of a fallback run.
type AggregateError struct {
	Errors map[string]string
}

func (e *AggregateError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Errors[name])
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// reasonForStatus maps an HTTP status to a failure reason.
func reasonForStatus(status int) Reason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusTooManyRequests:
		return ReasonRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ReasonTimeout
	case status == http.StatusUnsupportedMediaType || status == http.StatusRequestEntityTooLarge:
		return ReasonUnsupported
	case status >= 500:
		return ReasonServer
	default:
		return ReasonMalformed
	}
}

// reasonForTransport classifies an error raised before any response arrived.
func reasonForTransport(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}

// httpError builds an Error from a non-2xx response.
func httpError(provider string, status int, body string) *Error {
	if len(body) > 300 {
		body = body[:300]
	}
	return NewError(provider, reasonForStatus(status), fmt.Errorf("HTTP %d: %s", status, body))
}
