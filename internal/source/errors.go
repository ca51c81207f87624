package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies an upstream failure.
type Kind int

const (
	// KindUnavailable is a transport-level failure: connection refused,
	// DNS, non-2xx status.
	KindUnavailable Kind = iota

	// KindTimeout means the fetch deadline expired; the in-flight request
	// was abandoned.
	KindTimeout

	// KindMalformed means the payload did not parse as a sequence of
	// order-shaped records.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	default:
		return "unavailable"
	}
}

// UpstreamError wraps a provider failure with its classification.
type UpstreamError struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsUnavailable reports whether err is an upstream transport failure.
func IsUnavailable(err error) bool {
	return kindOf(err) == KindUnavailable
}

// IsMalformed reports whether err is an upstream payload parse failure.
func IsMalformed(err error) bool {
	return kindOf(err) == KindMalformed
}

func kindOf(err error) Kind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return -1
}

func timeoutErr(provider string, err error) *UpstreamError {
	return &UpstreamError{Kind: KindTimeout, Provider: provider, Err: err}
}

func unavailableErr(provider string, err error) *UpstreamError {
	return &UpstreamError{Kind: KindUnavailable, Provider: provider, Err: err}
}

func malformedErr(provider string, err error) *UpstreamError {
	return &UpstreamError{Kind: KindMalformed, Provider: provider, Err: err}
}

// classifyTransport distinguishes deadline expiry from other transport
// failures.
func classifyTransport(provider string, err error) *UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutErr(provider, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutErr(provider, err)
	}
	return unavailableErr(provider, err)
}
