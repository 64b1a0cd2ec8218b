// Package providers defines the contract for services that draft image
// descriptions, together with a static registry of the built-in variants.
//
// Providers only ever produce drafts. A human approves a draft in the alt-text
// sidecar before the writer injects it.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request carries one image and the context shown next to it.
type Request struct {
	ImageID string
	// Image is the encoded payload; MediaType names its format.
	Image           []byte
	MediaType       string
	Page            int
	Caption         string
	SurroundingText string
	DocumentTitle   string
}

// Description is a provider's draft for one image.
type Description struct {
	Text     string
	Provider string
	Model    string
}

// Provider drafts a description for an image. Implementations must be safe
// for concurrent use and must honour ctx cancellation.
type Provider interface {
	Name() string
	Model() string
	Describe(ctx context.Context, req Request) (Description, error)
}

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindTimeout     ErrorKind = "timeout"
	KindAuth        ErrorKind = "auth"
	KindUnavailable ErrorKind = "unavailable"
	KindResponse    ErrorKind = "response"
)

// ProviderError reports a failed Describe call.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// classify wraps err into a ProviderError. status is the HTTP status of the
// failed call, or zero when no response was received.
func classify(provider string, status int, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	kind := KindNetwork
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = KindTimeout
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests, status >= 500:
		kind = KindUnavailable
	case status >= 400:
		kind = KindResponse
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			kind = KindTimeout
		}
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

func emptyResponse(provider string) error {
	return &ProviderError{Provider: provider, Kind: KindResponse, Err: errors.New("empty response")}
}
