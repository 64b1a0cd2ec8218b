package providers

import (
	"context"
	"errors"
)

// Noop returns empty drafts, leaving every image for manual review.
type Noop struct{}

func (Noop) Name() string  { return "noop" }
func (Noop) Model() string { return "" }

func (Noop) Describe(ctx context.Context, _ Request) (Description, error) {
	if err := ctx.Err(); err != nil {
		return Description{}, err
	}
	return Description{Provider: "noop"}, nil
}

// Unavailable stands in for a provider that cannot run, typically because its
// credential is missing. Every call fails with KindUnavailable.
type Unavailable struct {
	name   string
	model  string
	reason string
}

func NewUnavailable(name, model, reason string) *Unavailable {
	return &Unavailable{name: name, model: model, reason: reason}
}

func (u *Unavailable) Name() string   { return u.name }
func (u *Unavailable) Model() string  { return u.model }
func (u *Unavailable) Reason() string { return u.reason }

func (u *Unavailable) Describe(context.Context, Request) (Description, error) {
	return Description{}, &ProviderError{Provider: u.name, Kind: KindUnavailable, Err: errors.New(u.reason)}
}
