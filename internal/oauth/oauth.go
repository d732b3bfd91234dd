// Package oauth performs the federated login round trip. The provider only
// has to hand back a verified email; account handling happens elsewhere.
package oauth

import (
	"context"
	"errors"
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrUnverified    = errors.New("provider email not verified")
)

type Identity struct {
	Email    string
	Name     string
	Verified bool
}

type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// StateStore remembers issued state values until the callback consumes them.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) error
}
