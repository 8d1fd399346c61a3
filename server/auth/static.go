package auth

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StaticValidator validates tokens against a fixed map. Only suitable for
// tests; it counts calls so tests can assert when validation happened.
type StaticValidator struct {
	tokens map[string]Identity
	calls  atomic.Int64
}

// NewStaticValidator returns a validator accepting exactly the given tokens.
func NewStaticValidator(tokens map[string]Identity) *StaticValidator {
	return &StaticValidator{tokens: tokens}
}

// Validate looks the token up in the map.
func (v *StaticValidator) Validate(_ context.Context, token string) (Identity, error) {
	v.calls.Add(1)
	identity, ok := v.tokens[token]
	if !ok {
		return Identity{}, fmt.Errorf("unknown token: %w", ErrUnauthenticated)
	}
	return identity, nil
}

// Calls reports how many validations have been attempted.
func (v *StaticValidator) Calls() int64 {
	return v.calls.Load()
}
