// Package token produces the opaque identifiers embedded in tracking
// links and pixels. Tokens are the sole external handle on a recipient,
// so they must be unguessable and globally unique.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	tokenBytes  = 48
	maxAttempts = 10
)

// ExistsFunc reports whether a token is already assigned. Usually backed
// by the recipient store's unique token column.
type ExistsFunc func(ctx context.Context, token string) (bool, error)

// Generator creates collision-checked recipient tokens.
type Generator struct {
	exists ExistsFunc
}

// NewGenerator creates a token generator. exists may be nil, in which
// case uniqueness relies solely on the 384-bit entropy.
func NewGenerator(exists ExistsFunc) *Generator {
	return &Generator{exists: exists}
}

// Token returns a new URL-safe tracking token, retrying on the
// astronomically unlikely collision up to a bounded number of attempts.
func (g *Generator) Token(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		t, err := random(tokenBytes)
		if err != nil {
			return "", err
		}
		if g.exists == nil {
			return t, nil
		}
		taken, err := g.exists(ctx, t)
		if err != nil {
			return "", fmt.Errorf("token uniqueness check: %w", err)
		}
		if !taken {
			return t, nil
		}
	}
	return "", fmt.Errorf("token generation: %d collisions in a row", maxAttempts)
}

func random(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
