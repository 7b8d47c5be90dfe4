package token_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/praesidio-sec/phishsim/internal/token"
)

func TestTokenIsURLSafe(t *testing.T) {
	g := token.NewGenerator(nil)
	tok, err := g.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if escaped := url.PathEscape(tok); escaped != tok {
		t.Fatalf("token %q is not URL-safe", tok)
	}
}

func TestTokenUniquePerCall(t *testing.T) {
	g := token.NewGenerator(nil)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := g.Token(context.Background())
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestTokenRetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls < 3, nil // first two candidates are "taken"
	}
	g := token.NewGenerator(exists)
	tok, err := g.Token(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok == "" {
		t.Fatal("empty token")
	}
	if calls != 3 {
		t.Fatalf("expected 3 uniqueness checks, got %d", calls)
	}
}

func TestTokenGivesUpAfterRepeatedCollisions(t *testing.T) {
	exists := func(_ context.Context, _ string) (bool, error) { return true, nil }
	g := token.NewGenerator(exists)
	if _, err := g.Token(context.Background()); err == nil {
		t.Fatal("expected error when every candidate collides")
	}
}
