package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue("driver-1", RoleDriver)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.Subject != "driver-1" || claims.Role != RoleDriver {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret-a", time.Hour).Issue("rider-1", RoleRider)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := NewTokens("secret-b", time.Hour).Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tokens := NewTokens("secret", -time.Minute)

	raw, err := tokens.Issue("rider-1", RoleRider)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := tokens.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for an expired token, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := NewTokens("secret", time.Hour).Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
