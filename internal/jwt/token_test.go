package jwt

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer, err := NewIssuer("s3cret", nil, nil)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.CreateToken(Operator{ID: "op-1", Email: "ana@example.com"}, RoleOperator, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	op, err := issuer.ParseToken(token, RoleOperator)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if op.ID != "op-1" || op.Email != "ana@example.com" {
		t.Fatalf("unexpected operator %+v", op)
	}

	other, _ := NewIssuer("different", nil, nil)
	if _, err := other.ParseToken(token, RoleOperator); err == nil {
		t.Fatalf("expected a token signed with another secret to be rejected")
	}
	if _, err := issuer.ParseToken(token[:len(token)-1]+"x", RoleOperator); err == nil {
		t.Fatalf("expected a wrong role character to be rejected")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer, _ := NewIssuer("s3cret", nil, nil)
	token, err := issuer.CreateToken(Operator{ID: "op-1"}, RoleOperator, time.Now().Add(-time.Minute).Unix())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := issuer.ParseToken(token, RoleOperator); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestRefreshFlow(t *testing.T) {
	ctx := context.Background()
	issuer, _ := NewIssuer("s3cret", NewMemoryRefreshStore(nil), nil)
	tokens, err := issuer.CreateTokenWithRefresh(ctx, Operator{ID: "op-1", Email: "ana@example.com"}, RoleOperator)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	access, err := issuer.RefreshToken(ctx, tokens.RefreshToken, RoleOperator)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if op, err := issuer.ParseToken(access, RoleOperator); err != nil || op.ID != "op-1" {
		t.Fatalf("refreshed token invalid: %+v %v", op, err)
	}

	if err := issuer.Revoke(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := issuer.RefreshToken(ctx, tokens.RefreshToken, RoleOperator); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
}

func TestMemoryRefreshStoreExpires(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := NewMemoryRefreshStore(func() time.Time { return now })
	_ = store.Save(context.Background(), "tok", Operator{ID: "op-1"}, time.Hour)

	now = now.Add(2 * time.Hour)
	if _, err := store.Lookup(context.Background(), "tok"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected expired refresh token, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !ValidatePassword(hash, "correct horse") || ValidatePassword(hash, "wrong") {
		t.Fatalf("password validation mismatch")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", nil, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
