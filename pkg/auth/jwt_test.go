package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.Claims) Credential {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-side-secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return Credential(token)
}

func TestInspectReadsClaimsWithoutKey(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, jwt.RegisteredClaims{
		Subject:   "dr.house@example.org",
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	info, err := Inspect(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Subject != "dr.house@example.org" || info.Email != "dr.house@example.org" {
		t.Errorf("unexpected subject/email %q/%q", info.Subject, info.Email)
	}
	if !info.ExpiresAt.Equal(exp) {
		t.Errorf("expires_at = %v, want %v", info.ExpiresAt, exp)
	}
	if info.Expired(time.Now()) {
		t.Error("token should not be expired yet")
	}
	if !info.Expired(exp.Add(time.Second)) {
		t.Error("token should be expired after exp")
	}
}

func TestInspectWithoutExpiryNeverExpires(t *testing.T) {
	info, err := Inspect(signed(t, jwt.RegisteredClaims{Subject: "a@example.org"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Expired(time.Now().Add(24 * 365 * time.Hour)) {
		t.Error("token without exp must never report expired")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	if !errors.Is(err, ErrTokenUnreadable) {
		t.Fatalf("expected ErrTokenUnreadable, got %v", err)
	}
}
