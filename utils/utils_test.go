package utils

import (
	"net/http/httptest"
	"testing"
)

func TestCreateTokenIsUnique(t *testing.T) {
	a, b := CreateToken(), CreateToken()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
}

func TestRealClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	if got := RealClientIP(r); got != "10.0.0.7" {
		t.Fatalf("expected remote host, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := RealClientIP(r); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
