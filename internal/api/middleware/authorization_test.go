package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	internaljwt "sales-routing-backend/internal/jwt"
)

func TestValidateOperatorJWT(t *testing.T) {
	issuer, err := internaljwt.NewIssuer("test-secret", nil, nil)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	token, err := issuer.CreateToken(internaljwt.Operator{ID: "op-1", Email: "ana@example.com"}, internaljwt.RoleOperator, 0)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	var seen internaljwt.Operator
	handler := ValidateOperatorJWT(issuer)(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.status, rec.Code)
		}
	}
	if seen.ID != "op-1" {
		t.Fatalf("operator not placed on the context: %+v", seen)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://dashboard.example.com"}))(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight must not reach the handler")
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "https://dashboard.example.com" {
		t.Fatalf("unexpected preflight response %d %v", rec.Code, rec.Header())
	}

	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden preflight, got %d", rec.Code)
	}
}
