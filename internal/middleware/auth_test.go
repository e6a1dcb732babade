package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	sessions := NewSessions(time.Hour)
	token := sessions.Create()
	handler := AuthMiddleware(sessions, ok)

	tests := []struct {
		name     string
		method   string
		path     string
		cookie   string
		expected int
	}{
		{"login page is public", http.MethodGet, "/login", "", http.StatusTeapot},
		{"login endpoint is public", http.MethodPost, "/auth/login", "", http.StatusTeapot},
		{"static is public", http.MethodGet, "/static/app.js", "", http.StatusTeapot},
		{"api without cookie", http.MethodGet, "/api/cameras", "", http.StatusUnauthorized},
		{"logs without cookie", http.MethodGet, "/logs/info", "", http.StatusUnauthorized},
		{"page without cookie redirects", http.MethodGet, "/", "", http.StatusSeeOther},
		{"api with session", http.MethodGet, "/api/cameras", token, http.StatusTeapot},
		{"forged cookie", http.MethodDelete, "/api/screenshots/clear", "true", http.StatusUnauthorized},
		{"forged cookie on logs", http.MethodPost, "/logs/info/clear", "authenticated", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestSessions_CreateValidRevoke(t *testing.T) {
	sessions := NewSessions(time.Hour)

	a := sessions.Create()
	b := sessions.Create()
	if a == b {
		t.Fatal("Expected distinct tokens")
	}
	if !sessions.Valid(a) || !sessions.Valid(b) {
		t.Fatal("Expected issued tokens to be valid")
	}
	if sessions.Valid("") || sessions.Valid("true") {
		t.Error("Expected unknown tokens to be rejected")
	}

	sessions.Revoke(a)
	if sessions.Valid(a) {
		t.Error("Expected revoked token to be rejected")
	}
	if !sessions.Valid(b) {
		t.Error("Revoking one token should not affect another")
	}
}

func TestSessions_Expiry(t *testing.T) {
	sessions := NewSessions(time.Minute)
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	sessions.now = func() time.Time { return now }

	token := sessions.Create()
	now = now.Add(59 * time.Second)
	if !sessions.Valid(token) {
		t.Fatal("Expected token to be valid before expiry")
	}

	now = now.Add(2 * time.Second)
	if sessions.Valid(token) {
		t.Error("Expected expired token to be rejected")
	}
	if len(sessions.tokens) != 0 {
		t.Errorf("Expected expired token to be dropped, %d left", len(sessions.tokens))
	}
}

func TestSessions_Cookie(t *testing.T) {
	cookie := NewSessions(time.Hour).Cookie("abc")
	if cookie.Name != AuthCookie || cookie.Value != "abc" || cookie.MaxAge != 3600 || !cookie.HttpOnly {
		t.Errorf("Unexpected cookie %+v", cookie)
	}
}
