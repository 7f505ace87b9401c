package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("next"))
})

func TestCORS_AllowOrigin(t *testing.T) {
	c := CORS{AllowedOrigins: []string{"https://app.example", "http://localhost:5173"}}

	tests := []struct {
		name   string
		strict bool
		origin string
		want   string
	}{
		{"listed", false, "http://localhost:5173", "http://localhost:5173"},
		{"listed case-insensitive", false, "HTTPS://APP.EXAMPLE", "https://app.example"},
		{"unknown falls back to first", false, "https://evil.example", "https://app.example"},
		{"missing falls back to first", false, "", "https://app.example"},
		{"strict unknown", true, "https://evil.example", ""},
		{"strict listed", true, "https://app.example", "https://app.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Strict = tt.strict
			assert.Equal(t, tt.want, c.AllowOrigin(tt.origin))
		})
	}

	assert.Equal(t, "", CORS{}.AllowOrigin("https://app.example"))
}

func TestCORS_Headers(t *testing.T) {
	h := CORS{AllowedOrigins: []string{"https://app.example"}}.Handler(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/videos?id=1", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "next", rec.Body.String())
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type, x-youtube-handle", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "Origin, X-YouTube-Handle", rec.Header().Get("Vary"))
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS{AllowedOrigins: []string{"https://app.example"}}.Handler(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/channels", nil)
	req.Header.Set("Origin", "https://other.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRequireCronSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"match", "s3cret", "s3cret", http.StatusOK},
		{"mismatch", "s3cret", "guess", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"unset secret rejects all", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireCronSecret(tt.secret)(okHandler)
			req := httptest.NewRequest(http.MethodPost, "/admin/warm", nil)
			if tt.header != "" {
				req.Header.Set(CronSecretHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
