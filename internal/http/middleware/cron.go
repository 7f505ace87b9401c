package middleware

import (
	"crypto/subtle"
	"net/http"
)

// CronSecretHeader carries the shared secret for scheduled callers.
const CronSecretHeader = "X-Cron-Secret"

// RequireCronSecret rejects requests whose X-Cron-Secret does not match
// secret. An empty secret rejects everything.
func RequireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(CronSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
