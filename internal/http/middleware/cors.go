package middleware

import (
	"net/http"
	"strings"
)

const (
	allowMethods = "GET, OPTIONS"
	allowHeaders = "authorization, x-client-info, apikey, content-type, x-youtube-handle"
	vary         = "Origin, X-YouTube-Handle"
)

// CORS sets cross-origin headers for an allow-list of origins and answers
// pre-flight requests itself.
//
// An origin outside the list is answered with the first allowed origin, so
// the browser rejects the response. With Strict set the allow-origin header
// is omitted instead.
type CORS struct {
	AllowedOrigins []string
	Strict         bool
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when none should be sent.
func (c CORS) AllowOrigin(origin string) string {
	for _, o := range c.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return o
		}
	}
	if c.Strict || len(c.AllowedOrigins) == 0 {
		return ""
	}
	return c.AllowedOrigins[0]
}

func (c CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if o := c.AllowOrigin(r.Header.Get("Origin")); o != "" {
			h.Set("Access-Control-Allow-Origin", o)
		}
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Vary", vary)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
