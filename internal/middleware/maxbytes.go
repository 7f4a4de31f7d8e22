package middleware

import "net/http"

// MaxBody caps request body size for API writes. Survey and consent
// payloads are small; anything larger is rejected by the JSON decoder
// when it hits the limit.
func MaxBody(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
