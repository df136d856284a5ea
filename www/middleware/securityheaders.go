package middleware

import (
	"net/http"

	"tally/engine/config"
)

// SecurityHeaders adds essential security headers to all responses
func SecurityHeaders(conf *config.ConfigSettings) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// Only meaningful when HTTPS is configured
			if conf.SslSettings != (config.SslConfig{}) {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			// X-Frame-Options: Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// X-Content-Type-Options: Prevent MIME confusion attacks
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// The API serves JSON and uploaded files only
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			// Referrer-Policy: Control referer header leakage
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next(w, r)
		}
	}
}
