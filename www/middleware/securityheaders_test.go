package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tally/engine/config"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	t.Run("without tls", func(t *testing.T) {
		conf := &config.ConfigSettings{}
		rr := httptest.NewRecorder()
		SecurityHeaders(conf)(handler)(rr, httptest.NewRequest("GET", "/api/time", nil))

		assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
		assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS without TLS")
	})

	t.Run("with tls", func(t *testing.T) {
		conf := &config.ConfigSettings{
			SslSettings: config.SslConfig{HttpsCert: "cert.pem", HttpsKey: "key.pem"},
		}
		rr := httptest.NewRecorder()
		SecurityHeaders(conf)(handler)(rr, httptest.NewRequest("GET", "/api/time", nil))

		assert.NotEmpty(t, rr.Header().Get("Strict-Transport-Security"))
	})
}
