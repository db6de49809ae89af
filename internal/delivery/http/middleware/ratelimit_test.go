package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"invitehub/internal/delivery/http/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Limit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allows requests within burst", func(t *testing.T) {
		limiter := NewRateLimiter(1, 3)
		handler := limiter.Limit(next)

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "http://test/invitations/accept", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			rr := httptest.NewRecorder()
			handler(rr, req)
			require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
		}
	})

	t.Run("rejects once burst is exhausted", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1)
		handler := limiter.Limit(next)

		req := httptest.NewRequest(http.MethodPost, "http://test/invitations/accept", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rr := httptest.NewRecorder()
		handler(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		req = httptest.NewRequest(http.MethodPost, "http://test/invitations/accept", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		rr = httptest.NewRecorder()
		handler(rr, req)

		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))

		var envelope helpers.APIResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		require.NotNil(t, envelope.Error)
		assert.Equal(t, helpers.ErrCodeRateLimited, envelope.Error.Code)
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1)
		handler := limiter.Limit(next)

		first := httptest.NewRequest(http.MethodPost, "http://test/invitations/accept", nil)
		first.RemoteAddr = "10.0.0.3:1234"
		rr := httptest.NewRecorder()
		handler(rr, first)
		require.Equal(t, http.StatusOK, rr.Code)

		other := httptest.NewRequest(http.MethodPost, "http://test/invitations/accept", nil)
		other.RemoteAddr = "10.0.0.4:1234"
		rr = httptest.NewRecorder()
		handler(rr, other)
		require.Equal(t, http.StatusOK, rr.Code, "a fresh client gets its own bucket")
	})
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	assert.Equal(t, float64(1), float64(limiter.rps))
	assert.Equal(t, 1, limiter.burst)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr fallback",
			remoteAddr: "192.168.1.10:5555",
			want:       "192.168.1.10",
		},
		{
			name:       "x-forwarded-for single value",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for takes first hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 70.41.3.18, 150.172.238.178"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip when no forwarded-for",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.11",
			want:       "192.168.1.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://test/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
