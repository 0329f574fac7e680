package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomToken(t *testing.T) {
	a, err := randomToken(16)
	require.NoError(t, err)
	b, err := randomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestShutdownHandler(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		remote  string
		token   string
		status  int
		stopped bool
	}{
		{"wrong method", http.MethodGet, "127.0.0.1:4000", "s3cret", http.StatusMethodNotAllowed, false},
		{"remote caller", http.MethodPost, "192.168.1.20:4000", "s3cret", http.StatusForbidden, false},
		{"missing token", http.MethodPost, "127.0.0.1:4000", "", http.StatusUnauthorized, false},
		{"wrong token", http.MethodPost, "[::1]:4000", "nope", http.StatusUnauthorized, false},
		{"ipv4 loopback", http.MethodPost, "127.0.0.1:4000", "s3cret", http.StatusAccepted, true},
		{"ipv6 loopback", http.MethodPost, "[::1]:4000", "s3cret", http.StatusAccepted, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stopped := false
			h := shutdownHandler("s3cret", func() { stopped = true }, zerolog.Nop())

			req := httptest.NewRequest(tc.method, "/shutdown", nil)
			req.RemoteAddr = tc.remote
			if tc.token != "" {
				req.Header.Set("X-Shutdown-Token", tc.token)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.stopped, stopped)
		})
	}
}
