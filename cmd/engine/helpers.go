package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func fromLoopback(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return host == "localhost" || (ip != nil && ip.IsLoopback())
}

// shutdownHandler lets the desktop shell stop the engine. The request only
// triggers stop; main drains the server, tracker and orchestrator.
func shutdownHandler(token string, stop func(), log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !fromLoopback(r) {
			log.Warn().Str("remote", r.RemoteAddr).Msg("shutdown refused: not loopback")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			log.Warn().Msg("shutdown refused: bad token")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		log.Info().Msg("shutdown requested")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("stopping engine\n"))
		stop()
	}
}
