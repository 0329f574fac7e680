package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crickmic-engine/internal/domain"
)

func samplePost(id string) domain.GeneratedPost {
	return domain.GeneratedPost{
		ID:          id,
		MatchID:     "match-0-1",
		MatchTitle:  "India vs Australia",
		Headline:    "Kohli fires India home",
		Description: "What a chase.\n\nStats: 82 (53)",
		Hashtags:    "#INDvAUS #Cricket",
		ImageURL:    "/images/abc",
		Origin:      domain.OriginAutopilot,
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAbsURL(t *testing.T) {
	assert.Equal(t, "http://h:1/images/k", AbsURL("http://h:1/", "/images/k"))
	assert.Equal(t, "https://x/y.jpg", AbsURL("http://h:1", "https://x/y.jpg"))
	assert.Equal(t, "/images/k", AbsURL("", "/images/k"))
}

func TestFeed_RendersPosts(t *testing.T) {
	out, err := Feed("", "http://localhost:38472", []domain.GeneratedPost{samplePost("p1")}, time.Now())
	require.NoError(t, err)

	assert.Contains(t, out, "<title>CrickMic dispatches</title>")
	assert.Contains(t, out, "Kohli fires India home")
	assert.Contains(t, out, "urn:uuid:p1")
	assert.Contains(t, out, "http://localhost:38472/images/abc")
}

func TestWebhook_Publish(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "http://engine.local", zerolog.Nop())
	require.True(t, w.Enabled())
	require.NoError(t, w.Publish(context.Background(), samplePost("p1")))

	assert.Equal(t, "post_created", got.Event)
	assert.Equal(t, "p1", got.Post.ID)
	assert.Equal(t, "http://engine.local/images/abc", got.Post.ImageURL)
}

func TestWebhook_StripsDataURI(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	p := samplePost("p1")
	p.ImageURL = "data:image/png;base64,AAAA"
	require.NoError(t, NewWebhook(srv.URL, "", zerolog.Nop()).Publish(context.Background(), p))
	assert.Empty(t, got.Post.ImageURL)
}

func TestWebhook_PublishAllContinuesOnFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "", zerolog.Nop())
	sent := w.PublishAll(context.Background(), []domain.GeneratedPost{samplePost("a"), samplePost("b")})
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhook_DisabledIsNoop(t *testing.T) {
	w := NewWebhook("  ", "", zerolog.Nop())
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Publish(context.Background(), samplePost("x")))
}
