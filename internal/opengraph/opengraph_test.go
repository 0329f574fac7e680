package opengraph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crickmic-engine/internal/domain"
)

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

func TestImage_ResolvesRelative(t *testing.T) {
	srv := httptest.NewServer(page(`<html><head>
		<meta property="og:title" content="Match report">
		<meta property="og:image" content="/img/hero.jpg">
	</head><body></body></html>`))
	defer srv.Close()

	f := NewFetcher(nil, zerolog.Nop())
	img, err := f.Image(context.Background(), srv.URL+"/report/1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/hero.jpg", img)
}

func TestImage_TwitterFallback(t *testing.T) {
	srv := httptest.NewServer(page(`<html><head><meta name="twitter:image" content="https://cdn.example/t.png"></head></html>`))
	defer srv.Close()

	f := NewFetcher(nil, zerolog.Nop())
	img, err := f.Image(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/t.png", img)
}

func TestImage_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewFetcher(nil, zerolog.Nop())
	_, err := f.Image(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFirstImage_SkipsFailures(t *testing.T) {
	bad := httptest.NewServer(http.NotFoundHandler())
	defer bad.Close()
	empty := httptest.NewServer(page(`<html><head><title>x</title></head></html>`))
	defer empty.Close()
	good := httptest.NewServer(page(`<html><head><meta property="og:image" content="https://cdn.example/a.jpg"></head></html>`))
	defer good.Close()

	f := NewFetcher(nil, zerolog.Nop())
	img, ok := f.FirstImage(context.Background(), []domain.GroundingSource{
		{URI: ""},
		{URI: bad.URL},
		{URI: empty.URL},
		{URI: good.URL},
	})
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/a.jpg", img)
}

func TestImage_InvalidURL(t *testing.T) {
	f := NewFetcher(nil, zerolog.Nop())
	_, err := f.Image(context.Background(), "ftp://example.com")
	require.Error(t, err)
}
