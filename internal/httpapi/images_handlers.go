package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/publish"
	"crickmic-engine/internal/store"
)

type ImagesHandler struct {
	DB *store.DB
}

func (h ImagesHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	key := pathTail(r, "/images/")
	if key == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_key", "missing key")
		return
	}
	if h.DB == nil {
		http.NotFound(w, r)
		return
	}

	ct, b, err := store.GetImage(r.Context(), h.DB.Pool, key)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	if ct == "" {
		ct = "image/*"
	}
	w.Header().Set("Content-Type", ct)
	// Keys are content hashes, so the bytes never change.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(b)
}

type FeedHandler struct {
	Orch *orchestrator.Orchestrator
	DB   *store.DB
	Cfg  func() config.Config
	Now  func() time.Time
}

// Atom serves the archive (or the session queue without one) as an Atom feed.
func (h FeedHandler) Atom(w http.ResponseWriter, r *http.Request) {
	cfg := h.Cfg()

	var posts []domain.GeneratedPost
	if h.DB != nil {
		var err error
		posts, err = h.DB.Posts.ListPosts(r.Context(), store.ListPostsOpts{Window: "all", Limit: 50})
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	} else {
		posts = h.Orch.Posts()
	}

	base := strings.TrimSpace(cfg.App.BaseURL)
	if base == "" {
		base = "http://" + r.Host
	}
	out, err := publish.Feed(cfg.Publish.FeedTitle, base, posts, h.Now())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "feed_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	_, _ = w.Write([]byte(out))
}
