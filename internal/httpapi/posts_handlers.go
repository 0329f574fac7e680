package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/store"
)

type PostsHandler struct {
	Orch *orchestrator.Orchestrator
	DB   *store.DB
}

// List returns the session queue, newest first.
func (h PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Orch.Posts())
}

func (h PostsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r, "/posts/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := h.Orch.RemovePost(id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

// History lists archived posts across sessions.
func (h PostsHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "no_archive", "post archive is not available")
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	posts, err := h.DB.Posts.ListPosts(r.Context(), store.ListPostsOpts{
		Window:  q.Get("window"),
		MatchID: q.Get("match"),
		Origin:  q.Get("origin"),
		Limit:   limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, posts)
}

// DeleteHistory removes one post from the archive. The session queue is untouched.
func (h PostsHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "no_archive", "post archive is not available")
		return
	}
	id := pathTail(r, "/history/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	err := h.DB.Posts.DeletePost(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		WriteError(w, r, http.StatusNotFound, "not_found", "post not found in history")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dispatchReq struct {
	MatchID string `json:"matchId"`
	Context string `json:"context"`
}

// Dispatch enriches one candidate with a custom context and returns the post.
func (h PostsHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchReq
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.MatchID) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "body must be {\"matchId\": \"...\", \"context\": \"...\"}")
		return
	}
	post, err := h.Orch.DispatchByID(context.WithoutCancel(r.Context()), req.MatchID, req.Context)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}
