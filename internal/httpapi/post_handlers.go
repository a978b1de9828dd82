package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/posting"
	"lattice.social/internal/stream"
)

type createPostRequest struct {
	Content string `json:"content"`
}

type postResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) renderPost(ctx context.Context, p posting.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Author:    a.username(ctx, p.Author),
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}
}

func (a *API) renderPosts(ctx context.Context, posts []posting.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, a.renderPost(ctx, p))
	}
	return out
}

func (a *API) handlePostsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPost(w, r)
	case http.MethodGet:
		a.listPosts(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	if !a.requireAllowed(w, r, callerID, authz.ActionPost) {
		return
	}
	var req createPostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	post, err := a.posts.Create(r.Context(), callerID, req.Content)
	if err != nil {
		handlePostingError(w, r, err)
		return
	}
	if a.activity != nil {
		a.activity.Publish(stream.Event{
			Kind:  stream.KindPostCreated,
			Actor: a.username(r.Context(), callerID),
		})
	}
	w.Header().Set("Location", "/v1/posts/"+post.ID)
	writeJSON(w, http.StatusCreated, a.renderPost(r.Context(), post))
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.caller(w, r); !ok {
		return
	}
	if author := strings.TrimSpace(r.URL.Query().Get("author")); author != "" {
		authorID, ok := a.resolveUser(w, r, author)
		if !ok {
			return
		}
		posts, err := a.posts.ListByAuthor(r.Context(), authorID)
		if err != nil {
			handlePostingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.renderPosts(r.Context(), posts))
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	posts, err := a.posts.ListRecent(r.Context(), limit)
	if err != nil {
		handlePostingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.renderPosts(r.Context(), posts))
}

func (a *API) handlePostResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/posts/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		post, err := a.posts.Get(r.Context(), id)
		if err != nil {
			handlePostingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.renderPost(r.Context(), post))
	case http.MethodDelete:
		if err := a.posts.Delete(r.Context(), callerID, id); err != nil {
			handlePostingError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func handlePostingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, posting.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, posting.ErrNotAuthor):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, posting.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "posting operation failed")
	}
}
