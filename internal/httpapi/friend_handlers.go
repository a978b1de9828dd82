package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/friending"
	"lattice.social/internal/stream"
)

type friendRequestBody struct {
	Username string `json:"username"`
}

type friendshipResponse struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester"`
	Target    string    `json:"target"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) renderFriendship(ctx context.Context, f friending.Friendship) friendshipResponse {
	return friendshipResponse{
		ID:        f.ID,
		Requester: a.username(ctx, f.Requester),
		Target:    a.username(ctx, f.Target),
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
	}
}

func (a *API) handleFriendsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.requestFriend(w, r)
	case http.MethodGet:
		a.listFriends(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) requestFriend(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	if !a.requireAllowed(w, r, callerID, authz.ActionFriend) {
		return
	}
	var req friendRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	targetID, ok := a.resolveUser(w, r, req.Username)
	if !ok {
		return
	}
	f, err := a.friends.Request(r.Context(), callerID, targetID)
	if err != nil {
		handleFriendingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.renderFriendship(r.Context(), f))
}

func (a *API) listFriends(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	friendIDs, err := a.friends.Friends(r.Context(), callerID)
	if err != nil {
		handleFriendingError(w, r, err)
		return
	}
	names, err := a.users.LookupAll(r.Context(), friendIDs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": names})
}

func (a *API) handleFriendResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/friends/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	if path == "pending" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listPending(w, r, callerID)
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 2 && parts[1] == "accept":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.acceptFriend(w, r, callerID, parts[0])
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		if err := a.friends.Remove(r.Context(), callerID, parts[0]); err != nil {
			handleFriendingError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listPending(w http.ResponseWriter, r *http.Request, callerID string) {
	pending, err := a.friends.Pending(r.Context(), callerID)
	if err != nil {
		handleFriendingError(w, r, err)
		return
	}
	out := make([]friendshipResponse, 0, len(pending))
	for _, f := range pending {
		out = append(out, a.renderFriendship(r.Context(), f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) acceptFriend(w http.ResponseWriter, r *http.Request, callerID, friendshipID string) {
	if !a.requireAllowed(w, r, callerID, authz.ActionFriend) {
		return
	}
	f, err := a.friends.Accept(r.Context(), callerID, friendshipID)
	if err != nil {
		handleFriendingError(w, r, err)
		return
	}
	if a.activity != nil {
		a.activity.Publish(stream.Event{
			Kind:    stream.KindFriendAccepted,
			Actor:   a.username(r.Context(), f.Target),
			Subject: a.username(r.Context(), f.Requester),
		})
	}
	writeJSON(w, http.StatusOK, a.renderFriendship(r.Context(), f))
}

func handleFriendingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, friending.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, friending.ErrAlreadyLinked):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, friending.ErrNotTarget), errors.Is(err, friending.ErrNotParticipant):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, friending.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "friending operation failed")
	}
}
