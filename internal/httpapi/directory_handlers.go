package httpapi

import (
	"errors"
	"net/http"
	"time"

	"lattice.social/internal/audit"
	"lattice.social/internal/directory"
	"lattice.social/internal/session"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "directory.user.register", map[string]any{
		"username": user.Username,
	})
	w.Header().Set("Location", "/v1/users/"+user.Username)
	writeJSON(w, http.StatusCreated, userResponse{
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		handleDirectoryError(w, r, err)
		return
	}
	token, err := session.Issue(user.ID, session.DefaultTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session issue failed")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: time.Now().UTC().Add(session.DefaultTTL),
	})
}

func (a *API) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, userResponse{
			Username: a.username(r.Context(), callerID),
		})
	case http.MethodDelete:
		username := a.username(r.Context(), callerID)
		if err := a.users.Delete(r.Context(), callerID); err != nil {
			handleDirectoryError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "directory.user.delete", map[string]any{
			"username": username,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func handleDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrUsernameTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "directory operation failed")
	}
}
