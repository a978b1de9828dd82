package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lattice.social/internal/audit"
	"lattice.social/internal/authz"
)

type permissionRequest struct {
	Username string `json:"username"`
	Action   string `json:"action"`
}

type controlRequest struct {
	Username string `json:"username"`
}

type deniedActionsResponse struct {
	Username string         `json:"username"`
	Denied   []authz.Action `json:"denied"`
}

type controlResponse struct {
	Authorizers []string `json:"authorizers"`
	Authorizees []string `json:"authorizees"`
}

// handleAuthorize serves the caller's own denied-action list.
func (a *API) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	denied, err := a.ledger.DeniedActions(r.Context(), callerID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deniedActionsResponse{
		Username: a.username(r.Context(), callerID),
		Denied:   denied,
	})
}

func (a *API) handleAuthorizeScoped(w http.ResponseWriter, r *http.Request) {
	sub := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/authorize/"), "/")
	if sub == "" || strings.Contains(sub, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch sub {
	case "deny":
		a.denyAction(w, r)
	case "allow":
		a.allowAction(w, r)
	case "control":
		a.handleControl(w, r)
	default:
		a.deniedActionsFor(w, r, sub)
	}
}

// deniedActionsFor serves another user's denied-action list. Visible to the
// user themselves and to their authorizers.
func (a *API) deniedActionsFor(w http.ResponseWriter, r *http.Request, username string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	targetID, ok := a.resolveUser(w, r, username)
	if !ok {
		return
	}
	if targetID != callerID && !a.assertAuthorizer(w, r, callerID, targetID) {
		return
	}
	denied, err := a.ledger.DeniedActions(r.Context(), targetID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deniedActionsResponse{
		Username: username,
		Denied:   denied,
	})
}

func (a *API) denyAction(w http.ResponseWriter, r *http.Request) {
	a.mutatePermission(w, r, true)
}

func (a *API) allowAction(w http.ResponseWriter, r *http.Request) {
	a.mutatePermission(w, r, false)
}

// mutatePermission handles both deny and allow. The caller must be the
// target themselves or hold a delegation edge over the target.
func (a *API) mutatePermission(w http.ResponseWriter, r *http.Request, deny bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req permissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	action, err := authz.ParseAction(req.Action)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	targetID, ok := a.resolveUser(w, r, req.Username)
	if !ok {
		return
	}
	if targetID != callerID && !a.assertAuthorizer(w, r, callerID, targetID) {
		return
	}

	if deny {
		if _, err := a.ledger.Deny(r.Context(), targetID, action); err != nil {
			handleAuthzError(w, r, err)
			return
		}
	} else {
		if err := a.ledger.Allow(r.Context(), targetID, action); err != nil {
			handleAuthzError(w, r, err)
			return
		}
	}

	event := "authz.allow"
	if deny {
		event = "authz.deny"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"target": req.Username,
		"action": string(action),
	})

	denied, err := a.ledger.DeniedActions(r.Context(), targetID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deniedActionsResponse{
		Username: req.Username,
		Denied:   denied,
	})
}

// handleControl manages the caller's delegation edges. POST grants the named
// user control over the caller; DELETE revokes it.
func (a *API) handleControl(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listControl(w, r, callerID)
	case http.MethodPost:
		a.grantControl(w, r, callerID)
	case http.MethodDelete:
		a.revokeControl(w, r, callerID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) listControl(w http.ResponseWriter, r *http.Request, callerID string) {
	authorizers, err := a.ledger.Authorizers(r.Context(), callerID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	authorizees, err := a.ledger.Authorizees(r.Context(), callerID)
	if err != nil {
		handleAuthzError(w, r, err)
		return
	}
	authorizerNames, err := a.users.LookupAll(r.Context(), authorizers)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	authorizeeNames, err := a.users.LookupAll(r.Context(), authorizees)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "directory lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{
		Authorizers: authorizerNames,
		Authorizees: authorizeeNames,
	})
}

func (a *API) grantControl(w http.ResponseWriter, r *http.Request, callerID string) {
	var req controlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	authorizerID, ok := a.resolveUser(w, r, req.Username)
	if !ok {
		return
	}
	if _, err := a.ledger.GrantControl(r.Context(), authorizerID, callerID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.control.grant", map[string]any{
		"authorizer": req.Username,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) revokeControl(w http.ResponseWriter, r *http.Request, callerID string) {
	var req controlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	authorizerID, ok := a.resolveUser(w, r, req.Username)
	if !ok {
		return
	}
	if err := a.ledger.RevokeControl(r.Context(), authorizerID, callerID); err != nil {
		handleAuthzError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authz.control.revoke", map[string]any{
		"authorizer": req.Username,
	})
	w.WriteHeader(http.StatusNoContent)
}

// requireAllowed enforces the ledger before a mutating concept action.
// Denied callers get a 403 rendered with their username.
func (a *API) requireAllowed(w http.ResponseWriter, r *http.Request, userID string, action authz.Action) bool {
	err := a.ledger.AssertAllowed(r.Context(), userID, action)
	if err == nil {
		return true
	}
	var denied *authz.NotAuthorizedError
	if errors.As(err, &denied) {
		writeError(w, r, http.StatusForbidden,
			fmt.Sprintf("%s is not allowed to %s", a.username(r.Context(), userID), denied.Action))
		return false
	}
	handleAuthzError(w, r, err)
	return false
}

// assertAuthorizer guards administration of another user's permissions,
// rendering the 403 with usernames.
func (a *API) assertAuthorizer(w http.ResponseWriter, r *http.Request, authorizerID, authorizeeID string) bool {
	err := a.ledger.AssertAuthorizer(r.Context(), authorizerID, authorizeeID)
	if err == nil {
		return true
	}
	var notAuth *authz.NotAuthorizerError
	if errors.As(err, &notAuth) {
		writeError(w, r, http.StatusForbidden,
			fmt.Sprintf("%s is not an authorizer of %s",
				a.username(r.Context(), authorizerID), a.username(r.Context(), authorizeeID)))
		return false
	}
	handleAuthzError(w, r, err)
	return false
}

func handleAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidAction), errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrAlreadyDenied),
		errors.Is(err, authz.ErrAlreadyAllowed),
		errors.Is(err, authz.ErrDelegationExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, authz.ErrDelegationNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, authz.ErrNotAuthorized), errors.Is(err, authz.ErrNotAnAuthorizer):
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "authorization operation failed")
	}
}
