package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/nudging"
)

type createNudgeRequest struct {
	Recipient       string    `json:"recipient"`
	Message         string    `json:"message"`
	FirstAt         time.Time `json:"first_at"`
	IntervalSeconds int64     `json:"interval_seconds"`
}

type nudgeResponse struct {
	ID              string    `json:"id"`
	Sender          string    `json:"sender"`
	Recipient       string    `json:"recipient"`
	Message         string    `json:"message"`
	IntervalSeconds int64     `json:"interval_seconds,omitempty"`
	NextAt          time.Time `json:"next_at"`
	Delivered       bool      `json:"delivered"`
	CreatedAt       time.Time `json:"created_at"`
}

func (a *API) renderNudge(ctx context.Context, n nudging.Nudge) nudgeResponse {
	return nudgeResponse{
		ID:              n.ID,
		Sender:          a.username(ctx, n.Sender),
		Recipient:       a.username(ctx, n.Recipient),
		Message:         n.Message,
		IntervalSeconds: int64(n.Interval / time.Second),
		NextAt:          n.NextAt,
		Delivered:       n.Delivered,
		CreatedAt:       n.CreatedAt,
	}
}

func (a *API) renderNudges(ctx context.Context, nudges []nudging.Nudge) []nudgeResponse {
	out := make([]nudgeResponse, 0, len(nudges))
	for _, n := range nudges {
		out = append(out, a.renderNudge(ctx, n))
	}
	return out
}

func (a *API) handleNudgesCollection(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		a.createNudge(w, r, callerID)
	case http.MethodGet:
		nudges, err := a.nudges.ListBySender(r.Context(), callerID)
		if err != nil {
			handleNudgingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.renderNudges(r.Context(), nudges))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createNudge(w http.ResponseWriter, r *http.Request, callerID string) {
	if !a.requireAllowed(w, r, callerID, authz.ActionNudge) {
		return
	}
	var req createNudgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	recipientID, ok := a.resolveUser(w, r, req.Recipient)
	if !ok {
		return
	}
	if req.IntervalSeconds < 0 {
		writeError(w, r, http.StatusBadRequest, "interval_seconds cannot be negative")
		return
	}
	interval := time.Duration(req.IntervalSeconds) * time.Second
	n, err := a.nudges.Create(r.Context(), callerID, recipientID, req.Message, req.FirstAt, interval)
	if err != nil {
		handleNudgingError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/nudges/"+n.ID)
	writeJSON(w, http.StatusCreated, a.renderNudge(r.Context(), n))
}

func (a *API) handleNudgeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/nudges/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	if path == "incoming" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		nudges, err := a.nudges.ListByRecipient(r.Context(), callerID)
		if err != nil {
			handleNudgingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.renderNudges(r.Context(), nudges))
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.nudges.Cancel(r.Context(), callerID, path); err != nil {
		handleNudgingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleNudgingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, nudging.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, nudging.ErrNotSender):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, nudging.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "nudging operation failed")
	}
}
