package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/recording"
)

type createRecordRequest struct {
	Activity string `json:"activity"`
	Note     string `json:"note"`
}

type recordResponse struct {
	ID         string    `json:"id"`
	Recorder   string    `json:"recorder"`
	Activity   string    `json:"activity"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (a *API) handleRecordsCollection(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		if !a.requireAllowed(w, r, callerID, authz.ActionRecord) {
			return
		}
		var req createRecordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.records.Create(r.Context(), callerID, req.Activity, req.Note)
		if err != nil {
			handleRecordingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a.renderRecord(r, rec))
	case http.MethodGet:
		recs, err := a.records.ListByRecorder(r.Context(), callerID)
		if err != nil {
			handleRecordingError(w, r, err)
			return
		}
		out := make([]recordResponse, 0, len(recs))
		for _, rec := range recs {
			out = append(out, a.renderRecord(r, rec))
		}
		writeJSON(w, http.StatusOK, out)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) renderRecord(r *http.Request, rec recording.Record) recordResponse {
	return recordResponse{
		ID:         rec.ID,
		Recorder:   a.username(r.Context(), rec.Recorder),
		Activity:   rec.Activity,
		Note:       rec.Note,
		RecordedAt: rec.RecordedAt,
	}
}

func (a *API) handleRecordResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/records/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.records.Delete(r.Context(), callerID, id); err != nil {
		handleRecordingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleRecordingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recording.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, recording.ErrNotRecorder):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, recording.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "recording operation failed")
	}
}
