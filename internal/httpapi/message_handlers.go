package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lattice.social/internal/authz"
	"lattice.social/internal/messaging"
	"lattice.social/internal/stream"
)

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

func (a *API) renderMessage(ctx context.Context, m messaging.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		Sender:    a.username(ctx, m.Sender),
		Recipient: a.username(ctx, m.Recipient),
		Content:   m.Content,
		SentAt:    m.SentAt,
	}
}

func (a *API) renderMessages(ctx context.Context, msgs []messaging.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, a.renderMessage(ctx, m))
	}
	return out
}

func (a *API) handleMessagesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.sendMessage(w, r)
	case http.MethodGet:
		a.listMessages(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	if !a.requireAllowed(w, r, callerID, authz.ActionMessage) {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	recipientID, ok := a.resolveUser(w, r, req.Recipient)
	if !ok {
		return
	}
	msg, err := a.messages.Send(r.Context(), callerID, recipientID, req.Content)
	if err != nil {
		handleMessagingError(w, r, err)
		return
	}
	if a.activity != nil {
		a.activity.Publish(stream.Event{
			Kind:    stream.KindMessageSent,
			Actor:   a.username(r.Context(), callerID),
			Subject: req.Recipient,
		})
	}
	writeJSON(w, http.StatusCreated, a.renderMessage(r.Context(), msg))
}

// listMessages serves the caller's inbox, or a two-party conversation when
// the "with" query parameter names the other user.
func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}
	if other := strings.TrimSpace(r.URL.Query().Get("with")); other != "" {
		otherID, ok := a.resolveUser(w, r, other)
		if !ok {
			return
		}
		msgs, err := a.messages.Conversation(r.Context(), callerID, otherID)
		if err != nil {
			handleMessagingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.renderMessages(r.Context(), msgs))
		return
	}
	msgs, err := a.messages.Inbox(r.Context(), callerID)
	if err != nil {
		handleMessagingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.renderMessages(r.Context(), msgs))
}

func (a *API) handleMessageResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/messages/"), "/")
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
	if err := a.messages.Delete(r.Context(), callerID, id); err != nil {
		handleMessagingError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleMessagingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, messaging.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, messaging.ErrNotSender):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, messaging.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "messaging operation failed")
	}
}
