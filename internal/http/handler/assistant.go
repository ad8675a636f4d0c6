package handler

import (
	"errors"
	"net/http"

	"inmocrm/internal/assistant"
	"inmocrm/internal/auth"
	"inmocrm/internal/event"
)

type AssistantHandler struct {
	Svc *assistant.Service
}

type askReq struct {
	Query string `json:"query"`
}

func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req askReq
	if !bindJSON(w, r, &req) {
		return
	}

	reply, err := h.Svc.Ask(r.Context(), id, req.Query)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *AssistantHandler) writeErr(w http.ResponseWriter, err error) {
	var notFound *assistant.NotFoundError
	var overlap *event.OverlapError
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery),
		errors.Is(err, assistant.ErrNoTime),
		errors.Is(err, assistant.ErrNoEntity),
		errors.Is(err, event.ErrPastEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, event.ErrDuplicateTime), errors.As(err, &overlap):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}
