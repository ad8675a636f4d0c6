package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/event"
)

type EventHandler struct {
	Svc *event.Service
	Loc *time.Location
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := r.URL.Query()

	rows, err := h.Svc.List(r.Context(), id, event.ListFilter{
		Date:       q.Get("date"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Types:      q["type"],
		ContactID:  queryUint(r, "contact"),
		PropertyID: queryUint(r, "property"),
		Ordering:   q.Get("ordering"),
		Limit:      queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(rows),
		"items": rows,
	})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	eventID, ok := urlID(w, r)
	if !ok {
		return
	}
	ev, err := h.Svc.Get(r.Context(), id, eventID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type eventReq struct {
	Type       string  `json:"type" validate:"required"`
	StartsAt   string  `json:"starts_at" validate:"required"`
	ContactID  *uint64 `json:"contact"`
	PropertyID *uint64 `json:"property"`
	Name       string  `json:"name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Notes      string  `json:"notes"`
}

func (h *EventHandler) input(w http.ResponseWriter, r *http.Request) (event.WriteInput, bool) {
	var req eventReq
	if !bindJSON(w, r, &req) {
		return event.WriteInput{}, false
	}

	startsAt, ok := parseEventStamp(req.StartsAt, h.Loc)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid starts_at")
		return event.WriteInput{}, false
	}

	return event.WriteInput{
		Type:       req.Type,
		StartsAt:   startsAt,
		ContactID:  req.ContactID,
		PropertyID: req.PropertyID,
		Name:       strings.TrimSpace(req.Name),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      strings.TrimSpace(req.Email),
		Notes:      req.Notes,
	}, true
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	ev, err := h.Svc.Create(r.Context(), id, in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	eventID, ok := urlID(w, r)
	if !ok {
		return
	}
	in, ok := h.input(w, r)
	if !ok {
		return
	}

	ev, err := h.Svc.Update(r.Context(), id, eventID, in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	eventID, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id, eventID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeErr maps the domain errors: slot conflicts answer 409 with the
// conflicting start time, validation problems 400, missing references 404.
func (h *EventHandler) writeErr(w http.ResponseWriter, err error) {
	var overlap *event.OverlapError
	switch {
	case errors.Is(err, event.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, event.ErrContactNotFound),
		errors.Is(err, event.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, event.ErrInvalidType),
		errors.Is(err, event.ErrPastEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, event.ErrDuplicateTime):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       overlap.Error(),
			"conflicting": overlap.ConflictStart.In(h.Loc).Format(time.RFC3339),
		})
	default:
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

func parseEventStamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
