package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
)

type ContactHandler struct {
	Svc *contact.Service
	Loc *time.Location
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := r.URL.Query()

	rows, err := h.Svc.List(r.Context(), id, contact.ListFilter{
		Query:         q.Get("q"),
		StageID:       queryUint(r, "stage"),
		Due:           q.Get("due"),
		DueWithinDays: queryInt(r, "due_within_days"),
		StaleDays:     queryInt(r, "stale_days"),
		Ordering:      q.Get("ordering"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	now := time.Now().In(h.Loc)
	items := make([]any, 0, len(rows))
	for _, c := range rows {
		items = append(items, contact.View(c, now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	contactID, ok := urlID(w, r)
	if !ok {
		return
	}

	c, err := h.Svc.Get(r.Context(), id, contactID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact.View(*c, time.Now().In(h.Loc)))
}

type createContactReq struct {
	Name     string  `json:"name" validate:"required"`
	LastName string  `json:"last_name"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Phone    string  `json:"phone"`
	StageID  *uint64 `json:"stage"`
}

func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req createContactReq
	if !bindJSON(w, r, &req) {
		return
	}

	c := contact.Contact{
		Name:     strings.TrimSpace(req.Name),
		LastName: strings.TrimSpace(req.LastName),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
		StageID:  req.StageID,
	}
	if err := h.Svc.Create(r.Context(), id, &c); err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, contact.View(c, time.Now().In(h.Loc)))
}

type updateContactReq struct {
	Name            *string `json:"name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone"`
	StageID         *uint64 `json:"stage"`
	NextContactAt   *string `json:"next_contact_at"` // RFC3339, null clears
	NextContactNote *string `json:"next_contact_note"`
}

func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	contactID, ok := urlID(w, r)
	if !ok {
		return
	}

	// raw keys first, to tell "field absent" from "field null"
	raw := map[string]any{}
	if !bindRaw(w, r, &raw) {
		return
	}
	var req updateContactReq
	if !rebind(w, raw, &req) {
		return
	}

	in := contact.UpdateInput{
		Name:            req.Name,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		NextContactNote: req.NextContactNote,
	}
	if _, sent := raw["stage"]; sent {
		in.StageSet = true
		in.StageID = req.StageID
	}
	if _, sent := raw["next_contact_at"]; sent {
		in.NextContactSet = true
		if req.NextContactAt != nil {
			t, err := time.Parse(time.RFC3339, *req.NextContactAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid next_contact_at (RFC3339)")
				return
			}
			in.NextContactAt = &t
		}
	}

	c, err := h.Svc.Update(r.Context(), id, contactID, in)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact.View(*c, time.Now().In(h.Loc)))
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	contactID, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id, contactID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ContactHandler) StageHistory(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	contactID, ok := urlID(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.StageHistory(r.Context(), id, contactID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ContactHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	out, err := h.Svc.Reminders(r.Context(), id, contact.RemindersParams{
		RemindEveryDays: queryInt(r, "recordame_cada"),
		SoonWithinDays:  queryInt(r, "proximo_en_dias"),
		Limit:           queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ContactHandler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, contact.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}
