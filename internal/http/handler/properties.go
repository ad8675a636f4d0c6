package handler

import (
	"errors"
	"net/http"
	"strings"

	"inmocrm/internal/auth"
	"inmocrm/internal/property"
)

type PropertyHandler struct {
	Svc *property.Service
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	q := r.URL.Query()

	rows, err := h.Svc.List(r.Context(), id, property.ListFilter{
		Query:    q.Get("q"),
		Status:   q.Get("status"),
		Kind:     q.Get("kind"),
		Currency: q.Get("currency"),
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

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	propertyID, ok := urlID(w, r)
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), id, propertyID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type createPropertyReq struct {
	Code         string  `json:"code" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	Kind         string  `json:"kind"`
	Availability string  `json:"availability"`
	Price        float64 `json:"price" validate:"gte=0"`
	Currency     string  `json:"currency"`
	Rooms        int     `json:"rooms" validate:"omitempty,gte=0"`
	Age          int     `json:"age" validate:"omitempty,gte=0"`
	Bathrooms    int     `json:"bathrooms" validate:"omitempty,gte=0"`
	Surface      float64 `json:"surface" validate:"omitempty,gte=0"`
	Status       string  `json:"status"`
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req createPropertyReq
	if !bindJSON(w, r, &req) {
		return
	}

	p := property.Property{
		Code:         strings.TrimSpace(req.Code),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Location:     strings.TrimSpace(req.Location),
		Kind:         req.Kind,
		Availability: req.Availability,
		Price:        req.Price,
		Currency:     req.Currency,
		Rooms:        req.Rooms,
		Age:          req.Age,
		Bathrooms:    req.Bathrooms,
		Surface:      req.Surface,
		Status:       req.Status,
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if err := h.Svc.Create(r.Context(), id, &p); err != nil {
		switch {
		case errors.Is(err, property.ErrInvalidStatus), errors.Is(err, property.ErrInvalidKind):
			writeError(w, http.StatusBadRequest, err.Error())
		case isUniqueViolation(err):
			writeError(w, http.StatusConflict, "code already used")
		default:
			writeError(w, http.StatusInternalServerError, "server error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// updatableFields safe-lists the JSON keys a PATCH may touch; anything else in
// the body is ignored.
var updatableFields = map[string]bool{
	"title": true, "description": true, "location": true, "kind": true,
	"availability": true, "price": true, "currency": true, "rooms": true,
	"age": true, "bathrooms": true, "surface": true, "status": true,
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	propertyID, ok := urlID(w, r)
	if !ok {
		return
	}

	raw := map[string]any{}
	if !bindRaw(w, r, &raw) {
		return
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if updatableFields[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no updatable fields")
		return
	}

	p, err := h.Svc.Update(r.Context(), id, propertyID, fields)
	if err != nil {
		switch {
		case errors.Is(err, property.ErrInvalidStatus), errors.Is(err, property.ErrInvalidKind):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeErr(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	propertyID, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id, propertyID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PropertyHandler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, property.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}
