package handler

import (
	"errors"
	"net/http"

	"inmocrm/internal/auth"
	"inmocrm/internal/stage"
)

type StageHandler struct {
	Svc *stage.Service
}

func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	st, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, stage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type stageReq struct {
	Phase       string `json:"phase" validate:"required"`
	Description string `json:"description"`
}

// Create is staff-only: the pipeline is shared across the office.
func (h *StageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	var req stageReq
	if !bindJSON(w, r, &req) {
		return
	}

	st := stage.Stage{Phase: req.Phase, Description: req.Description}
	if err := h.Svc.Create(r.Context(), &st); err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "phase already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *StageHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req stageReq
	if !bindJSON(w, r, &req) {
		return
	}

	st := stage.Stage{ID: id, Phase: req.Phase, Description: req.Description}
	if err := h.Svc.Update(r.Context(), &st); err != nil {
		if errors.Is(err, stage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !requireStaff(w, r) {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, stage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func requireStaff(w http.ResponseWriter, r *http.Request) bool {
	id, _ := auth.IdentityFromContext(r.Context())
	if !id.Staff {
		writeError(w, http.StatusForbidden, "staff only")
		return false
	}
	return true
}
