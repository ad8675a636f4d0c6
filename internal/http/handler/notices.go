package handler

import (
	"errors"
	"net/http"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/notice"
)

type NoticeHandler struct {
	Svc *notice.Service
}

func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	rows, err := h.Svc.List(r.Context(), id, notice.ListFilter{
		Status: r.URL.Query().Get("status"),
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

func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	noticeID, ok := urlID(w, r)
	if !ok {
		return
	}
	n, err := h.Svc.Get(r.Context(), id, noticeID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type updateNoticeReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueAt       *string `json:"due_at"` // RFC3339
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	noticeID, ok := urlID(w, r)
	if !ok {
		return
	}

	var req updateNoticeReq
	if !bindJSON(w, r, &req) {
		return
	}

	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if req.DueAt != nil {
		t, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_at (RFC3339)")
			return
		}
		fields["due_at"] = t
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "no updatable fields")
		return
	}

	n, err := h.Svc.Update(r.Context(), id, noticeID, fields)
	if err != nil {
		if errors.Is(err, notice.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	noticeID, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id, noticeID); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NoticeHandler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, notice.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "server error")
}
