package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/transfer"
)

type TransferHandler struct {
	Svc *transfer.Service
}

func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req transfer.ExportRequest
	if !bindJSON(w, r, &req) {
		return
	}
	if len(req.Resources) == 0 {
		req.Resources = []string{
			transfer.ResourceLeads, transfer.ResourceProperties, transfer.ResourceEvents,
		}
	}

	data, err := h.Svc.Export(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, transfer.ErrBadResource) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	switch strings.ToLower(req.Format) {
	case "", "csv":
		body, err := data.WriteCSV()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", data.Filename))
		_, _ = w.Write(body)
	case "json":
		writeJSON(w, http.StatusOK, data.ToJSON())
	case "ics":
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="agenda.ics"`)
		_, _ = w.Write(data.WriteICS())
	default:
		writeError(w, http.StatusBadRequest, "formato inválido: usar csv, json o ics")
	}
}

// Import takes either a JSON body with the row lists or a multipart upload
// (field "file", CSV or JSON) as produced by Export.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req transfer.ImportRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if !bindImportFile(w, r, &req) {
			return
		}
	} else if !bindJSON(w, r, &req) {
		return
	}

	res, err := h.Svc.Import(r.Context(), id, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, res)
}

const maxImportBytes = 10 << 20

func bindImportFile(w http.ResponseWriter, r *http.Request, req *transfer.ImportRequest) bool {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart inválido")
		return false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "falta el campo 'file'")
		return false
	}
	defer f.Close()

	var parsed transfer.ImportRequest
	if strings.HasSuffix(strings.ToLower(hdr.Filename), ".json") {
		parsed, err = transfer.ParseJSON(f)
	} else {
		parsed, err = transfer.ParseCSV(f)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "no pude leer el archivo: "+err.Error())
		return false
	}
	*req = parsed

	switch r.FormValue("dry_run") {
	case "1", "true", "si", "sí":
		req.DryRun = true
	}
	return true
}

func (h *TransferHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	now := time.Now().In(h.Svc.Loc)
	year := queryInt(r, "year")
	month := queryInt(r, "month")
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	// ?months=N widens the window to the N months ending at year/month
	if months := queryInt(r, "months"); months > 1 {
		if months > 24 {
			months = 24
		}
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, h.Svc.Loc).
			AddDate(0, -(months - 1), 0)
		out, err := h.Svc.MetricsRange(r.Context(), id,
			from.Year(), int(from.Month()), year, month)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"months": out})
		return
	}

	m, err := h.Svc.Metrics(r.Context(), id, year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *TransferHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	d, err := h.Svc.Dashboard(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
