package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// bindJSON decodes the body into dst and runs struct validation. On failure it
// writes the response itself and reports false.
func bindJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid input",
				"fields": fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid input")
		return false
	}
	return true
}

// bindRaw decodes the body into a key map, so PATCH handlers can tell a field
// sent as null from a field not sent at all.
func bindRaw(w http.ResponseWriter, r *http.Request, dst *map[string]any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

// rebind re-marshals the key map into a typed request and validates it.
func rebind(w http.ResponseWriter, raw map[string]any, dst any) bool {
	b, err := json.Marshal(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid input")
		return false
	}
	return true
}

// urlID parses the {id} route parameter. On failure it writes the response
// itself and reports false.
func urlID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryUint(r *http.Request, key string) uint64 {
	n, _ := strconv.ParseUint(r.URL.Query().Get(key), 10, 64)
	return n
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
