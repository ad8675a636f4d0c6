package handler

import (
	"errors"
	"net/http"
	"strings"

	"inmocrm/internal/auth"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
}

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	LastName string `json:"last_name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !bindJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	u := auth.User{
		Name:         strings.TrimSpace(req.Name),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := h.DB.Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already used")
			return
		}
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	h.issueToken(w, u)
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !bindJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var u auth.User
	if err := h.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.issueToken(w, u)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, u auth.User) {
	token, err := h.JWT.Sign(auth.Identity{UserID: u.ID, Staff: u.IsStaff})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userView(u),
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var u auth.User
	if err := h.DB.First(&u, id.UserID).Error; err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

type updateMeReq struct {
	Name              *string `json:"name"`
	LastName          *string `json:"last_name"`
	Phone             *string `json:"phone"`
	ReminderEveryDays *int    `json:"reminder_every_days" validate:"omitempty,min=1,max=90"`
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req updateMeReq
	if !bindJSON(w, r, &req) {
		return
	}

	var u auth.User
	if err := h.DB.First(&u, id.UserID).Error; err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		u.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ReminderEveryDays != nil {
		u.ReminderEveryDays = *req.ReminderEveryDays
	}

	if err := h.DB.Save(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	writeJSON(w, http.StatusOK, userView(u))
}

func userView(u auth.User) map[string]any {
	return map[string]any{
		"id":                  u.ID,
		"name":                u.Name,
		"last_name":           u.LastName,
		"email":               u.Email,
		"phone":               u.Phone,
		"is_staff":            u.IsStaff,
		"reminder_every_days": u.ReminderEveryDays,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
