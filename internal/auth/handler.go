// backend/internal/auth/handler.go
package auth

import (
	"net/http"

	"lesson-system/internal/request"
	"lesson-system/internal/response"
	"lesson-system/pkg/logger"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=128"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, h.log, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.JSON(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, h.log, err)
		return
	}

	pair, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.OK(w, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, h.log, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.OK(w, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, h.log, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		response.Error(w, h.log, err)
		return
	}

	response.OK(w, map[string]bool{"success": true})
}
