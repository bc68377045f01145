package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/auth"
)

// Handler exposes HTTP endpoints for account operations (signup / login / me).
type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), logger: logger}
}

// SignupRequest request body for signup endpoint.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

type message struct {
	Message string `json:"message"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid signup payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, message{"Invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, message{signupValidationMessage(err)})
		return
	}

	a, err := h.svc.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			h.logger.Infow("signup rejected: duplicate email")
			h.writeJSON(w, http.StatusConflict, message{"Email already registered"})
			return
		}
		h.logger.Errorw("signup failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
		return
	}
	h.logger.Infow("account created", "account_id", a.ID)
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeJSON(w, http.StatusBadRequest, message{"Invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, message{"Email and password are required"})
		return
	}

	token, a, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logger.Debugw("login failed")
			h.writeJSON(w, http.StatusUnauthorized, message{"Invalid credentials"})
			return
		}
		h.logger.Errorw("login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
		return
	}
	h.logger.Debugw("login succeeded", "account_id", a.ID)
	h.writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// Me returns the authenticated caller's account. Must run behind auth.RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, message{auth.MsgInvalidToken})
		return
	}
	a, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, message{"User not found"})
			return
		}
		h.logger.Errorw("profile lookup failed", "account_id", id, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, message{"Internal server error"})
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func signupValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "email" {
				return "Invalid email"
			}
		}
	}
	return "Username, email, and password are required"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
