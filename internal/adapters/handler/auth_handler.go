package handler

import (
	"net/http"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
)

type AuthHandler struct {
	authService ports.AuthService
	gate        *services.Gate
}

func NewAuthHandler(auth ports.AuthService, gate *services.Gate) *AuthHandler {
	return &AuthHandler{authService: auth, gate: gate}
}

type LoginResponse struct {
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	Identity  domain.Identity `json:"identity"`
	Dashboard string          `json:"dashboard"`
}

type MeResponse struct {
	Identity  *domain.Identity `json:"identity"`
	Role      domain.Role      `json:"role"`
	Dashboard string           `json:"dashboard"`
}

func (h *AuthHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.authService.NewCaptcha(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Registration submitted, awaiting approval",
		ID:      identity.UID,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.authService.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminSignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.authService.AdminSignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.SignOut(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Me reports who the caller is and where the browser should route them.
// Anonymous callers get the login route.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	role := h.gate.ResolveRole(identity)
	writeJSON(w, http.StatusOK, MeResponse{
		Identity:  identity,
		Role:      role,
		Dashboard: services.DashboardPath(role),
	})
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, session *domain.Session) {
	role := h.gate.ResolveRole(&session.Identity)
	writeJSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful",
		Token:     session.Token,
		Identity:  session.Identity,
		Dashboard: services.DashboardPath(role),
	})
}
