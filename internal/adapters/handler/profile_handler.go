package handler

import (
	"net/http"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type NoteRequest struct {
	Text string `json:"text"`
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if !decodeJSON(w, r, &profile) {
		return
	}
	if err := h.profiles.UpdateProfile(r.Context(), middleware.IdentityFrom(r.Context()), profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Profile updated"})
}

// SaveNote stores the duty note for {date}; an empty text removes it.
func (h *ProfileHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.profiles.SaveNote(r.Context(), middleware.IdentityFrom(r.Context()), r.PathValue("date"), req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note saved"})
}
