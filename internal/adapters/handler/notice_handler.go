package handler

import (
	"net/http"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

type NoticeHandler struct {
	notices ports.NoticeService
}

func NewNoticeHandler(notices ports.NoticeService) *NoticeHandler {
	return &NoticeHandler{notices: notices}
}

// Publish returns a handler creating a record of kind, which is either
// notices or announcements.
func (h *NoticeHandler) Publish(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload domain.NoticePayload
		if !decodeJSON(w, r, &payload) {
			return
		}
		id, err := h.notices.Publish(r.Context(), middleware.IdentityFrom(r.Context()), kind, payload)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, MessageResponse{Message: "Published", ID: id})
	}
}

func (h *NoticeHandler) Delete(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := h.notices.Delete(r.Context(), middleware.IdentityFrom(r.Context()), kind, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Deleted", ID: id})
	}
}

// Announcements is public.
func (h *NoticeHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	records, err := h.notices.List(r.Context(), domain.KindAnnouncement)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Kind: domain.KindAnnouncement, Records: records})
}
