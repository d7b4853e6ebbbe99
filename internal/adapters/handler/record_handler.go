package handler

import (
	"net/http"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
)

// RecordHandler serves submissions, listings and administrator decisions
// for every workflow kind.
type RecordHandler struct {
	workflow ports.WorkflowService
	notices  ports.NoticeService
	gate     *services.Gate
}

func NewRecordHandler(workflow ports.WorkflowService, notices ports.NoticeService, gate *services.Gate) *RecordHandler {
	return &RecordHandler{workflow: workflow, notices: notices, gate: gate}
}

type TransitionRequest struct {
	Status domain.Status `json:"status"`
}

type ListResponse struct {
	Kind    domain.Kind     `json:"kind"`
	Records []domain.Record `json:"records"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

func (h *RecordHandler) SubmitOutpass(w http.ResponseWriter, r *http.Request) {
	var p domain.OutpassPayload
	h.submit(w, r, &p)
}

func (h *RecordHandler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	var p domain.ComplaintPayload
	h.submit(w, r, &p)
}

func (h *RecordHandler) SubmitAppointment(w http.ResponseWriter, r *http.Request) {
	var p domain.AppointmentPayload
	h.submit(w, r, &p)
}

func (h *RecordHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var p domain.ApplicationPayload
	h.submit(w, r, &p)
}

func (h *RecordHandler) submit(w http.ResponseWriter, r *http.Request, payload domain.Payload) {
	if !decodeJSON(w, r, payload) {
		return
	}
	id, err := h.workflow.Submit(r.Context(), middleware.IdentityFrom(r.Context()), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Submitted", ID: id})
}

// List returns the caller's current view of a kind: every record for the
// administrator, the caller's own records for a resident.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	actor := middleware.IdentityFrom(r.Context())

	var (
		records []domain.Record
		err     error
	)
	if domain.IsNoticeKind(kind) {
		if _, _, err = h.gate.Scope(actor, kind); err == nil {
			records, err = h.notices.List(r.Context(), kind)
		}
	} else {
		records, err = h.workflow.List(r.Context(), actor, kind)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Kind: kind, Records: records})
}

func (h *RecordHandler) Transition(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.workflow.Transition(r.Context(), middleware.IdentityFrom(r.Context()), kind, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Status updated", ID: r.PathValue("id")})
}

func (h *RecordHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	if err := h.workflow.MarkSeen(r.Context(), middleware.IdentityFrom(r.Context()), kind, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Marked as seen", ID: r.PathValue("id")})
}

func (h *RecordHandler) ClearRegistrationHistory(w http.ResponseWriter, r *http.Request) {
	removed, err := h.workflow.ClearRegistrationHistory(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}
