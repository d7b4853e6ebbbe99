package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
)

const heartbeatInterval = 25 * time.Second

// StreamHandler pushes live view snapshots as Server-Sent Events.
type StreamHandler struct {
	views ports.LiveViewService
	gate  *services.Gate
}

func NewStreamHandler(views ports.LiveViewService, gate *services.Gate) *StreamHandler {
	return &StreamHandler{views: views, gate: gate}
}

// Stream serves GET /views/{kind}. The optional view query parameter names
// the dashboard view; opening the same view again replaces the older stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming unsupported"})
		return
	}

	actor := middleware.IdentityFrom(r.Context())
	query, transform, err := h.gate.Scope(actor, kind)
	if err != nil {
		writeError(w, err)
		return
	}

	viewID := r.URL.Query().Get("view")
	if viewID == "" {
		viewID = uuid.NewString()
	}
	if actor != nil {
		viewID = actor.UID + "/" + viewID
	}

	sub, err := h.views.Subscribe(r.Context(), ports.ViewRequest{
		ViewID:    viewID,
		Query:     query,
		Transform: transform,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-sub.Snapshots():
			if !open {
				// Replaced by a newer stream for the same view.
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				log.Printf("stream: failed to encode %s snapshot: %v", kind, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
