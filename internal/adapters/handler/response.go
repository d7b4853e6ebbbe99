package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Anything unknown is
// logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthError
		terr *domain.IllegalTransitionError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.As(err, &aerr):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: aerr.Reason})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: terr.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "conflict"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Printf("handler: store unavailable: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable"})
	default:
		log.Printf("handler: unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 itself and
// reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// pathKind parses the {kind} path segment, writing a 404 when unknown.
func pathKind(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, ok := domain.ParseKind(r.PathValue("kind"))
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown record kind"})
		return "", false
	}
	return kind, true
}
