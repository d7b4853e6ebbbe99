package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"listed origin", []string{"https://portal.example"}, http.MethodGet, "https://portal.example", "https://portal.example", http.StatusOK},
		{"unlisted origin", []string{"https://portal.example"}, http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"wildcard echoes origin", []string{"*"}, http.MethodGet, "https://any.example", "https://any.example", http.StatusOK},
		{"wildcard without origin", []string{"*"}, http.MethodGet, "", "*", http.StatusOK},
		{"preflight", []string{"https://portal.example"}, http.MethodOptions, "https://portal.example", "https://portal.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/records/outpass", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			CORSMiddleware(tt.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected Access-Control-Allow-Origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}
