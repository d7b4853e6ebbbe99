package handler

import (
	"net/http"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// Instrumenter wraps a route handler, typically with latency metrics.
type Instrumenter func(route string, next http.Handler) http.Handler

// Routes bundles everything the API mux serves.
type Routes struct {
	Auth       *AuthHandler
	Records    *RecordHandler
	Notices    *NoticeHandler
	Profile    *ProfileHandler
	Stream     *StreamHandler
	Health     *HealthHandler
	Metrics    http.Handler
	Middleware *middleware.AuthMiddleware
	Instrument Instrumenter
}

var (
	anyRole       = []domain.Role{domain.RoleAdmin, domain.RoleResident}
	adminOnly     = []domain.Role{domain.RoleAdmin}
	residentsOnly = []domain.Role{domain.RoleResident}
)

// NewMux registers every endpoint on a method-aware ServeMux.
func NewMux(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()
	auth := rt.Middleware

	handle := func(pattern string, h http.HandlerFunc) {
		var next http.Handler = h
		if rt.Instrument != nil {
			next = rt.Instrument(pattern, next)
		}
		mux.Handle(pattern, next)
	}

	// Health endpoints (OpenShift compatible)
	mux.HandleFunc("/health", rt.Health.Health)
	mux.HandleFunc("/health/ready", rt.Health.Ready)
	mux.HandleFunc("/health/live", rt.Health.Live)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	handle("POST /auth/captcha", rt.Auth.Captcha)
	handle("POST /auth/register", rt.Auth.Register)
	handle("POST /auth/login", rt.Auth.Login)
	handle("POST /auth/admin/login", rt.Auth.AdminLogin)
	handle("POST /auth/logout", auth.RequireRole(anyRole, rt.Auth.Logout))
	handle("GET /auth/me", auth.Optional(rt.Auth.Me))

	handle("POST /outpasses", auth.RequireRole(residentsOnly, rt.Records.SubmitOutpass))
	handle("POST /complaints", auth.RequireRole(residentsOnly, rt.Records.SubmitComplaint))
	handle("POST /appointments", auth.RequireRole(residentsOnly, rt.Records.SubmitAppointment))
	handle("POST /applications", auth.Optional(rt.Records.SubmitApplication))

	handle("GET /records/{kind}", auth.Optional(rt.Records.List))
	handle("GET /views/{kind}", auth.Optional(rt.Stream.Stream))
	handle("POST /records/{kind}/{id}/status", auth.RequireRole(adminOnly, rt.Records.Transition))
	handle("POST /records/{kind}/{id}/seen", auth.RequireRole(adminOnly, rt.Records.MarkSeen))
	handle("DELETE /registrations/history", auth.RequireRole(adminOnly, rt.Records.ClearRegistrationHistory))

	handle("POST /notices", auth.RequireRole(adminOnly, rt.Notices.Publish(domain.KindNotice)))
	handle("DELETE /notices/{id}", auth.RequireRole(adminOnly, rt.Notices.Delete(domain.KindNotice)))
	handle("POST /announcements", auth.RequireRole(adminOnly, rt.Notices.Publish(domain.KindAnnouncement)))
	handle("DELETE /announcements/{id}", auth.RequireRole(adminOnly, rt.Notices.Delete(domain.KindAnnouncement)))
	handle("GET /announcements", rt.Notices.Announcements)

	handle("PUT /profile", auth.RequireRole(residentsOnly, rt.Profile.UpdateProfile))
	handle("PUT /profile/notes/{date}", auth.RequireRole(residentsOnly, rt.Profile.SaveNote))

	return mux
}
