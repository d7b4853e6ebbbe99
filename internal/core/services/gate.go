package services

import (
	"strings"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// Gate resolves the dashboard role of an identity and scopes what it may see.
type Gate struct {
	adminEmail string
}

func NewGate(adminEmail string) *Gate {
	return &Gate{adminEmail: strings.ToLower(strings.TrimSpace(adminEmail))}
}

// ResolveRole returns RoleAdmin only for a verified ADMIN claim on the
// configured administrator address. Any other authenticated identity is a
// resident.
func (g *Gate) ResolveRole(identity *domain.Identity) domain.Role {
	if !identity.Authenticated() {
		return domain.RoleUnauthenticated
	}
	if identity.Role == domain.RoleAdmin && strings.EqualFold(identity.Email, g.adminEmail) {
		return domain.RoleAdmin
	}
	return domain.RoleResident
}

func (g *Gate) IsAdminEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), g.adminEmail)
}

func (g *Gate) RequireAdmin(actor *domain.Identity) error {
	if g.ResolveRole(actor) != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}

func (g *Gate) RequireResident(actor *domain.Identity) error {
	if g.ResolveRole(actor) != domain.RoleResident {
		return domain.ErrForbidden
	}
	return nil
}

// DashboardPath is where the browser shell should route the identity.
func DashboardPath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/admin-dashboard"
	case domain.RoleResident:
		return "/resident-dashboard"
	default:
		return "/login"
	}
}

// Scope builds the query an actor may run against kind. Administrators see
// every record, residents only their own; announcements are public and
// notices need any signed-in identity.
func (g *Gate) Scope(actor *domain.Identity, kind domain.Kind) (domain.Query, func([]domain.Record) []domain.Record, error) {
	q := domain.Query{Kind: kind, Order: domain.NewestFirst}
	role := g.ResolveRole(actor)

	switch {
	case kind == domain.KindAnnouncement:
		return q, nil, nil
	case kind == domain.KindNotice:
		if role == domain.RoleUnauthenticated {
			return q, nil, domain.ErrForbidden
		}
		return q, nil, nil
	case !domain.IsWorkflowKind(kind):
		return q, nil, domain.ErrNotFound
	}

	switch role {
	case domain.RoleAdmin:
		if kind == domain.KindRegistration {
			return q, domain.PendingFirst, nil
		}
		return q, nil, nil
	case domain.RoleResident:
		q.OwnerID = actor.UID
		return q, nil, nil
	default:
		return q, nil, domain.ErrForbidden
	}
}
