package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
)

func TestGate_ResolveRole(t *testing.T) {
	gate := services.NewGate(" Admin@MilitaryHostel.com ")

	tests := []struct {
		name     string
		identity *domain.Identity
		want     domain.Role
	}{
		{"nil identity", nil, domain.RoleUnauthenticated},
		{"admin claim on admin email", admin, domain.RoleAdmin},
		{"admin email case-insensitive", &domain.Identity{UID: "x", Email: "ADMIN@militaryhostel.com", Role: domain.RoleAdmin}, domain.RoleAdmin},
		{"admin claim on other email", &domain.Identity{UID: "x", Email: "eve@example.com", Role: domain.RoleAdmin}, domain.RoleResident},
		{"admin email without claim", &domain.Identity{UID: "x", Email: testAdminEmail, Role: domain.RoleResident}, domain.RoleResident},
		{"resident", resident("u1"), domain.RoleResident},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.ResolveRole(tt.identity))
		})
	}
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/admin-dashboard", services.DashboardPath(domain.RoleAdmin))
	assert.Equal(t, "/resident-dashboard", services.DashboardPath(domain.RoleResident))
	assert.Equal(t, "/login", services.DashboardPath(domain.RoleUnauthenticated))
}

func TestGate_Scope(t *testing.T) {
	gate := services.NewGate(testAdminEmail)

	t.Run("resident sees only own records", func(t *testing.T) {
		q, transform, err := gate.Scope(resident("u1"), domain.KindOutpass)
		require.NoError(t, err)
		assert.Equal(t, "u1", q.OwnerID)
		assert.Nil(t, transform)
	})

	t.Run("admin sees every record", func(t *testing.T) {
		q, _, err := gate.Scope(admin, domain.KindComplaint)
		require.NoError(t, err)
		assert.Empty(t, q.OwnerID)
	})

	t.Run("admin registrations are pending first", func(t *testing.T) {
		_, transform, err := gate.Scope(admin, domain.KindRegistration)
		require.NoError(t, err)
		assert.NotNil(t, transform)
	})

	t.Run("announcements are public", func(t *testing.T) {
		_, _, err := gate.Scope(nil, domain.KindAnnouncement)
		assert.NoError(t, err)
	})

	t.Run("notices need a signed-in identity", func(t *testing.T) {
		_, _, err := gate.Scope(nil, domain.KindNotice)
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, _, err = gate.Scope(resident("u1"), domain.KindNotice)
		assert.NoError(t, err)
	})

	t.Run("anonymous cannot list workflow records", func(t *testing.T) {
		_, _, err := gate.Scope(nil, domain.KindOutpass)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := gate.Scope(admin, domain.Kind("laundry"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
