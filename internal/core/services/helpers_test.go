package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/feed"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/services"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/mocks"
)

const testAdminEmail = "admin@militaryhostel.com"

var admin = &domain.Identity{UID: "admin:" + testAdminEmail, Email: testAdminEmail, Role: domain.RoleAdmin}

func resident(uid string) *domain.Identity {
	return &domain.Identity{UID: uid, Email: uid + "@example.com", Role: domain.RoleResident}
}

type fixture struct {
	store     *mocks.MockRecordStore
	feed      *feed.MemoryFeed
	gate      *services.Gate
	validator *services.Validator
	workflow  *services.WorkflowService
	views     *services.LiveViewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		store:     mocks.NewMockRecordStore(),
		feed:      feed.NewMemoryFeed(),
		gate:      services.NewGate(testAdminEmail),
		validator: services.NewValidator(),
	}
	f.workflow = services.NewWorkflowService(f.store, f.feed, f.gate, f.validator, nil)
	f.views = services.NewLiveViewService(f.store, f.feed, nil)
	require.NoError(t, f.views.Start(ctx))
	return f
}

// subscribe opens the live view actor would get for kind.
func (f *fixture) subscribe(t *testing.T, actor *domain.Identity, kind domain.Kind) ports.Subscription {
	t.Helper()
	q, transform, err := f.gate.Scope(actor, kind)
	require.NoError(t, err)
	sub, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "test", Query: q, Transform: transform})
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
	return sub
}

// waitFor reads snapshots until one satisfies pred.
func waitFor(t *testing.T, sub ports.Subscription, pred func(domain.Snapshot) bool) domain.Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			require.True(t, ok, "subscription closed while waiting")
			if pred(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func validOutpass() *domain.OutpassPayload {
	return &domain.OutpassPayload{
		Name:               "Arjun Mehta",
		ClassName:          "XI-B",
		RoomNo:             "204",
		FromDate:           "2024-06-01",
		ToDate:             "2024-06-03",
		Reason:             "Family function",
		GuardianName:       "R. Mehta",
		SuperintendentName: "Maj. Rao",
	}
}

func validApplication() *domain.ApplicationPayload {
	return &domain.ApplicationPayload{
		CandidateName:   "Kavya Singh",
		CandidateAge:    "14",
		ParentName:      "Col. Singh",
		ParentServiceID: "IC-4432",
		Phone:           "+911234567890",
		PreferredDate:   "2024-07-10",
		PreferredTime:   "10:30",
		AgreeVisitTerms: true,
	}
}

// seedRegistration stores a registration record for uid with status.
func (f *fixture) seedRegistration(t *testing.T, uid string, status domain.Status) {
	t.Helper()
	_, err := f.store.MemoryStore.Create(context.Background(), domain.Record{
		ID:         uid,
		Kind:       domain.KindRegistration,
		OwnerID:    uid,
		OwnerEmail: uid + "@example.com",
		Status:     status,
		Fields:     map[string]string{"email": uid + "@example.com"},
	})
	require.NoError(t, err)
}

// brokenFeed accepts subscribers but fails every publish.
type brokenFeed struct{}

func (brokenFeed) Publish(context.Context, domain.ChangeEvent) error {
	return domain.ErrStoreUnavailable
}

func (brokenFeed) Subscribe(context.Context) (<-chan domain.ChangeEvent, error) {
	return make(chan domain.ChangeEvent), nil
}
