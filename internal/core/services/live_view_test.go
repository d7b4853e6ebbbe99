package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

func TestLiveView_InitialSnapshotIsOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.workflow.Submit(ctx, resident("u1"), validOutpass())
		require.NoError(t, err)
	}

	sub := f.subscribe(t, admin, domain.KindOutpass)
	snap := waitFor(t, sub, func(domain.Snapshot) bool { return true })
	require.Len(t, snap.Records, 3)
	for i := 1; i < len(snap.Records); i++ {
		assert.True(t, snap.Records[i-1].CreatedAt.After(snap.Records[i].CreatedAt))
	}
}

func TestLiveView_OwnerFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.subscribe(t, resident("u1"), domain.KindComplaint)

	_, err := f.workflow.Submit(ctx, resident("u2"), &domain.ComplaintPayload{Subject: "s", Message: "m", Name: "n", Room: "r"})
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, resident("u1"), &domain.ComplaintPayload{Subject: "s", Message: "m", Name: "n", Room: "r"})
	require.NoError(t, err)

	snap := waitFor(t, sub, func(s domain.Snapshot) bool { return len(s.Records) == 1 })
	assert.Equal(t, "u1", snap.Records[0].OwnerID)
}

func TestLiveView_SlowReaderSeesLatestState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.subscribe(t, admin, domain.KindApplication)

	for i := 0; i < 10; i++ {
		_, err := f.workflow.Submit(ctx, nil, validApplication())
		require.NoError(t, err)
	}

	// Never more than one snapshot is buffered, so the reader catches up
	// without draining a backlog.
	snap := waitFor(t, sub, func(s domain.Snapshot) bool { return len(s.Records) == 10 })
	assert.Len(t, snap.Records, 10)
	assert.LessOrEqual(t, len(sub.Snapshots()), 1)
}

func TestLiveView_TransformAppliedPerSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedRegistration(t, "a", domain.StatusApproved)
	f.seedRegistration(t, "p", domain.StatusPending)
	f.seedRegistration(t, "b", domain.StatusRejected)

	sub := f.subscribe(t, admin, domain.KindRegistration)
	snap := waitFor(t, sub, func(s domain.Snapshot) bool { return len(s.Records) == 3 })
	assert.Equal(t, "p", snap.Records[0].ID)

	require.NoError(t, f.workflow.Transition(context.Background(), admin, domain.KindRegistration, "p", domain.StatusApproved))
	snap = waitFor(t, sub, func(s domain.Snapshot) bool { return s.Records[0].Status != domain.StatusPending })
	assert.Equal(t, []string{"b", "p", "a"}, []string{snap.Records[0].ID, snap.Records[1].ID, snap.Records[2].ID})
}

func TestLiveView_ResubscribeReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	q := domain.Query{Kind: domain.KindNotice}

	first, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "dash", Query: q})
	require.NoError(t, err)
	second, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "dash", Query: q})
	require.NoError(t, err)
	defer second.Unsubscribe()

	<-first.Snapshots() // drain any snapshot delivered before teardown
	_, open := <-first.Snapshots()
	assert.False(t, open, "first subscription should be closed")
	assert.Equal(t, 1, f.views.Active())

	other, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "other", Query: q})
	require.NoError(t, err)
	defer other.Unsubscribe()
	assert.Equal(t, 2, f.views.Active())
}

func TestLiveView_UnsubscribeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sub, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "v", Query: domain.Query{Kind: domain.KindNotice}})
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 0, f.views.Active())
}

func TestLiveView_ContextCancelUnsubscribes(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.views.Subscribe(ctx, ports.ViewRequest{ViewID: "v", Query: domain.Query{Kind: domain.KindNotice}})
	require.NoError(t, err)
	require.Equal(t, 1, f.views.Active())

	cancel()
	assert.Eventually(t, func() bool { return f.views.Active() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLiveView_InitialQueryFailure(t *testing.T) {
	f := newFixture(t)
	f.store.QueryError = errors.Wrap(domain.ErrStoreUnavailable, "down")

	_, err := f.views.Subscribe(context.Background(), ports.ViewRequest{ViewID: "v", Query: domain.Query{Kind: domain.KindOutpass}})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 0, f.views.Active())
}
