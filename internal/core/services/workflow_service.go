package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// outpassMirrorField is the denormalized copy of the latest outpass decision
// kept on the resident's registration record.
const outpassMirrorField = "outpass.status"

type WorkflowService struct {
	store     ports.RecordStore
	feed      ports.ChangeFeed
	gate      *Gate
	validator *Validator
	observer  ports.Observer
	now       func() time.Time
}

var _ ports.WorkflowService = (*WorkflowService)(nil)

func NewWorkflowService(
	store ports.RecordStore,
	feed ports.ChangeFeed,
	gate *Gate,
	validator *Validator,
	observer ports.Observer,
) *WorkflowService {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &WorkflowService{
		store:     store,
		feed:      feed,
		gate:      gate,
		validator: validator,
		observer:  observer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit creates a record of the payload's kind in its initial status.
// Applications may be submitted anonymously; every other kind needs a
// resident. Registrations are only created through sign-up.
func (s *WorkflowService) Submit(ctx context.Context, actor *domain.Identity, payload domain.Payload) (string, error) {
	kind := payload.Kind()
	wf, ok := domain.WorkflowFor(kind)
	if !ok || kind == domain.KindRegistration {
		return "", domain.ErrForbidden
	}

	if kind != domain.KindApplication {
		if err := s.gate.RequireResident(actor); err != nil {
			return "", err
		}
	}

	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}

	rec := domain.Record{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: wf.Initial,
		Fields: payload.Fields(),
	}
	if kind != domain.KindApplication {
		rec.OwnerID = actor.UID
		rec.OwnerEmail = actor.Email
		s.fillFromProfile(ctx, actor.UID, rec.Fields)
	}

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		log.Printf("workflow: failed to submit %s: %v", kind, err)
		return "", errors.Wrapf(err, "submit %s", kind)
	}

	s.observer.RecordSubmitted(kind)
	s.notify(ctx, domain.ChangeEvent{Kind: kind, RecordID: created.ID, OwnerID: created.OwnerID, Op: domain.OpCreated})
	return created.ID, nil
}

// Transition moves a record along an edge of its kind's state machine.
func (s *WorkflowService) Transition(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string, to domain.Status) error {
	if err := s.gate.RequireAdmin(actor); err != nil {
		return err
	}
	wf, ok := domain.WorkflowFor(kind)
	if !ok {
		return &domain.IllegalTransitionError{Kind: kind, To: to}
	}

	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return errors.Wrapf(err, "transition %s/%s", kind, id)
	}

	from := wf.Normalize(rec.Status)
	if !wf.CanTransition(from, to) {
		return &domain.IllegalTransitionError{Kind: kind, From: from, To: to}
	}

	return s.apply(ctx, actor, wf, rec, to)
}

// MarkSeen records that an administrator opened the record. It is a no-op
// once the record has left its unseen status.
func (s *WorkflowService) MarkSeen(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string) error {
	if err := s.gate.RequireAdmin(actor); err != nil {
		return err
	}
	wf, ok := domain.WorkflowFor(kind)
	if !ok || wf.Seen == "" {
		return &domain.IllegalTransitionError{Kind: kind, To: domain.StatusSeen}
	}

	rec, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return errors.Wrapf(err, "mark seen %s/%s", kind, id)
	}
	if wf.Normalize(rec.Status) != wf.Initial {
		return nil
	}

	err = s.apply(ctx, actor, wf, rec, wf.Seen)
	if domain.IsIllegalTransition(err) {
		// Lost a race against another administrator; the record has been
		// seen either way.
		return nil
	}
	return err
}

func (s *WorkflowService) apply(ctx context.Context, actor *domain.Identity, wf domain.Workflow, rec *domain.Record, to domain.Status) error {
	change := domain.StatusChange{
		From:  rec.Status,
		To:    to,
		Actor: actor.Email,
		At:    s.now(),
	}

	outboxPayload, err := json.Marshal(ports.TransitionEvent{
		RecordID: rec.ID,
		Kind:     rec.Kind,
		From:     wf.Normalize(rec.Status),
		To:       to,
		Actor:    actor.Email,
		OwnerID:  rec.OwnerID,
		At:       change.At,
	})
	if err != nil {
		return errors.Wrap(err, "marshal transition event")
	}

	updated, err := s.store.UpdateStatus(ctx, domain.StatusUpdate{
		Kind:     rec.Kind,
		ID:       rec.ID,
		Expected: rec.Status,
		Change:   change,
		MarkSeen: to == wf.Seen,
	}, outboxPayload)
	if errors.Is(err, domain.ErrConflict) {
		return &domain.IllegalTransitionError{Kind: rec.Kind, From: wf.Normalize(rec.Status), To: to}
	}
	if err != nil {
		log.Printf("workflow: failed to move %s/%s to %s: %v", rec.Kind, rec.ID, to, err)
		return errors.Wrapf(err, "transition %s/%s", rec.Kind, rec.ID)
	}

	log.Printf("workflow: %s/%s %s -> %s by %s", rec.Kind, rec.ID, wf.Normalize(rec.Status), to, actor.Email)
	s.observer.RecordTransitioned(rec.Kind, to)

	if rec.Kind == domain.KindOutpass && updated.OwnerID != "" {
		s.mirrorOutpassStatus(ctx, updated.OwnerID, to)
	}

	s.notify(ctx, domain.ChangeEvent{Kind: rec.Kind, RecordID: rec.ID, OwnerID: rec.OwnerID, Op: domain.OpUpdated})
	return nil
}

// List returns the records of kind visible to actor, ordered the way the
// matching live view orders them.
func (s *WorkflowService) List(ctx context.Context, actor *domain.Identity, kind domain.Kind) ([]domain.Record, error) {
	if !domain.IsWorkflowKind(kind) {
		return nil, domain.ErrNotFound
	}
	q, transform, err := s.gate.Scope(actor, kind)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", kind)
	}
	domain.SortRecords(records, q.Order)
	if transform != nil {
		records = transform(records)
	}
	return records, nil
}

// ClearRegistrationHistory deletes every registration that is no longer
// pending and returns how many were removed.
func (s *WorkflowService) ClearRegistrationHistory(ctx context.Context, actor *domain.Identity) (int, error) {
	if err := s.gate.RequireAdmin(actor); err != nil {
		return 0, err
	}
	records, err := s.store.Query(ctx, domain.Query{Kind: domain.KindRegistration})
	if err != nil {
		return 0, errors.Wrap(err, "clear registration history")
	}

	removed := 0
	for _, rec := range records {
		if rec.Status == domain.StatusPending {
			continue
		}
		if err := s.store.Delete(ctx, domain.KindRegistration, rec.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return removed, errors.Wrapf(err, "delete registration %s", rec.ID)
		}
		removed++
		s.notify(ctx, domain.ChangeEvent{Kind: domain.KindRegistration, RecordID: rec.ID, OwnerID: rec.OwnerID, Op: domain.OpDeleted})
	}
	return removed, nil
}

// mirrorOutpassStatus is best-effort: the outpass record stays the source of
// truth when the mirror write fails.
func (s *WorkflowService) mirrorOutpassStatus(ctx context.Context, ownerID string, status domain.Status) {
	err := s.store.UpdateFields(ctx, domain.KindRegistration, ownerID, map[string]string{
		outpassMirrorField: string(status),
	}, nil)
	if err != nil {
		log.Printf("workflow: could not mirror outpass status for %s (non-fatal): %v", ownerID, err)
		return
	}
	s.notify(ctx, domain.ChangeEvent{Kind: domain.KindRegistration, RecordID: ownerID, OwnerID: ownerID, Op: domain.OpUpdated})
}

// fillFromProfile copies name and room from the resident's registration
// record into fields that were left empty.
func (s *WorkflowService) fillFromProfile(ctx context.Context, uid string, fields map[string]string) {
	name, hasName := fields["name"]
	room, hasRoom := fields["room"]
	needName := hasName && name == ""
	needRoom := hasRoom && room == ""
	if !needName && !needRoom {
		return
	}
	reg, err := s.store.Get(ctx, domain.KindRegistration, uid)
	if err != nil {
		return
	}
	if needName {
		fields["name"] = reg.Fields[profileName]
	}
	if needRoom {
		fields["room"] = reg.Fields[profileRoom]
	}
}

func (s *WorkflowService) notify(ctx context.Context, evt domain.ChangeEvent) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, evt); err != nil {
		log.Printf("workflow: change notification for %s/%s dropped: %v", evt.Kind, evt.RecordID, err)
	}
}
