package services

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// NoticeService publishes resident notices and public announcements. Both
// are append-only: they are created and deleted, never edited.
type NoticeService struct {
	store     ports.RecordStore
	feed      ports.ChangeFeed
	gate      *Gate
	validator *Validator
}

var _ ports.NoticeService = (*NoticeService)(nil)

func NewNoticeService(store ports.RecordStore, feed ports.ChangeFeed, gate *Gate, validator *Validator) *NoticeService {
	return &NoticeService{
		store:     store,
		feed:      feed,
		gate:      gate,
		validator: validator,
	}
}

func (s *NoticeService) Publish(ctx context.Context, actor *domain.Identity, kind domain.Kind, payload domain.NoticePayload) (string, error) {
	if !domain.IsNoticeKind(kind) {
		return "", domain.ErrNotFound
	}
	if err := s.gate.RequireAdmin(actor); err != nil {
		return "", err
	}
	if err := s.validator.Struct(payload); err != nil {
		return "", err
	}

	fields := payload.Fields()
	fields["createdBy"] = actor.Email
	created, err := s.store.Create(ctx, domain.Record{
		ID:     uuid.NewString(),
		Kind:   kind,
		Fields: fields,
	})
	if err != nil {
		log.Printf("notices: failed to publish %s: %v", kind, err)
		return "", errors.Wrapf(err, "publish %s", kind)
	}

	s.notify(ctx, domain.ChangeEvent{Kind: kind, RecordID: created.ID, Op: domain.OpCreated})
	return created.ID, nil
}

func (s *NoticeService) Delete(ctx context.Context, actor *domain.Identity, kind domain.Kind, id string) error {
	if !domain.IsNoticeKind(kind) {
		return domain.ErrNotFound
	}
	if err := s.gate.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kind, id); err != nil {
		return errors.Wrapf(err, "delete %s/%s", kind, id)
	}
	s.notify(ctx, domain.ChangeEvent{Kind: kind, RecordID: id, Op: domain.OpDeleted})
	return nil
}

// List returns notices newest first.
func (s *NoticeService) List(ctx context.Context, kind domain.Kind) ([]domain.Record, error) {
	if !domain.IsNoticeKind(kind) {
		return nil, domain.ErrNotFound
	}
	records, err := s.store.Query(ctx, domain.Query{Kind: kind, Order: domain.NewestFirst})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", kind)
	}
	domain.SortRecords(records, domain.NewestFirst)
	return records, nil
}

func (s *NoticeService) notify(ctx context.Context, evt domain.ChangeEvent) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, evt); err != nil {
		log.Printf("notices: change notification for %s/%s dropped: %v", evt.Kind, evt.RecordID, err)
	}
}
