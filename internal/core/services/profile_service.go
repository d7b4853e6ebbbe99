package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const (
	profileName      = "name"
	profileRoom      = "room"
	profileRoommates = "roommates"
	notePrefix       = "notes."
	noteDateLayout   = "2006-01-02"
)

// ProfileService keeps a resident's maintenance details and duty calendar
// notes on their registration record.
type ProfileService struct {
	store     ports.RecordStore
	feed      ports.ChangeFeed
	gate      *Gate
	validator *Validator
}

var _ ports.ProfileService = (*ProfileService)(nil)

func NewProfileService(store ports.RecordStore, feed ports.ChangeFeed, gate *Gate, validator *Validator) *ProfileService {
	return &ProfileService{store: store, feed: feed, gate: gate, validator: validator}
}

func (s *ProfileService) UpdateProfile(ctx context.Context, actor *domain.Identity, profile domain.Profile) error {
	if err := s.gate.RequireResident(actor); err != nil {
		return err
	}
	if err := s.validator.Struct(profile); err != nil {
		return err
	}

	roommates := make([]string, 0, len(profile.Roommates))
	for _, r := range profile.Roommates {
		if r = strings.TrimSpace(r); r != "" {
			roommates = append(roommates, r)
		}
	}

	err := s.store.UpdateFields(ctx, domain.KindRegistration, actor.UID, map[string]string{
		profileName:      strings.TrimSpace(profile.Name),
		profileRoom:      strings.TrimSpace(profile.Room),
		profileRoommates: strings.Join(roommates, ","),
	}, nil)
	if err != nil {
		return errors.Wrap(err, "update profile")
	}
	s.notify(ctx, actor.UID)
	return nil
}

// SaveNote stores the note for date (YYYY-MM-DD). Blank text removes it.
func (s *ProfileService) SaveNote(ctx context.Context, actor *domain.Identity, date, text string) error {
	if err := s.gate.RequireResident(actor); err != nil {
		return err
	}
	if _, err := time.Parse(noteDateLayout, date); err != nil {
		return domain.NewValidationError(domain.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
	}

	key := notePrefix + date
	var err error
	if text = strings.TrimSpace(text); text == "" {
		err = s.store.UpdateFields(ctx, domain.KindRegistration, actor.UID, nil, []string{key})
	} else {
		err = s.store.UpdateFields(ctx, domain.KindRegistration, actor.UID, map[string]string{key: text}, nil)
	}
	if err != nil {
		return errors.Wrap(err, "save note")
	}
	s.notify(ctx, actor.UID)
	return nil
}

func (s *ProfileService) notify(ctx context.Context, uid string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, domain.ChangeEvent{Kind: domain.KindRegistration, RecordID: uid, OwnerID: uid, Op: domain.OpUpdated}); err != nil {
		log.Printf("profile: change notification for %s dropped: %v", uid, err)
	}
}
