package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// MemoryStore is an in-process RecordStore and IdentityStore for development
// and tests. Creation timestamps are strictly increasing.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[domain.Kind]map[string]domain.Record
	identities map[string]domain.Credentials
	outbox     [][]byte
	last       time.Time
	now        func() time.Time
}

var (
	_ ports.RecordStore   = (*MemoryStore)(nil)
	_ ports.IdentityStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:    make(map[domain.Kind]map[string]domain.Record),
		identities: make(map[string]domain.Credentials),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Create(_ context.Context, rec domain.Record) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.records[rec.Kind]
	if !ok {
		byID = make(map[string]domain.Record)
		m.records[rec.Kind] = byID
	}
	if _, exists := byID[rec.ID]; exists {
		return nil, errors.Wrapf(domain.ErrConflict, "%s/%s exists", rec.Kind, rec.ID)
	}

	stored := rec.Clone()
	if stored.Fields == nil {
		stored.Fields = map[string]string{}
	}
	stored.CreatedAt = m.tick()
	byID[rec.ID] = stored

	out := stored.Clone()
	return &out, nil
}

func (m *MemoryStore) Get(_ context.Context, kind domain.Kind, id string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (m *MemoryStore) Query(_ context.Context, q domain.Query) ([]domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []domain.Record{}
	for _, rec := range m.records[q.Kind] {
		if q.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	domain.SortRecords(out, q.Order)
	return out, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, upd domain.StatusUpdate, outboxPayload []byte) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[upd.Kind][upd.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if rec.Status != upd.Expected {
		return nil, domain.ErrConflict
	}

	rec = rec.Clone()
	at := upd.Change.At
	rec.Status = upd.Change.To
	rec.History = append(rec.History, upd.Change)
	rec.UpdatedAt = &at
	if upd.MarkSeen {
		seen := at
		rec.SeenAt = &seen
	}
	m.records[upd.Kind][upd.ID] = rec
	if outboxPayload != nil {
		m.outbox = append(m.outbox, append([]byte(nil), outboxPayload...))
	}

	out := rec.Clone()
	return &out, nil
}

func (m *MemoryStore) UpdateFields(_ context.Context, kind domain.Kind, id string, set map[string]string, unset []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[kind][id]
	if !ok {
		return domain.ErrNotFound
	}
	rec = rec.Clone()
	for k, v := range set {
		rec.Fields[k] = v
	}
	for _, k := range unset {
		delete(rec.Fields, k)
	}
	m.records[kind][id] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, kind domain.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[kind][id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records[kind], id)
	return nil
}

func (m *MemoryStore) CreateIdentity(_ context.Context, creds domain.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(creds.Email)
	if _, exists := m.identities[key]; exists {
		return errors.Wrapf(domain.ErrConflict, "identity %s", creds.Email)
	}
	m.identities[key] = creds
	return nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*domain.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, ok := m.identities[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &creds, nil
}

func (m *MemoryStore) DeleteIdentity(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, creds := range m.identities {
		if creds.UID == uid {
			delete(m.identities, key)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Outbox returns the transition events written so far, oldest first.
func (m *MemoryStore) Outbox() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([][]byte(nil), m.outbox...)
}

// tick must be called with mu held.
func (m *MemoryStore) tick() time.Time {
	t := m.now()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}
