// Package mocks provides port implementations with call tracking and error
// injection for tests.
package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/adapters/repository"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// MockRecordStore is a MemoryStore whose calls can be counted and failed.
type MockRecordStore struct {
	*repository.MemoryStore

	mu sync.Mutex

	// Call tracking
	UpdateStatusCalls []domain.StatusUpdate
	UpdateFieldsCalls []string

	// Error injection
	CreateError       error
	GetError          error
	QueryError        error
	UpdateStatusError error
	UpdateFieldsError error
	DeleteError       error

	// BeforeUpdateStatus runs before every conditional write, letting tests
	// slip a concurrent writer in between read and write.
	BeforeUpdateStatus func(upd domain.StatusUpdate)
}

var _ ports.RecordStore = (*MockRecordStore)(nil)

func NewMockRecordStore() *MockRecordStore {
	return &MockRecordStore{MemoryStore: repository.NewMemoryStore()}
}

func (m *MockRecordStore) Create(ctx context.Context, rec domain.Record) (*domain.Record, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return m.MemoryStore.Create(ctx, rec)
}

func (m *MockRecordStore) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Record, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.MemoryStore.Get(ctx, kind, id)
}

func (m *MockRecordStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	return m.MemoryStore.Query(ctx, q)
}

func (m *MockRecordStore) UpdateStatus(ctx context.Context, upd domain.StatusUpdate, outboxPayload []byte) (*domain.Record, error) {
	m.mu.Lock()
	m.UpdateStatusCalls = append(m.UpdateStatusCalls, upd)
	hook := m.BeforeUpdateStatus
	m.mu.Unlock()

	if hook != nil {
		hook(upd)
	}
	if m.UpdateStatusError != nil {
		return nil, m.UpdateStatusError
	}
	return m.MemoryStore.UpdateStatus(ctx, upd, outboxPayload)
}

func (m *MockRecordStore) UpdateFields(ctx context.Context, kind domain.Kind, id string, set map[string]string, unset []string) error {
	m.mu.Lock()
	m.UpdateFieldsCalls = append(m.UpdateFieldsCalls, string(kind)+"/"+id)
	m.mu.Unlock()

	if m.UpdateFieldsError != nil {
		return m.UpdateFieldsError
	}
	return m.MemoryStore.UpdateFields(ctx, kind, id, set, unset)
}

func (m *MockRecordStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	return m.MemoryStore.Delete(ctx, kind, id)
}

// UpdateStatusCount returns how many conditional writes were attempted.
func (m *MockRecordStore) UpdateStatusCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.UpdateStatusCalls)
}
