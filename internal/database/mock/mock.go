// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-detection/internal/database"
)

// MockIdentityStore is an in-memory implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[string]*database.StoredIdentity
	nextID     int64

	// Error injection
	GetError            error
	ExistsError         error
	ListError           error
	CountError          error
	CreateError         error
	UpdateEncodingError error
	DeleteError         error
}

// NewMockIdentityStore creates a new empty mock store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[string]*database.StoredIdentity),
		nextID:     1,
	}
}

// AddIdentity adds an identity directly, bypassing duplicate checks
func (m *MockIdentityStore) AddIdentity(identity database.StoredIdentity) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.ID == 0 {
		identity.ID = m.nextID
	}
	if identity.ID >= m.nextID {
		m.nextID = identity.ID + 1
	}
	m.identities[identity.Name] = &identity
	return identity.ID
}

// Get retrieves an identity by name
func (m *MockIdentityStore) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[name]
	if !ok {
		return nil, nil
	}
	cp := *identity
	return &cp, nil
}

// Exists checks if an identity exists
func (m *MockIdentityStore) Exists(ctx context.Context, name string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.identities[name]
	return ok, nil
}

// List returns all identities ordered by ID
func (m *MockIdentityStore) List(ctx context.Context) ([]database.StoredIdentity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredIdentity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Count returns the number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// Create inserts a new identity
func (m *MockIdentityStore) Create(ctx context.Context, identity *database.StoredIdentity) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.Name]; ok {
		return 0, database.ErrDuplicateName
	}
	cp := *identity
	cp.ID = m.nextID
	m.nextID++
	now := time.Now()
	cp.CreatedAt, cp.UpdatedAt = now, now
	m.identities[cp.Name] = &cp
	return cp.ID, nil
}

// UpdateEncoding replaces the encoding of an identity
func (m *MockIdentityStore) UpdateEncoding(ctx context.Context, name, variant string, encoding json.RawMessage) error {
	if m.UpdateEncodingError != nil {
		return m.UpdateEncodingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[name]
	if !ok {
		return database.ErrNotFound
	}
	identity.Variant = variant
	identity.Encoding = append(json.RawMessage(nil), encoding...)
	identity.UpdatedAt = time.Now()
	return nil
}

// Delete removes an identity
func (m *MockIdentityStore) Delete(ctx context.Context, name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[name]; !ok {
		return database.ErrNotFound
	}
	delete(m.identities, name)
	return nil
}

// Ensure interface compliance
var _ database.IdentityWriter = (*MockIdentityStore)(nil)
