package store

import (
	"context"
	"strings"
	"sync"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/google/uuid"
)

// Admins looks up dashboard operators.
type Admins interface {
	AdminByEmail(ctx context.Context, email string) (models.Admin, error)
	AdminByID(ctx context.Context, id string) (models.Admin, error)
}

// MemoryAdmins is the Admins directory used with MemoryStore.
type MemoryAdmins struct {
	mu     sync.RWMutex
	admins map[string]models.Admin
}

func NewMemoryAdmins(admins ...models.Admin) *MemoryAdmins {
	m := &MemoryAdmins{admins: make(map[string]models.Admin)}
	for _, a := range admins {
		_ = m.Add(a)
	}
	return m
}

// Add stores a, hashing its plain password if one is set.
func (m *MemoryAdmins) Add(a models.Admin) error {
	if err := a.HashPassword(); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = models.RoleAdmin
	}
	m.mu.Lock()
	m.admins[a.ID] = a
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdmins) AdminByEmail(_ context.Context, email string) (models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, strings.TrimSpace(email)) {
			return a, nil
		}
	}
	return models.Admin{}, &models.NotFoundError{Kind: "admins", ID: email}
}

func (m *MemoryAdmins) AdminByID(_ context.Context, id string) (models.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.admins[id]; ok {
		return a, nil
	}
	return models.Admin{}, &models.NotFoundError{Kind: "admins", ID: id}
}
