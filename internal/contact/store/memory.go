package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"agenda/internal/contact/models"
	"agenda/pkg/platform/sentinel"
)

// InMemory keeps contacts in maps guarded by a mutex. It favors clarity over
// performance and backs unit tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	contacts map[string]models.Contact
	byPhone  map[string]string // telefono -> id
}

func NewInMemory() *InMemory {
	return &InMemory{
		contacts: make(map[string]models.Contact),
		byPhone:  make(map[string]string),
	}
}

func (s *InMemory) FindByID(_ context.Context, id string) (models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.contacts[id]; ok {
		return c, nil
	}
	return models.Contact{}, sentinel.ErrNotFound
}

func (s *InMemory) FindAll(_ context.Context) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (s *InMemory) Insert(_ context.Context, c models.Contact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byPhone[c.Telefono]; taken {
		return "", sentinel.ErrAlreadyUsed
	}
	c.ID = uuid.NewString()
	s.contacts[c.ID] = c
	s.byPhone[c.Telefono] = c.ID
	return c.ID, nil
}

func (s *InMemory) DeleteByID(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return 0, nil
	}
	delete(s.contacts, id)
	delete(s.byPhone, c.Telefono)
	return 1, nil
}

func (s *InMemory) FindAndUpdate(_ context.Context, id string, upd models.Update) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return models.Contact{}, sentinel.ErrNotFound
	}
	if upd.Phone != nil {
		if owner, taken := s.byPhone[upd.Phone.Telefono]; taken && owner != id {
			return models.Contact{}, sentinel.ErrAlreadyUsed
		}
	}
	oldPhone := c.Telefono
	upd.Apply(&c)
	s.contacts[id] = c
	if c.Telefono != oldPhone {
		delete(s.byPhone, oldPhone)
		s.byPhone[c.Telefono] = id
	}
	return c, nil
}
