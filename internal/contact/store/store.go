// Package store persists contacts. Implementations enforce the single
// consistency guarantee the service relies on: telefono is globally unique,
// and a write that would violate that fails without mutating any record.
package store

import (
	"context"

	"agenda/internal/contact/models"
)

// Store is the storage collaborator for the contact service.
//
// Implementations return sentinel.ErrNotFound when an id does not match and
// sentinel.ErrAlreadyUsed when a write would duplicate a phone number.
// FindAndUpdate is atomic: no reader ever observes a half-applied update.
type Store interface {
	FindByID(ctx context.Context, id string) (models.Contact, error)
	FindAll(ctx context.Context) ([]models.Contact, error)
	// Insert persists a contact without an ID and returns the assigned one.
	Insert(ctx context.Context, c models.Contact) (string, error)
	// DeleteByID removes a contact, returning how many records were removed
	// (0 or 1). A missing id is not an error.
	DeleteByID(ctx context.Context, id string) (int, error)
	FindAndUpdate(ctx context.Context, id string, upd models.Update) (models.Contact, error)
}
