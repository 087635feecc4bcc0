// Package audit records contact mutations. Emission is best-effort: the
// service logs a failed emit and carries on, so the audit trail never blocks
// a user-facing write.
package audit

import (
	"context"
	"time"
)

// Action identifies what happened to a contact.
type Action string

const (
	ActionContactCreated Action = "contact.created"
	ActionContactUpdated Action = "contact.updated"
	ActionContactDeleted Action = "contact.deleted"
)

// Event is one audit record. Phone numbers are deliberately excluded; the
// contact id is enough to join against the store.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	ContactID string    `json:"contact_id"`
	Pais      string    `json:"pais,omitempty"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
}

// Publisher emits audit events to some sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}
