package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"agenda/internal/audit"
	"agenda/internal/contact/models"
	"agenda/internal/enrich"
	dErrors "agenda/pkg/domain-errors"
	"agenda/pkg/platform/sentinel"
	"agenda/pkg/requestcontext"
)

// User-facing messages mandated by the API contract.
const (
	msgInvalidPhone    = "El teléfono no es válido"
	msgInvalidNewPhone = "El nuevo teléfono no es válido"
	msgDuplicatePhone  = "Ese teléfono ya está registrado"
	msgNothingToUpdate = "No se proporcionó ningún dato para actualizar"
	msgUpdateNotFound  = "Contacto no encontrado"
	msgGetNotFound     = "El contacto no existe"
)

// Get returns one contact with hora_capital freshly recomputed.
func (s *Service) Get(ctx context.Context, id string) (models.Contact, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Contact{}, dErrors.New(dErrors.CodeNotFound, msgGetNotFound)
		}
		return models.Contact{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contact")
	}
	s.resolveHoraCapital(ctx, &c)
	return c, nil
}

// List returns all contacts in store order. Each contact's hora_capital is
// recomputed independently and concurrently; one contact's lookup failure
// never affects the others.
func (s *Service) List(ctx context.Context) ([]models.Contact, error) {
	start := time.Now()
	contacts, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list contacts")
	}

	var g errgroup.Group
	g.SetLimit(s.listConcurrency)
	for i := range contacts {
		g.Go(func() error {
			s.resolveHoraCapital(ctx, &contacts[i])
			return nil
		})
	}
	// resolveHoraCapital never fails; Wait only joins the group.
	_ = g.Wait()

	s.metrics.ObserveList(start)
	return contacts, nil
}

// Add creates a contact from a name and phone number. The full enrichment
// pipeline must succeed before anything is persisted.
func (s *Service) Add(ctx context.Context, nombre, telefono string) (models.Contact, error) {
	start := time.Now()
	nombre = strings.TrimSpace(nombre)
	telefono = strings.TrimSpace(telefono)
	if nombre == "" || telefono == "" {
		return models.Contact{}, dErrors.New(dErrors.CodeBadRequest, "nombre y teléfono son obligatorios")
	}

	enrichment, err := s.enricher.FromPhone(ctx, telefono)
	if err != nil {
		return models.Contact{}, s.translatePipelineErr(err, msgInvalidPhone)
	}

	c := models.Contact{
		Nombre:      nombre,
		Telefono:    telefono,
		Pais:        enrichment.Pais,
		ISO2:        enrichment.ISO2,
		Capital:     enrichment.Capital,
		HoraCapital: enrichment.HoraCapital,
	}
	id, err := s.store.Insert(ctx, c)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return models.Contact{}, dErrors.New(dErrors.CodeConflict, msgDuplicatePhone)
		}
		return models.Contact{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store contact")
	}
	c.ID = id

	s.metrics.IncrementCreated()
	s.metrics.ObserveAdd(start)
	s.emit(ctx, audit.ActionContactCreated, c.ID, c.Pais)
	return c, nil
}

// Update applies a partial mutation. A phone change reruns the full pipeline
// and replaces all four derived fields together; a name-only change leaves
// them untouched.
func (s *Service) Update(ctx context.Context, id string, nombre, telefono *string) (models.Contact, error) {
	var upd models.Update
	if nombre != nil && strings.TrimSpace(*nombre) != "" {
		trimmed := strings.TrimSpace(*nombre)
		upd.Nombre = &trimmed
	}
	if telefono != nil && strings.TrimSpace(*telefono) != "" {
		nuevo := strings.TrimSpace(*telefono)
		enrichment, err := s.enricher.FromPhone(ctx, nuevo)
		if err != nil {
			return models.Contact{}, s.translatePipelineErr(err, msgInvalidNewPhone)
		}
		upd.Phone = &models.PhoneChange{
			Telefono:    nuevo,
			Pais:        enrichment.Pais,
			ISO2:        enrichment.ISO2,
			Capital:     enrichment.Capital,
			HoraCapital: enrichment.HoraCapital,
		}
	}
	if upd.IsEmpty() {
		return models.Contact{}, dErrors.New(dErrors.CodeBadRequest, msgNothingToUpdate)
	}

	c, err := s.store.FindAndUpdate(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.Contact{}, dErrors.New(dErrors.CodeNotFound, msgUpdateNotFound)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return models.Contact{}, dErrors.New(dErrors.CodeConflict, msgDuplicatePhone)
		default:
			return models.Contact{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update contact")
		}
	}

	s.metrics.IncrementUpdated()
	s.emit(ctx, audit.ActionContactUpdated, c.ID, c.Pais)
	s.resolveHoraCapital(ctx, &c)
	return c, nil
}

// Delete removes a contact by id. Reports whether a record was removed; a
// missing id is false, not an error.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete contact")
	}
	if removed != 1 {
		return false, nil
	}
	s.metrics.IncrementDeleted()
	s.emit(ctx, audit.ActionContactDeleted, id, "")
	return true, nil
}

// resolveHoraCapital replaces the stored hora_capital with a live value, or
// clears it when the capital is absent or currently unresolvable. The stored
// value is a cache hint only and is never shown to a reader.
func (s *Service) resolveHoraCapital(ctx context.Context, c *models.Contact) {
	if c.Capital == "" {
		c.HoraCapital = ""
		return
	}
	hora, ok := s.enricher.LocalTime(ctx, c.Capital)
	if !ok {
		c.HoraCapital = ""
		return
	}
	c.HoraCapital = hora
}

// translatePipelineErr maps pipeline failures to user-facing coded errors.
// invalidMsg distinguishes the add and update phrasing for a rejected number.
func (s *Service) translatePipelineErr(err error, invalidMsg string) error {
	if errors.Is(err, enrich.ErrInvalidPhone) {
		return dErrors.New(dErrors.CodeBadRequest, invalidMsg)
	}
	// Lookup and not-found failures alike abort the write; nothing partial
	// is persisted.
	return dErrors.Wrap(err, dErrors.CodeInternal, "no se pudo completar el enriquecimiento")
}

func (s *Service) emit(ctx context.Context, action audit.Action, contactID, pais string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		ID:        uuid.NewString(),
		Action:    action,
		ContactID: contactID,
		Pais:      pais,
		At:        requestcontext.Now(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(action),
			"contact_id", contactID,
			"error", err,
		)
	}
}
