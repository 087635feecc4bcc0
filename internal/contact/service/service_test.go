package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agenda/internal/audit"
	"agenda/internal/contact/models"
	"agenda/internal/contact/service/mocks"
	"agenda/internal/enrich"
	dErrors "agenda/pkg/domain-errors"
	"agenda/pkg/platform/sentinel"
)

var horaFormat = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type ContactServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockContactStore
	enricher *mocks.MockEnricher
	audit    *audit.InMemoryPublisher
	service  *Service
	ctx      context.Context
}

func TestContactServiceSuite(t *testing.T) {
	suite.Run(t, new(ContactServiceSuite))
}

func (s *ContactServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockContactStore(s.ctrl)
	s.enricher = mocks.NewMockEnricher(s.ctrl)
	s.audit = audit.NewInMemoryPublisher()
	s.service = New(s.store, s.enricher, nil, WithAuditPublisher(s.audit))
	s.ctx = context.Background()
}

func (s *ContactServiceSuite) spainEnrichment() enrich.Enrichment {
	return enrich.Enrichment{Pais: "Spain", ISO2: "ES", Capital: "Madrid", HoraCapital: "14:30"}
}

// ---------------------------------------------------------------------------
// Add
// ---------------------------------------------------------------------------

func (s *ContactServiceSuite) TestAddPersistsFullEnrichment() {
	s.enricher.EXPECT().FromPhone(gomock.Any(), "+34600111222").Return(s.spainEnrichment(), nil)
	s.store.EXPECT().Insert(gomock.Any(), models.Contact{
		Nombre:      "Ana",
		Telefono:    "+34600111222",
		Pais:        "Spain",
		ISO2:        "ES",
		Capital:     "Madrid",
		HoraCapital: "14:30",
	}).Return("id-1", nil)

	c, err := s.service.Add(s.ctx, "Ana", "+34600111222")
	s.Require().NoError(err)
	s.Equal("id-1", c.ID)
	s.Equal("Spain", c.Pais)
	s.Equal("Madrid", c.Capital)
	s.Regexp(horaFormat, c.HoraCapital)

	events := s.audit.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionContactCreated, events[0].Action)
	s.Equal("id-1", events[0].ContactID)
}

func (s *ContactServiceSuite) TestAddInvalidPhone() {
	s.enricher.EXPECT().FromPhone(gomock.Any(), "banana").Return(enrich.Enrichment{}, enrich.ErrInvalidPhone)
	// No Insert expectation: nothing may be persisted.

	_, err := s.service.Add(s.ctx, "Ana", "banana")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	s.Equal("El teléfono no es válido", dErrors.MessageFor(err))
	s.Empty(s.audit.Events())
}

func (s *ContactServiceSuite) TestAddDuplicatePhone() {
	s.enricher.EXPECT().FromPhone(gomock.Any(), "+34600111222").Return(s.spainEnrichment(), nil)
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return("", sentinel.ErrAlreadyUsed)

	_, err := s.service.Add(s.ctx, "Ana", "+34600111222")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
	s.Equal("Ese teléfono ya está registrado", dErrors.MessageFor(err))
}

func (s *ContactServiceSuite) TestAddLookupOutageAbortsWrite() {
	lerr := &enrich.LookupError{Service: "worldtime", Status: 502}
	s.enricher.EXPECT().FromPhone(gomock.Any(), "+34600111222").Return(enrich.Enrichment{}, lerr)

	_, err := s.service.Add(s.ctx, "Ana", "+34600111222")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInternal))
	s.Require().ErrorAs(err, new(*enrich.LookupError))
}

func (s *ContactServiceSuite) TestAddRequiresNameAndPhone() {
	_, err := s.service.Add(s.ctx, "", "+34600111222")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = s.service.Add(s.ctx, "Ana", "  ")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

// ---------------------------------------------------------------------------
// Get / List
// ---------------------------------------------------------------------------

func (s *ContactServiceSuite) TestGetRecomputesHoraCapital() {
	stored := models.Contact{ID: "id-1", Nombre: "Ana", Telefono: "+34600111222",
		Pais: "Spain", ISO2: "ES", Capital: "Madrid", HoraCapital: "03:00"}
	s.store.EXPECT().FindByID(gomock.Any(), "id-1").Return(stored, nil)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Madrid").Return("18:45", true)

	c, err := s.service.Get(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Equal("18:45", c.HoraCapital, "stored value is a cache hint, never presented")
}

func (s *ContactServiceSuite) TestGetFallsBackToAbsentNotStale() {
	stored := models.Contact{ID: "id-1", Capital: "Madrid", HoraCapital: "03:00"}
	s.store.EXPECT().FindByID(gomock.Any(), "id-1").Return(stored, nil)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Madrid").Return("", false)

	c, err := s.service.Get(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Empty(c.HoraCapital)
}

func (s *ContactServiceSuite) TestGetAbsentCapitalSkipsLookup() {
	stored := models.Contact{ID: "id-1", Capital: ""}
	s.store.EXPECT().FindByID(gomock.Any(), "id-1").Return(stored, nil)
	// No LocalTime expectation: absent capital means no external call.

	c, err := s.service.Get(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Empty(c.HoraCapital)
}

func (s *ContactServiceSuite) TestGetNotFound() {
	s.store.EXPECT().FindByID(gomock.Any(), "missing").Return(models.Contact{}, sentinel.ErrNotFound)

	_, err := s.service.Get(s.ctx, "missing")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.Equal("El contacto no existe", dErrors.MessageFor(err))
}

func (s *ContactServiceSuite) TestListDegradesPerContact() {
	stored := []models.Contact{
		{ID: "id-1", Capital: "Madrid"},
		{ID: "id-2", Capital: "Xanadu"},
		{ID: "id-3", Capital: "Paris"},
	}
	s.store.EXPECT().FindAll(gomock.Any()).Return(stored, nil)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Madrid").Return("18:45", true)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Xanadu").Return("", false)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Paris").Return("19:45", true)

	contacts, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(contacts, 3)

	byID := make(map[string]models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	s.Equal("18:45", byID["id-1"].HoraCapital)
	s.Empty(byID["id-2"].HoraCapital, "one unresolvable capital must not fail the query")
	s.Equal("19:45", byID["id-3"].HoraCapital)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func (s *ContactServiceSuite) TestUpdateNameOnlyLeavesDerivedFieldsUntouched() {
	nombre := "Ana"
	updated := models.Contact{ID: "id-1", Nombre: "Ana", Telefono: "+34600111222",
		Pais: "Spain", ISO2: "ES", Capital: "Madrid", HoraCapital: "14:30"}
	s.store.EXPECT().
		FindAndUpdate(gomock.Any(), "id-1", gomock.Cond(func(upd models.Update) bool {
			return upd.Nombre != nil && *upd.Nombre == "Ana" && upd.Phone == nil
		})).
		Return(updated, nil)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Madrid").Return("14:31", true)

	c, err := s.service.Update(s.ctx, "id-1", &nombre, nil)
	s.Require().NoError(err)
	s.Equal("Ana", c.Nombre)
	s.Equal("Spain", c.Pais)
}

func (s *ContactServiceSuite) TestUpdatePhoneReplacesAllDerivedFieldsTogether() {
	telefono := "+33600111222"
	french := enrich.Enrichment{Pais: "France", ISO2: "FR", Capital: "Paris", HoraCapital: "15:30"}
	s.enricher.EXPECT().FromPhone(gomock.Any(), "+33600111222").Return(french, nil)
	s.store.EXPECT().
		FindAndUpdate(gomock.Any(), "id-1", gomock.Cond(func(upd models.Update) bool {
			p := upd.Phone
			return p != nil && p.Telefono == "+33600111222" &&
				p.Pais == "France" && p.ISO2 == "FR" &&
				p.Capital == "Paris" && p.HoraCapital == "15:30"
		})).
		Return(models.Contact{ID: "id-1", Telefono: "+33600111222", Pais: "France",
			ISO2: "FR", Capital: "Paris", HoraCapital: "15:30"}, nil)
	s.enricher.EXPECT().LocalTime(gomock.Any(), "Paris").Return("15:31", true)

	c, err := s.service.Update(s.ctx, "id-1", nil, &telefono)
	s.Require().NoError(err)
	s.Equal("France", c.Pais)
	s.Equal("Paris", c.Capital)

	events := s.audit.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionContactUpdated, events[0].Action)
}

func (s *ContactServiceSuite) TestUpdateInvalidNewPhone() {
	telefono := "banana"
	s.enricher.EXPECT().FromPhone(gomock.Any(), "banana").Return(enrich.Enrichment{}, enrich.ErrInvalidPhone)

	_, err := s.service.Update(s.ctx, "id-1", nil, &telefono)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	s.Equal("El nuevo teléfono no es válido", dErrors.MessageFor(err))
}

func (s *ContactServiceSuite) TestUpdateNothingToUpdate() {
	// No store expectation: storage must not be touched.
	_, err := s.service.Update(s.ctx, "id-1", nil, nil)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	s.Equal("No se proporcionó ningún dato para actualizar", dErrors.MessageFor(err))
}

func (s *ContactServiceSuite) TestUpdateNotFound() {
	nombre := "Ana"
	s.store.EXPECT().FindAndUpdate(gomock.Any(), "missing", gomock.Any()).
		Return(models.Contact{}, sentinel.ErrNotFound)

	_, err := s.service.Update(s.ctx, "missing", &nombre, nil)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.Equal("Contacto no encontrado", dErrors.MessageFor(err))
}

func (s *ContactServiceSuite) TestUpdateDuplicatePhone() {
	telefono := "+34600111222"
	s.enricher.EXPECT().FromPhone(gomock.Any(), "+34600111222").Return(s.spainEnrichment(), nil)
	s.store.EXPECT().FindAndUpdate(gomock.Any(), "id-1", gomock.Any()).
		Return(models.Contact{}, sentinel.ErrAlreadyUsed)

	_, err := s.service.Update(s.ctx, "id-1", nil, &telefono)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func (s *ContactServiceSuite) TestDeleteExisting() {
	s.store.EXPECT().DeleteByID(gomock.Any(), "id-1").Return(1, nil)

	deleted, err := s.service.Delete(s.ctx, "id-1")
	s.Require().NoError(err)
	s.True(deleted)

	events := s.audit.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionContactDeleted, events[0].Action)
}

func (s *ContactServiceSuite) TestDeleteMissingIsFalseNotError() {
	s.store.EXPECT().DeleteByID(gomock.Any(), "missing").Return(0, nil)

	deleted, err := s.service.Delete(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(deleted)
	s.Empty(s.audit.Events())
}
