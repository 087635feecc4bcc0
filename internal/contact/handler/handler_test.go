package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"agenda/internal/contact/handler"
	"agenda/internal/contact/service"
	"agenda/internal/contact/store"
	"agenda/internal/enrich"
)

// stubEnricher is a canned pipeline: FromPhone succeeds with a fixed
// enrichment unless err is set, LocalTime answers from localTime/localOK.
type stubEnricher struct {
	enrichment enrich.Enrichment
	err        error
	localTime  string
	localOK    bool
}

func (s *stubEnricher) FromPhone(context.Context, string) (enrich.Enrichment, error) {
	if s.err != nil {
		return enrich.Enrichment{}, s.err
	}
	return s.enrichment, nil
}

func (s *stubEnricher) LocalTime(context.Context, string) (string, bool) {
	return s.localTime, s.localOK
}

type HandlerSuite struct {
	suite.Suite
	enricher *stubEnricher
	router   chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.enricher = &stubEnricher{
		enrichment: enrich.Enrichment{Pais: "Spain", ISO2: "ES", Capital: "Madrid", HoraCapital: "14:30"},
		localTime:  "16:45",
		localOK:    true,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), s.enricher, logger)

	s.router = chi.NewRouter()
	handler.New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, into any) {
	s.Require().Equal("application/json", rec.Header().Get("Content-Type"))
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), into))
}

func (s *HandlerSuite) addContact(nombre, telefono string) string {
	rec := s.do(http.MethodPost, "/contacts", `{"nombre":"`+nombre+`","telefono":"`+telefono+`"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	id, _ := body["id"].(string)
	s.Require().NotEmpty(id)
	return id
}

func (s *HandlerSuite) TestAdd() {
	rec := s.do(http.MethodPost, "/contacts", `{"nombre":"Ana","telefono":"+34600111222"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	s.Equal("Ana", body["nombre"])
	s.Equal("+34600111222", body["telefono"])
	s.Equal("Spain", body["pais"])
	s.Equal("Madrid", body["capital"])
	s.Equal("14:30", body["hora_capital"])
	s.NotContains(rec.Body.String(), "iso2")
}

func (s *HandlerSuite) TestAddInvalidPhone() {
	s.enricher.err = enrich.ErrInvalidPhone

	rec := s.do(http.MethodPost, "/contacts", `{"nombre":"Ana","telefono":"abc"}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("bad_request", body["error"])
	s.Equal("El teléfono no es válido", body["message"])
}

func (s *HandlerSuite) TestAddLookupFailure() {
	s.enricher.err = &enrich.LookupError{Service: "country", Status: http.StatusBadGateway}

	rec := s.do(http.MethodPost, "/contacts", `{"nombre":"Ana","telefono":"+34600111222"}`)
	s.Require().Equal(http.StatusInternalServerError, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("internal", body["error"])
	// The upstream failure detail must not leak to the caller.
	s.NotContains(body["message"], "country")
}

func (s *HandlerSuite) TestAddDuplicatePhone() {
	s.addContact("Ana", "+34600111222")

	rec := s.do(http.MethodPost, "/contacts", `{"nombre":"Otra","telefono":"+34600111222"}`)
	s.Require().Equal(http.StatusConflict, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("conflict", body["error"])
	s.Equal("Ese teléfono ya está registrado", body["message"])
}

func (s *HandlerSuite) TestAddMalformedBody() {
	rec := s.do(http.MethodPost, "/contacts", `{"nombre":`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGet() {
	id := s.addContact("Ana", "+34600111222")

	rec := s.do(http.MethodGet, "/contacts/"+id, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	s.Equal("Ana", body["nombre"])
	// hora_capital comes from the live lookup, not from what was stored.
	s.Equal("16:45", body["hora_capital"])
	s.NotContains(rec.Body.String(), "iso2")
}

func (s *HandlerSuite) TestGetTimeUnavailable() {
	id := s.addContact("Ana", "+34600111222")
	s.enricher.localOK = false

	rec := s.do(http.MethodGet, "/contacts/"+id, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	hora, present := body["hora_capital"]
	s.True(present)
	s.Nil(hora, "unresolvable time serializes as null")
}

func (s *HandlerSuite) TestGetNotFound() {
	rec := s.do(http.MethodGet, "/contacts/nope", "")
	s.Require().Equal(http.StatusNotFound, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("not_found", body["error"])
	s.Equal("El contacto no existe", body["message"])
}

func (s *HandlerSuite) TestList() {
	rec := s.do(http.MethodGet, "/contacts", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq("[]", rec.Body.String())

	s.addContact("Ana", "+34600111222")
	s.addContact("Luis", "+34600333444")

	rec = s.do(http.MethodGet, "/contacts", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body []map[string]any
	s.decode(rec, &body)
	s.Len(body, 2)
	s.NotContains(rec.Body.String(), "iso2")
}

func (s *HandlerSuite) TestUpdateName() {
	id := s.addContact("Ana", "+34600111222")

	rec := s.do(http.MethodPatch, "/contacts/"+id, `{"nombre":"Ana María"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.decode(rec, &body)
	s.Equal("Ana María", body["nombre"])
	s.Equal("+34600111222", body["telefono"])
}

func (s *HandlerSuite) TestUpdateEmptyBody() {
	id := s.addContact("Ana", "+34600111222")

	rec := s.do(http.MethodPatch, "/contacts/"+id, `{}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("No se proporcionó ningún dato para actualizar", body["message"])
}

func (s *HandlerSuite) TestUpdateNotFound() {
	rec := s.do(http.MethodPatch, "/contacts/nope", `{"nombre":"X"}`)
	s.Require().Equal(http.StatusNotFound, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("Contacto no encontrado", body["message"])
}

func (s *HandlerSuite) TestUpdateInvalidNewPhone() {
	id := s.addContact("Ana", "+34600111222")
	s.enricher.err = enrich.ErrInvalidPhone

	rec := s.do(http.MethodPatch, "/contacts/"+id, `{"telefono":"abc"}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("El nuevo teléfono no es válido", body["message"])
}

func (s *HandlerSuite) TestDelete() {
	id := s.addContact("Ana", "+34600111222")

	rec := s.do(http.MethodDelete, "/contacts/"+id, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"deleted":true}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/contacts/"+id, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"deleted":false}`, rec.Body.String())
}
