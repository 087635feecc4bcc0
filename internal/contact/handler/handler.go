package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agenda/internal/contact/models"
	dErrors "agenda/pkg/domain-errors"
	"agenda/pkg/requestcontext"
)

// Service defines the contact operations the HTTP layer needs.
type Service interface {
	Get(ctx context.Context, id string) (models.Contact, error)
	List(ctx context.Context) ([]models.Contact, error)
	Add(ctx context.Context, nombre, telefono string) (models.Contact, error)
	Update(ctx context.Context, id string, nombre, telefono *string) (models.Contact, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Handler exposes the contact directory as a JSON API.
type Handler struct {
	contacts Service
	logger   *slog.Logger
}

func New(contacts Service, logger *slog.Logger) *Handler {
	return &Handler{contacts: contacts, logger: logger}
}

// Register mounts the contact routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/contacts", h.handleList)
	r.Post("/contacts", h.handleAdd)
	r.Get("/contacts/{id}", h.handleGet)
	r.Patch("/contacts/{id}", h.handleUpdate)
	r.Delete("/contacts/{id}", h.handleDelete)
}

// contactResponse is the public contact shape. iso2 is stored but internal;
// capital and hora_capital are null when absent.
type contactResponse struct {
	ID          string  `json:"id"`
	Nombre      string  `json:"nombre"`
	Telefono    string  `json:"telefono"`
	Pais        string  `json:"pais"`
	Capital     *string `json:"capital"`
	HoraCapital *string `json:"hora_capital"`
}

type addContactRequest struct {
	Nombre   string `json:"nombre"`
	Telefono string `json:"telefono"`
}

type updateContactRequest struct {
	Nombre   *string `json:"nombre"`
	Telefono *string `json:"telefono"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toResponse(c))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.contacts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, err := h.contacts.Add(r.Context(), req.Nombre, req.Telefono)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, err := h.contacts.Update(r.Context(), chi.URLParam(r, "id"), req.Nombre, req.Telefono)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.contacts.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func toResponse(c models.Contact) contactResponse {
	resp := contactResponse{
		ID:       c.ID,
		Nombre:   c.Nombre,
		Telefono: c.Telefono,
		Pais:     c.Pais,
	}
	if c.Capital != "" {
		resp.Capital = &c.Capital
	}
	if c.HoraCapital != "" {
		resp.HoraCapital = &c.HoraCapital
	}
	return resp
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeFor(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   string(code),
		"message": dErrors.MessageFor(err),
	})
}
