package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/veletic/gatehouse/internal/domain"
	mw "github.com/veletic/gatehouse/internal/http/middleware"
	"github.com/veletic/gatehouse/internal/http/response"
)

// ListPersons returns persons with derived presence, fuzzy-ranked when a
// query is present.
func (h *Handlers) ListPersons(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	query := r.URL.Query().Get("q")

	persons, err := h.persons.Search(r.Context(), query, limit, offset)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, persons)
}

// CreatePerson registers a person at the operator's building; they start
// inside.
func (h *Handlers) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	session := mw.SessionFrom(r)
	user := mw.UserFrom(r)
	req.Building = session.Building

	status, err := h.persons.Create(r.Context(), &req, user.Username)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, status)
}

func (h *Handlers) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid person ID")
		return
	}

	person, err := h.persons.Get(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, person)
}

// TogglePerson flips a person's presence at the operator's building.
func (h *Handlers) TogglePerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid person ID")
		return
	}

	session := mw.SessionFrom(r)
	user := mw.UserFrom(r)

	state, event, err := h.persons.Toggle(r.Context(), id, session.Building, user.Username)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state": state,
		"event": event,
	})
}

// Occupancy reports per-building, per-type counts of currently-inside
// persons.
func (h *Handlers) Occupancy(w http.ResponseWriter, r *http.Request) {
	occupancy, err := h.persons.Occupancy(r.Context())
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, occupancy)
}
