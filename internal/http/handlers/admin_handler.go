package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/internal/http/response"
)

// Staff management

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.auth.RegisterUser(r.Context(), &req)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, user.ToUserInfo())
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.auth.ListUsers(r.Context(), limit, offset)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	infos := make([]*domain.UserInfo, len(users))
	for i := range users {
		infos[i] = users[i].ToUserInfo()
	}
	response.WriteJSON(w, http.StatusOK, infos)
}

func (h *Handlers) SetUserDisabled(disabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid user ID")
			return
		}

		if err := h.auth.SetUserDisabled(r.Context(), id, disabled); err != nil {
			response.WriteDomainError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]bool{"disabled": disabled})
	}
}

func (h *Handlers) UpdateUserSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req domain.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	if err := h.auth.UpdateUserSchedule(r.Context(), id, &req); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Schedule updated"})
}

// Person administration

func (h *Handlers) SetPersonBanned(banned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid person ID")
			return
		}

		if err := h.persons.SetBanned(r.Context(), id, banned); err != nil {
			response.WriteDomainError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]bool{"banned": banned})
	}
}

func (h *Handlers) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid person ID")
		return
	}

	if err := h.persons.Delete(r.Context(), id); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Person deleted"})
}

// Directory CRUD

type nameRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
}

func (h *Handlers) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	building, err := h.directory.CreateBuilding(r.Context(), req.Name)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, building)
}

func (h *Handlers) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.directory.ListBuildings(r.Context())
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, buildings)
}

func (h *Handlers) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteBuilding(r.Context(), chi.URLParam(r, "name")); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Building deleted"})
}

func (h *Handlers) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	dept, err := h.directory.CreateDepartment(r.Context(), req.Name, req.ContactEmail)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, dept)
}

func (h *Handlers) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.directory.ListDepartments(r.Context())
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, depts)
}

func (h *Handlers) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteDepartment(r.Context(), chi.URLParam(r, "name")); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Department deleted"})
}

func (h *Handlers) CreateUniversity(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	uni, err := h.directory.CreateUniversity(r.Context(), req.Name)
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, uni)
}

func (h *Handlers) ListUniversities(w http.ResponseWriter, r *http.Request) {
	unis, err := h.directory.ListUniversities(r.Context())
	if err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, unis)
}

func (h *Handlers) DeleteUniversity(w http.ResponseWriter, r *http.Request) {
	if err := h.directory.DeleteUniversity(r.Context(), chi.URLParam(r, "name")); err != nil {
		response.WriteDomainError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "University deleted"})
}
