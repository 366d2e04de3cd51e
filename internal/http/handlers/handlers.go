package handlers

import (
	"net/http"
	"strconv"

	"github.com/veletic/gatehouse/internal/service"
)

type Handlers struct {
	auth      service.AuthService
	persons   service.PersonService
	directory service.DirectoryService
}

func New(auth service.AuthService, persons service.PersonService, directory service.DirectoryService) *Handlers {
	return &Handlers{
		auth:      auth,
		persons:   persons,
		directory: directory,
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 && i <= 200 {
			limit = i
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			offset = i
		}
	}
	return limit, offset
}
