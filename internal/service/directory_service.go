package service

import (
	"context"
	"strings"

	"github.com/veletic/gatehouse/internal/domain"
	"github.com/veletic/gatehouse/internal/repository"
)

// DirectoryService is admin CRUD over the reference tables. Thin by design;
// the repository enforces referential integrity (deleting a building that
// events point at is a conflict).
type DirectoryService interface {
	CreateBuilding(ctx context.Context, name string) (*domain.Building, error)
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	DeleteBuilding(ctx context.Context, name string) error

	CreateDepartment(ctx context.Context, name, contactEmail string) (*domain.Department, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	DeleteDepartment(ctx context.Context, name string) error

	CreateUniversity(ctx context.Context, name string) (*domain.University, error)
	ListUniversities(ctx context.Context) ([]domain.University, error)
	DeleteUniversity(ctx context.Context, name string) error
}

type directoryService struct {
	repo repository.DirectoryRepository
}

func NewDirectoryService(repo repository.DirectoryRepository) DirectoryService {
	return &directoryService{repo: repo}
}

func (s *directoryService) CreateBuilding(ctx context.Context, name string) (*domain.Building, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("building name is required")
	}
	return s.repo.CreateBuilding(ctx, name)
}

func (s *directoryService) ListBuildings(ctx context.Context) ([]domain.Building, error) {
	return s.repo.ListBuildings(ctx)
}

func (s *directoryService) DeleteBuilding(ctx context.Context, name string) error {
	return s.repo.DeleteBuilding(ctx, name)
}

func (s *directoryService) CreateDepartment(ctx context.Context, name, contactEmail string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("department name is required")
	}
	return s.repo.CreateDepartment(ctx, name, strings.TrimSpace(contactEmail))
}

func (s *directoryService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *directoryService) DeleteDepartment(ctx context.Context, name string) error {
	return s.repo.DeleteDepartment(ctx, name)
}

func (s *directoryService) CreateUniversity(ctx context.Context, name string) (*domain.University, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validationf("university name is required")
	}
	return s.repo.CreateUniversity(ctx, name)
}

func (s *directoryService) ListUniversities(ctx context.Context) ([]domain.University, error) {
	return s.repo.ListUniversities(ctx)
}

func (s *directoryService) DeleteUniversity(ctx context.Context, name string) error {
	return s.repo.DeleteUniversity(ctx, name)
}
