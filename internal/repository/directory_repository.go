package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veletic/gatehouse/internal/domain"
)

// DirectoryRepository covers the reference tables persons and events point
// at: buildings, departments and universities.
type DirectoryRepository interface {
	CreateBuilding(ctx context.Context, name string) (*domain.Building, error)
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	DeleteBuilding(ctx context.Context, name string) error

	CreateDepartment(ctx context.Context, name, contactEmail string) (*domain.Department, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	FindDepartment(ctx context.Context, name string) (*domain.Department, error)
	DeleteDepartment(ctx context.Context, name string) error

	CreateUniversity(ctx context.Context, name string) (*domain.University, error)
	ListUniversities(ctx context.Context) ([]domain.University, error)
	DeleteUniversity(ctx context.Context, name string) error
}

type directoryRepository struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepository(pool *pgxpool.Pool) DirectoryRepository {
	return &directoryRepository{pool: pool}
}

func (r *directoryRepository) CreateBuilding(ctx context.Context, name string) (*domain.Building, error) {
	const q = `INSERT INTO buildings (name) VALUES ($1) RETURNING name, created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var b domain.Building
	if err := r.pool.QueryRow(ctx, q, name).Scan(&b.Name, &b.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func (r *directoryRepository) ListBuildings(ctx context.Context) ([]domain.Building, error) {
	const q = `SELECT name, created_at FROM buildings ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Building
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(&b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *directoryRepository) DeleteBuilding(ctx context.Context, name string) error {
	const q = `DELETE FROM buildings WHERE name = $1`
	return r.deleteByName(ctx, q, name)
}

func (r *directoryRepository) CreateDepartment(ctx context.Context, name, contactEmail string) (*domain.Department, error) {
	const q = `INSERT INTO departments (name, contact_email) VALUES ($1, $2) RETURNING name, contact_email, created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var d domain.Department
	if err := r.pool.QueryRow(ctx, q, name, contactEmail).Scan(&d.Name, &d.ContactEmail, &d.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

func (r *directoryRepository) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	const q = `SELECT name, contact_email, created_at FROM departments ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.Name, &d.ContactEmail, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *directoryRepository) FindDepartment(ctx context.Context, name string) (*domain.Department, error) {
	const q = `SELECT name, contact_email, created_at FROM departments WHERE name = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var d domain.Department
	err := r.pool.QueryRow(ctx, q, name).Scan(&d.Name, &d.ContactEmail, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *directoryRepository) DeleteDepartment(ctx context.Context, name string) error {
	const q = `DELETE FROM departments WHERE name = $1`
	return r.deleteByName(ctx, q, name)
}

func (r *directoryRepository) CreateUniversity(ctx context.Context, name string) (*domain.University, error) {
	const q = `INSERT INTO universities (name) VALUES ($1) RETURNING name, created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var u domain.University
	if err := r.pool.QueryRow(ctx, q, name).Scan(&u.Name, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *directoryRepository) ListUniversities(ctx context.Context) ([]domain.University, error) {
	const q = `SELECT name, created_at FROM universities ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.University
	for rows.Next() {
		var u domain.University
		if err := rows.Scan(&u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *directoryRepository) DeleteUniversity(ctx context.Context, name string) error {
	const q = `DELETE FROM universities WHERE name = $1`
	return r.deleteByName(ctx, q, name)
}

func (r *directoryRepository) deleteByName(ctx context.Context, q, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, name)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
