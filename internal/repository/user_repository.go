package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veletic/gatehouse/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string, start, end domain.TimeOfDay) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	SetDisabled(ctx context.Context, id int64, disabled bool) error
	UpdateSchedule(ctx context.Context, id int64, start, end domain.TimeOfDay) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, password_hash, disabled, schedule_start, schedule_end, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, username, passwordHash string, start, end domain.TimeOfDay) (*domain.User, error) {
	const q = `
INSERT INTO users (username, password_hash, schedule_start, schedule_end)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, username, passwordHash, int(start), int(end)))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY username LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) SetDisabled(ctx context.Context, id int64, disabled bool) error {
	const q = `UPDATE users SET disabled = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdateSchedule(ctx context.Context, id int64, start, end domain.TimeOfDay) error {
	const q = `UPDATE users SET schedule_start = $2, schedule_end = $3, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, int(start), int(end))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var start, end int
	if err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Disabled,
		&start, &end, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.ScheduleStart = domain.TimeOfDay(start)
	u.ScheduleEnd = domain.TimeOfDay(end)
	return &u, nil
}
