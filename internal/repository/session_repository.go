package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veletic/gatehouse/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) (int64, error)
	// EvictExcess deletes every session of the user except the `keep` most
	// recently created non-expired ones, enforcing the session cap.
	EvictExcess(ctx context.Context, userID int64, keep int) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)

	CreateAdmin(ctx context.Context, s *domain.AdminSession) error
	FindAdminByID(ctx context.Context, id string) (*domain.AdminSession, error)
	UpdateAdminExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteAdmin(ctx context.Context, id string) error
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, building, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := r.pool.Exec(ctx, q, s.ID, s.UserID, s.Building, s.CreatedAt, s.ExpiresAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	const q = `SELECT id, user_id, building, created_at, expires_at FROM sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s domain.Session
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.Building, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const q = `UPDATE sessions SET expires_at = $2 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *sessionRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	const q = `DELETE FROM sessions WHERE user_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepository) EvictExcess(ctx context.Context, userID int64, keep int) (int64, error) {
	const q = `
DELETE FROM sessions
WHERE user_id = $1
  AND id NOT IN (
    SELECT id FROM sessions
    WHERE user_id = $1 AND expires_at > now()
    ORDER BY created_at DESC
    LIMIT $2
  )`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, userID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM sessions WHERE expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *sessionRepository) CreateAdmin(ctx context.Context, s *domain.AdminSession) error {
	const q = `INSERT INTO admin_sessions (id, created_at, expires_at) VALUES ($1, $2, $3)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := r.pool.Exec(ctx, q, s.ID, s.CreatedAt, s.ExpiresAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *sessionRepository) FindAdminByID(ctx context.Context, id string) (*domain.AdminSession, error) {
	const q = `SELECT id, created_at, expires_at FROM admin_sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s domain.AdminSession
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) UpdateAdminExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const q = `UPDATE admin_sessions SET expires_at = $2 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) DeleteAdmin(ctx context.Context, id string) error {
	const q = `DELETE FROM admin_sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
