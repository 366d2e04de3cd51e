package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/veletic/gatehouse/internal/domain"
)

type PersonRepository interface {
	// Create inserts the person and their implicit first entry event in one
	// transaction; new persons start inside.
	Create(ctx context.Context, req *domain.CreatePersonRequest, creator string) (*domain.PersonStatus, error)
	FindByID(ctx context.Context, id int64) (*domain.Person, error)
	// ListStatuses returns every person with their latest entry/exit
	// timestamps resolved to a derived state and building.
	ListStatuses(ctx context.Context) ([]domain.PersonStatus, error)
	// Toggle reads the person's presence and appends one event of the
	// opposite kind, all inside a transaction that locks the person row so
	// concurrent toggles on the same person serialize.
	Toggle(ctx context.Context, id int64, building, creator string) (*domain.AccessEvent, domain.PresenceState, error)
	Occupancy(ctx context.Context) ([]domain.Occupancy, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	Delete(ctx context.Context, id int64) error
}

type personRepository struct {
	pool *pgxpool.Pool
}

func NewPersonRepository(pool *pgxpool.Pool) PersonRepository {
	return &personRepository{pool: pool}
}

const personColumns = `id, identifier, ptype, fname, lname, department, university, guarantor_id, banned, created_at`

func (r *personRepository) Create(ctx context.Context, req *domain.CreatePersonRequest, creator string) (*domain.PersonStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insertPerson = `
INSERT INTO persons (identifier, ptype, fname, lname, department, university, guarantor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + personColumns
	var p domain.Person
	if err := tx.QueryRow(ctx, insertPerson,
		req.Identifier, string(req.Type), req.Fname, req.Lname,
		req.Department, req.University, req.GuarantorID,
	).Scan(
		&p.ID, &p.Identifier, &p.Type, &p.Fname, &p.Lname,
		&p.Department, &p.University, &p.GuarantorID, &p.Banned, &p.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}

	const insertEntry = `
INSERT INTO access_events (person_id, kind, building, creator)
VALUES ($1, 'entry', $2, $3)`
	if _, err := tx.Exec(ctx, insertEntry, p.ID, req.Building, creator); err != nil {
		return nil, mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	building := req.Building
	return &domain.PersonStatus{
		Person:   p,
		State:    domain.StateInside,
		Building: &building,
	}, nil
}

func (r *personRepository) FindByID(ctx context.Context, id int64) (*domain.Person, error) {
	const q = `SELECT ` + personColumns + ` FROM persons WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p domain.Person
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Identifier, &p.Type, &p.Fname, &p.Lname,
		&p.Department, &p.University, &p.GuarantorID, &p.Banned, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepository) ListStatuses(ctx context.Context) ([]domain.PersonStatus, error) {
	// Latest entry and exit per person via lateral joins; the inside/outside
	// decision itself happens in Go through domain.StateOf so the predicate
	// has exactly one definition.
	const q = `
SELECT p.id, p.identifier, p.ptype, p.fname, p.lname, p.department, p.university,
       p.guarantor_id, p.banned, p.created_at,
       le.ts, le.building, lx.ts, lx.building
FROM persons p
LEFT JOIN LATERAL (
    SELECT ts, building FROM access_events
    WHERE person_id = p.id AND kind = 'entry'
    ORDER BY ts DESC, id DESC LIMIT 1
) le ON TRUE
LEFT JOIN LATERAL (
    SELECT ts, building FROM access_events
    WHERE person_id = p.id AND kind = 'exit'
    ORDER BY ts DESC, id DESC LIMIT 1
) lx ON TRUE
ORDER BY p.identifier`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []domain.PersonStatus
	for rows.Next() {
		var s domain.PersonStatus
		var entryTs, exitTs *time.Time
		var entryBuilding, exitBuilding *string
		if err := rows.Scan(
			&s.ID, &s.Identifier, &s.Type, &s.Fname, &s.Lname,
			&s.Department, &s.University, &s.GuarantorID, &s.Banned, &s.CreatedAt,
			&entryTs, &entryBuilding, &exitTs, &exitBuilding,
		); err != nil {
			return nil, err
		}
		s.State = domain.StateOf(entryTs, exitTs)
		if s.State == domain.StateInside {
			s.Building = entryBuilding
		} else {
			s.Building = exitBuilding
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *personRepository) Toggle(ctx context.Context, id int64, building, creator string) (*domain.AccessEvent, domain.PresenceState, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", err
	}
	defer tx.Rollback(ctx)

	// Row lock serializes concurrent toggles for the same person; each call
	// observes a settled latest-event snapshot.
	var banned bool
	err = tx.QueryRow(ctx, `SELECT banned FROM persons WHERE id = $1 FOR UPDATE`, id).Scan(&banned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if banned {
		return nil, "", fmt.Errorf("%w: person is banned", domain.ErrConflict)
	}

	const latest = `
SELECT MAX(ts) FILTER (WHERE kind = 'entry'),
       MAX(ts) FILTER (WHERE kind = 'exit')
FROM access_events WHERE person_id = $1`
	var lastEntry, lastExit *time.Time
	if err := tx.QueryRow(ctx, latest, id).Scan(&lastEntry, &lastExit); err != nil {
		return nil, "", err
	}

	kind := domain.EventEntry
	newState := domain.StateInside
	if domain.IsInside(lastEntry, lastExit) {
		kind = domain.EventExit
		newState = domain.StateOutside
	}

	const insert = `
INSERT INTO access_events (person_id, kind, building, creator)
VALUES ($1, $2, $3, $4)
RETURNING id, ts`
	event := domain.AccessEvent{
		PersonID: id,
		Kind:     kind,
		Building: building,
		Creator:  creator,
	}
	if err := tx.QueryRow(ctx, insert, id, string(kind), building, creator).Scan(&event.ID, &event.Ts); err != nil {
		return nil, "", mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", err
	}
	return &event, newState, nil
}

func (r *personRepository) Occupancy(ctx context.Context) ([]domain.Occupancy, error) {
	// Aggregate form of the same presence predicate: a person counts toward
	// the building of their latest entry when that entry is strictly newer
	// than their latest exit.
	const q = `
SELECT le.building, p.ptype, COUNT(*)
FROM persons p
JOIN LATERAL (
    SELECT ts, building FROM access_events
    WHERE person_id = p.id AND kind = 'entry'
    ORDER BY ts DESC, id DESC LIMIT 1
) le ON TRUE
LEFT JOIN LATERAL (
    SELECT ts FROM access_events
    WHERE person_id = p.id AND kind = 'exit'
    ORDER BY ts DESC, id DESC LIMIT 1
) lx ON TRUE
WHERE lx.ts IS NULL OR le.ts > lx.ts
GROUP BY le.building, p.ptype
ORDER BY le.building, p.ptype`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Occupancy
	for rows.Next() {
		var o domain.Occupancy
		if err := rows.Scan(&o.Building, &o.Type, &o.InsideCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *personRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	const q = `UPDATE persons SET banned = $2 WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id, banned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *personRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM persons WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
