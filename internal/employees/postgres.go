package employees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists employees as JSONB records. The searchable columns
// are duplicated out of the record so the table can be queried directly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pgx pool for the given DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	rut TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	record JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);
CREATE INDEX IF NOT EXISTS idx_employees_rut ON employees(rut);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM employees ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()
	out := []Employee{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		var e Employee
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Employee, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM employees WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, fmt.Errorf("select employee: %w", err)
	}
	var e Employee
	if err := json.Unmarshal(raw, &e); err != nil {
		return Employee{}, fmt.Errorf("decode employee: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) Create(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := insert(ctx, s.pool, e); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Employee{}, fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
		return Employee{}, err
	}
	return e, nil
}

func (s *PostgresStore) Update(ctx context.Context, e Employee) (Employee, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return Employee{}, fmt.Errorf("encode employee: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE employees
		SET rut=$2, first_name=$3, last_name=$4, department=$5, is_active=$6, record=$7, updated_at=$8
		WHERE id=$1
	`, e.ID, e.RUT, e.FirstName, e.LastName, e.Department, e.IsActive, string(raw), time.Now().UTC())
	if err != nil {
		return Employee{}, fmt.Errorf("update employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrNotFound
	}
	return e, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM employees WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, list []Employee) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM employees`); err != nil {
		return fmt.Errorf("clear employees: %w", err)
	}
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
		seen[e.ID] = true
		if err := insert(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insert(ctx context.Context, db execer, e Employee) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode employee: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO employees (id, rut, first_name, last_name, department, is_active, record, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.RUT, e.FirstName, e.LastName, e.Department, e.IsActive, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}
