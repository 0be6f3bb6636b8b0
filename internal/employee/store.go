package employee

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested employee does not exist.
var ErrNotFound = errors.New("employee: not found")

// ErrStoreUnavailable indicates the employee store dependency is not configured.
var ErrStoreUnavailable = errors.New("employee: store unavailable")

// Employee is a directory entry used for sales-incentive assignment.
type Employee struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	Email      string    `json:"email,omitempty"`
}

// Store provides database accessors for the employee directory.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Employee, error)
	Search(ctx context.Context, query string, limit int) ([]Employee, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) Get(ctx context.Context, id uuid.UUID) (Employee, error) {
	if s == nil || s.pool == nil {
		return Employee{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, name, department, email FROM employees WHERE id = $1`, id)
	var e Employee
	if err := row.Scan(&e.ID, &e.Name, &e.Department, &e.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

func (s *pgStore) Search(ctx context.Context, query string, limit int) ([]Employee, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.pool.Query(ctx, `SELECT id, name, department, email FROM employees
WHERE name ILIKE $1 OR department ILIKE $1 OR email ILIKE $1 ORDER BY name LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]Employee, 0, limit)
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Email); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
