// Package pgdir resolves profiles from a PostgreSQL "profiles" table via pgx.
package pgdir

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIdentity/profile"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of *pgxpool.Pool the directory needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const findByEmailSQL = `SELECT id, name, email, role, department_id, phone, position, active
FROM profiles
WHERE lower(email) = $1
LIMIT 1`

// Directory implements profile.Resolver on top of PostgreSQL.
type Directory struct {
	db Querier
}

func New(db Querier) *Directory {
	return &Directory{db: db}
}

// NewPool opens a connection pool with conservative limits and verifies it.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	row := d.db.QueryRow(ctx, findByEmailSQL, profile.NormalizeEmail(email))

	var (
		p          profile.Profile
		role       string
		department *string
		phone      *string
		position   *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &role, &department, &phone, &position, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	p.Role = profile.Role(role)
	if !p.Role.Valid() {
		p.Role = profile.RoleUser
	}
	p.DepartmentID = department
	if phone != nil {
		p.Phone = *phone
	}
	if position != nil {
		p.Position = *position
	}
	return &p, nil
}
