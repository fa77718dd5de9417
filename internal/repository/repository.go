// Package repository provides database access layer.
//
// Every method that touches a tenant-owned table (leads, conversations,
// notes, tasks) takes the request Principal and filters on owner_id in the
// same statement that selects the row.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Constraint names mapped to domain errors.
const (
	constraintUserEmail   = "users_email_key"
	constraintProfileOAB  = "lawyer_profiles_oab_key"
	constraintProfileCNPJ = "lawyer_profiles_cnpj_key"
)

// ErrInvalidCursor is returned for a pagination cursor that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Sealer encrypts sensitive columns before they reach the database.
type Sealer interface {
	Seal(plaintext string) ([]byte, error)
	Open(blob []byte) (string, error)
}

// Repository provides database access methods.
type Repository struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

// New creates a new Repository with a connection pool.
// Tax identifiers are written and read through sealer.
func New(ctx context.Context, databaseURL string, sealer Sealer) (*Repository, error) {
	if sealer == nil {
		return nil, errors.New("repository requires a sealer")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, sealer: sealer}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.pool, fn)
}

// uniqueConstraint returns the violated constraint name for a unique
// violation, or "" for any other error.
func uniqueConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
