package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/store-ratings/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	pool    *pgxpool.Pool
	Users   *UsersRepository
	Stores  *StoresRepository
	Ratings *RatingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	r := bind(pool)
	r.pool = pool
	return r
}

func bind(q querier) *Repository {
	return &Repository{
		Users:   &UsersRepository{q: q},
		Stores:  &StoresRepository{q: q},
		Ratings: &RatingsRepository{q: q},
	}
}

var snapshotOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// ReadSnapshot runs fn against repositories bound to one read-only REPEATABLE READ
// transaction, so every query inside fn observes the same committed state.
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(tx *Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return pgx.BeginTxFunc(ctx, r.pool, snapshotOptions, func(tx pgx.Tx) error {
		return fn(bind(tx))
	})
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
