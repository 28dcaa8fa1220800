package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/query"
)

// StoresRepository provides persistence helpers for stores.
type StoresRepository struct {
	q querier
}

const storeColumns = `s.id, s.name, s.email, s.address, s.owner_id, s.created_at`

// StoreCreateParams bundles the fields required to create a store.
type StoreCreateParams struct {
	Name    string
	Email   string
	Address string
	OwnerID *int64
}

// Create inserts a store. A taken email yields domain.ErrAlreadyExists.
func (r *StoresRepository) Create(ctx context.Context, params StoreCreateParams) (domain.Store, error) {
	const stmt = `
        INSERT INTO stores AS s (name, email, address, owner_id)
        VALUES ($1,$2,$3,$4)
        RETURNING ` + storeColumns

	store, err := scanStore(r.q.QueryRow(ctx, stmt, params.Name, params.Email, params.Address, params.OwnerID))
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.Store{}, fmt.Errorf("%w: store with email %q", domain.ErrAlreadyExists, params.Email)
		case pgForeignKeyViolation:
			return domain.Store{}, fmt.Errorf("%w: owner", domain.ErrNotFound)
		case pgCheckViolation:
			return domain.Store{}, fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
		}
		return domain.Store{}, fmt.Errorf("create store: %w", err)
	}
	return store, nil
}

// Exists reports whether a store with id exists.
func (r *StoresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("store exists: %w", err)
	}
	return exists, nil
}

// GetByID fetches a store by its identifier.
func (r *StoresRepository) GetByID(ctx context.Context, id int64) (domain.Store, error) {
	store, err := scanStore(r.q.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores s WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Store{}, domain.ErrNotFound
		}
		return domain.Store{}, err
	}
	return store, nil
}

// GetOwnedBy returns the store owned by ownerID. When an owner has several stores the
// one with the lowest id is returned, matching the owner aggregate.
func (r *StoresRepository) GetOwnedBy(ctx context.Context, ownerID int64) (domain.Store, error) {
	const stmt = `SELECT ` + storeColumns + ` FROM stores s WHERE s.owner_id = $1 ORDER BY s.id LIMIT 1`
	store, err := scanStore(r.q.QueryRow(ctx, stmt, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Store{}, fmt.Errorf("%w: no store owned by user %d", domain.ErrNotFound, ownerID)
		}
		return domain.Store{}, err
	}
	return store, nil
}

// List returns the page window of plan with aggregates attached per row. When viewerID
// is set each row also carries that user's own rating.
func (r *StoresRepository) List(ctx context.Context, plan query.Plan, viewerID *int64) ([]domain.StoreView, error) {
	args := plan.Args()
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	ownColumn := "NULL::int"
	ownJoin := ""
	if viewerID != nil {
		ownColumn = "ur.rating::int"
		ownJoin = fmt.Sprintf("LEFT JOIN ratings ur ON ur.store_id = s.id AND ur.user_id = %s", arg(*viewerID))
	}

	sql := fmt.Sprintf(`
        SELECT s.id, s.name, s.email, s.address, s.created_at,
               COALESCE(agg.average, 0), agg.total, %s
        FROM stores s
        %s
        %s
        %s
        %s
        LIMIT %s OFFSET %s
    `, ownColumn, storeAggregateJoin("s.id"), ownJoin, plan.Where, plan.OrderBy, arg(plan.PageSize), arg(plan.Offset))

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	items := make([]domain.StoreView, 0)
	for rows.Next() {
		var (
			view  domain.StoreView
			email string
			mean  float64
			total int64
			own   *int
		)
		if err := rows.Scan(&view.ID, &view.Name, &email, &view.Address, &view.CreatedAt, &mean, &total, &own); err != nil {
			return nil, err
		}
		agg := domain.NewRatingAggregate(mean, total)
		view.Email = &email
		view.AverageRating = agg.Average
		view.TotalRatings = agg.Count
		view.OwnRating = own
		items = append(items, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountMatching counts the stores satisfying plan's predicate, ignoring its window.
func (r *StoresRepository) CountMatching(ctx context.Context, plan query.Plan) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stores s `+plan.Where, plan.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

// Count returns the total number of stores.
func (r *StoresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

func scanStore(row pgx.Row) (domain.Store, error) {
	var store domain.Store
	if err := row.Scan(&store.ID, &store.Name, &store.Email, &store.Address, &store.OwnerID, &store.CreatedAt); err != nil {
		return domain.Store{}, err
	}
	return store, nil
}
