package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

// RatingsRepository owns the ratings table. It is the aggregate rating index: every
// average and count is derived from the current rows on read and never stored.
type RatingsRepository struct {
	q querier
}

// storeAggregateJoin attaches, per row, the raw mean and count of ratings for the store
// identified by storeIDExpr as columns agg.average (NULL when unrated) and agg.total.
func storeAggregateJoin(storeIDExpr string) string {
	return fmt.Sprintf(`LEFT JOIN LATERAL (
        SELECT AVG(r.rating)::float8 AS average, COUNT(*)::int8 AS total
        FROM ratings r
        WHERE r.store_id = %s
    ) agg ON true`, storeIDExpr)
}

// ownedStoreJoin resolves the single store an owner's aggregate is taken from, as os.id.
// Only rows whose role is store_owner match. With several owned stores the lowest id wins.
func ownedStoreJoin(userIDExpr, roleExpr string) string {
	return fmt.Sprintf(`LEFT JOIN LATERAL (
        SELECT st.id, st.name
        FROM stores st
        WHERE st.owner_id = %s
        ORDER BY st.id
        LIMIT 1
    ) os ON %s = 'store_owner'`, userIDExpr, roleExpr)
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	UserID  int64
	StoreID int64
	Value   int
}

// Upsert inserts or replaces the (user, store) rating in a single statement and reports
// whether a new row was created. Concurrent calls for the same pair serialize on the
// unique constraint; the last committed value wins.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.Rating, bool, error) {
	const query = `
        INSERT INTO ratings (user_id, store_id, rating)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, store_id)
        DO UPDATE SET rating = EXCLUDED.rating, updated_at = now()
        RETURNING user_id, store_id, rating::int, created_at, updated_at, (xmax = 0) AS inserted
    `

	var rating domain.Rating
	var inserted bool
	err := r.q.QueryRow(ctx, query, params.UserID, params.StoreID, params.Value).Scan(
		&rating.UserID,
		&rating.StoreID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
		&inserted,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgForeignKeyViolation:
			return domain.Rating{}, false, fmt.Errorf("%w: store %d or user %d", domain.ErrNotFound, params.StoreID, params.UserID)
		case pgCheckViolation:
			return domain.Rating{}, false, fmt.Errorf("%w: rating %d", domain.ErrInvalidValue, params.Value)
		case pgUniqueViolation:
			return domain.Rating{}, false, fmt.Errorf("%w: duplicate rating for user %d store %d", domain.ErrConflict, params.UserID, params.StoreID)
		}
		return domain.Rating{}, false, fmt.Errorf("upsert rating: %w", err)
	}

	return rating, inserted, nil
}

// StoreAggregate returns the rating average and count for a store. A store without
// ratings yields the zero aggregate.
func (r *RatingsRepository) StoreAggregate(ctx context.Context, storeID int64) (domain.RatingAggregate, error) {
	const query = `
        SELECT COALESCE(AVG(rating)::float8, 0) AS average,
               COUNT(*)::int8 AS count
        FROM ratings
        WHERE store_id = $1
    `

	var (
		mean  float64
		count int64
	)
	if err := r.q.QueryRow(ctx, query, storeID).Scan(&mean, &count); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	return domain.NewRatingAggregate(mean, count), nil
}

// OwnerAggregate returns the aggregate of the store owned by userID. ok is false when the
// user is not a store owner, owns no store, or does not exist.
func (r *RatingsRepository) OwnerAggregate(ctx context.Context, userID int64) (agg domain.RatingAggregate, ok bool, err error) {
	query := fmt.Sprintf(`
        SELECT os.id, COALESCE(agg.average, 0), COALESCE(agg.total, 0)
        FROM users u
        %s
        %s
        WHERE u.id = $1
    `, ownedStoreJoin("u.id", "u.role"), storeAggregateJoin("os.id"))

	var (
		storeID *int64
		mean    float64
		count   int64
	)
	err = r.q.QueryRow(ctx, query, userID).Scan(&storeID, &mean, &count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RatingAggregate{}, false, nil
		}
		return domain.RatingAggregate{}, false, fmt.Errorf("owner aggregate: %w", err)
	}
	if storeID == nil {
		return domain.RatingAggregate{}, false, nil
	}
	return domain.NewRatingAggregate(mean, count), true, nil
}

// UserOwnRating returns the value userID gave storeID, or nil when they have not rated it.
func (r *RatingsRepository) UserOwnRating(ctx context.Context, userID, storeID int64) (*int, error) {
	const query = `SELECT rating::int FROM ratings WHERE user_id = $1 AND store_id = $2`

	var value int
	err := r.q.QueryRow(ctx, query, userID, storeID).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("own rating: %w", err)
	}
	return &value, nil
}

// Get retrieves the rating for a specific user/store combination.
func (r *RatingsRepository) Get(ctx context.Context, userID, storeID int64) (domain.Rating, error) {
	const query = `
        SELECT user_id, store_id, rating::int, created_at, updated_at
        FROM ratings
        WHERE user_id = $1 AND store_id = $2
    `
	var rating domain.Rating
	err := r.q.QueryRow(ctx, query, userID, storeID).Scan(
		&rating.UserID,
		&rating.StoreID,
		&rating.Value,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Rating{}, domain.ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// ListForStore returns every rating on a store with its rater, most recently updated first.
func (r *RatingsRepository) ListForStore(ctx context.Context, storeID int64) ([]domain.RatingDetail, error) {
	const query = `
        SELECT u.name, u.email, r.rating::int, r.created_at, r.updated_at
        FROM ratings r
        JOIN users u ON u.id = r.user_id
        WHERE r.store_id = $1
        ORDER BY r.updated_at DESC, r.user_id ASC
    `
	rows, err := r.q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list store ratings: %w", err)
	}
	defer rows.Close()

	details := make([]domain.RatingDetail, 0)
	for rows.Next() {
		var d domain.RatingDetail
		if err := rows.Scan(&d.UserName, &d.UserEmail, &d.Value, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// Count returns the total number of ratings.
func (r *RatingsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}
