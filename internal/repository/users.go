package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/query"
)

// UsersRepository provides persistence helpers for user accounts.
type UsersRepository struct {
	q querier
}

const userColumns = `u.id, u.name, u.email, u.address, u.role, u.created_at`

// UserCreateParams bundles the fields required to create a user. PasswordHash is stored as given.
type UserCreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Role         domain.Role
}

// Create inserts a user. A taken email yields domain.ErrAlreadyExists.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	const stmt = `
        INSERT INTO users AS u (name, email, password, address, role)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ` + userColumns

	row := r.q.QueryRow(ctx, stmt, params.Name, params.Email, params.PasswordHash, params.Address, string(params.Role))
	user, err := scanUser(row)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return domain.User{}, fmt.Errorf("%w: user with email %q", domain.ErrAlreadyExists, params.Email)
		case pgCheckViolation:
			return domain.User{}, fmt.Errorf("%w: %v", domain.ErrInvalidValue, err)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// EnsureAdmin inserts the given admin unless a user with that email already exists.
// It reports whether a row was written.
func (r *UsersRepository) EnsureAdmin(ctx context.Context, params UserCreateParams) (bool, error) {
	const stmt = `
        INSERT INTO users (name, email, password, address, role)
        VALUES ($1,$2,$3,$4,'admin')
        ON CONFLICT (email) DO NOTHING
    `
	tag, err := r.q.Exec(ctx, stmt, params.Name, params.Email, params.PasswordHash, params.Address)
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByEmail fetches a user by exact email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// userViewSelect projects users with the owner aggregate of their first owned store.
var userViewSelect = fmt.Sprintf(`
    SELECT %s,
           CASE WHEN os.id IS NULL THEN NULL ELSE COALESCE(agg.average, 0) END AS rating
    FROM users u
    %s
    %s
`, userColumns, ownedStoreJoin("u.id", "u.role"), storeAggregateJoin("os.id"))

// GetView fetches the admin projection of one user.
func (r *UsersRepository) GetView(ctx context.Context, id int64) (domain.UserView, error) {
	row := r.q.QueryRow(ctx, userViewSelect+` WHERE u.id = $1`, id)
	view, err := scanUserView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserView{}, fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
		}
		return domain.UserView{}, err
	}
	return view, nil
}

// List returns the page window of plan. The owner rating is computed per row.
func (r *UsersRepository) List(ctx context.Context, plan query.Plan) ([]domain.UserView, error) {
	args := plan.Args()
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	sql := fmt.Sprintf(`%s %s %s LIMIT %s OFFSET %s`, userViewSelect, plan.Where, plan.OrderBy, arg(plan.PageSize), arg(plan.Offset))
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]domain.UserView, 0)
	for rows.Next() {
		view, err := scanUserView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, view)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountMatching counts the users satisfying plan's predicate, ignoring its window.
func (r *UsersRepository) CountMatching(ctx context.Context, plan query.Plan) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+plan.Where, plan.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Count returns the total number of users.
func (r *UsersRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Address, &role, &user.CreatedAt); err != nil {
		return domain.User{}, err
	}
	user.Role = domain.Role(role)
	return user, nil
}

func scanUserView(row pgx.Row) (domain.UserView, error) {
	var (
		view   domain.UserView
		role   string
		rating *float64
	)
	if err := row.Scan(&view.ID, &view.Name, &view.Email, &view.Address, &role, &view.CreatedAt, &rating); err != nil {
		return domain.UserView{}, err
	}
	view.Role = domain.Role(role)
	if rating != nil {
		rounded := domain.RoundToOneDecimal(*rating)
		view.Rating = &rounded
	}
	return view, nil
}
