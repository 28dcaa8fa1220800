package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/repository"
)

// PasswordCost is the bcrypt cost used for stored passwords.
const PasswordCost = 12

// Admin holds the thin administrative writes and the dashboard totals.
type Admin struct {
	repo   *repository.Repository
	logger *zap.Logger
	cost   int
}

// NewAdmin wires an Admin service.
func NewAdmin(repo *repository.Repository, log *zap.Logger) *Admin {
	if log == nil {
		log = zap.NewNop()
	}
	return &Admin{repo: repo, logger: log.Named("admin"), cost: PasswordCost}
}

// CreateUserInput is an unvalidated user creation request.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Role     string
}

// CreateStoreInput is an unvalidated store creation request. OwnerEmail is optional.
type CreateStoreInput struct {
	Name       string
	Email      string
	Address    string
	OwnerEmail string
}

// DashboardStats are the platform totals shown to administrators.
type DashboardStats struct {
	TotalUsers   int64
	TotalStores  int64
	TotalRatings int64
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser validates the input, hashes the password and stores the user.
func (s *Admin) CreateUser(ctx context.Context, in CreateUserInput) (user domain.User, err error) {
	ctx, span := tracer.Start(ctx, "Admin.CreateUser", oteltrace.WithAttributes(
		attribute.String("role", in.Role),
	))
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.Name)
	if err := domain.ValidateName(name); err != nil {
		return user, err
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return user, err
	}
	if err := domain.ValidateAddress(in.Address); err != nil {
		return user, err
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return user, err
	}
	role := domain.RoleNormal
	if strings.TrimSpace(in.Role) != "" {
		if role, err = domain.ParseRole(in.Role); err != nil {
			return user, err
		}
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return user, err
	}

	user, err = s.repo.Users.Create(ctx, repository.UserCreateParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Address:      in.Address,
		Role:         role,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// CreateStore validates the input and stores the store. A non-empty OwnerEmail must name
// an existing store_owner.
func (s *Admin) CreateStore(ctx context.Context, in CreateStoreInput) (store domain.Store, err error) {
	ctx, span := tracer.Start(ctx, "Admin.CreateStore")
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(in.Name)
	if err := domain.ValidateName(name); err != nil {
		return store, err
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return store, err
	}
	if err := domain.ValidateAddress(in.Address); err != nil {
		return store, err
	}

	var ownerID *int64
	if strings.TrimSpace(in.OwnerEmail) != "" {
		id, err := s.resolveOwner(ctx, in.OwnerEmail)
		if err != nil {
			return store, err
		}
		ownerID = &id
	}

	store, err = s.repo.Stores.Create(ctx, repository.StoreCreateParams{
		Name:    name,
		Email:   email,
		Address: in.Address,
		OwnerID: ownerID,
	})
	if err != nil {
		return domain.Store{}, err
	}

	s.logger.Info("store created", zap.Int64("store_id", store.ID))
	return store, nil
}

func (s *Admin) resolveOwner(ctx context.Context, rawEmail string) (int64, error) {
	email, err := domain.NormalizeEmail(rawEmail)
	if err != nil {
		return 0, err
	}
	owner, err := s.repo.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: no store owner with email %q", domain.ErrInvalidValue, email)
		}
		return 0, err
	}
	if owner.Role != domain.RoleStoreOwner {
		return 0, fmt.Errorf("%w: user %q is not a store owner", domain.ErrInvalidValue, email)
	}
	return owner.ID, nil
}

// Dashboard returns the platform totals from one snapshot.
func (s *Admin) Dashboard(ctx context.Context) (stats DashboardStats, err error) {
	ctx, span := tracer.Start(ctx, "Admin.Dashboard")
	defer func() { endSpan(span, err) }()

	err = s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		var err error
		if stats.TotalUsers, err = tx.Users.Count(ctx); err != nil {
			return err
		}
		if stats.TotalStores, err = tx.Stores.Count(ctx); err != nil {
			return err
		}
		stats.TotalRatings, err = tx.Ratings.Count(ctx)
		return err
	})
	return stats, err
}
