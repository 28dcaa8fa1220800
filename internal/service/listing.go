package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/platform/metrics"
	"github.com/Clark-Hu/store-ratings/internal/query"
	"github.com/Clark-Hu/store-ratings/internal/repository"
)

// Listing produces role-appropriate pages of stores and users.
type Listing struct {
	repo    *repository.Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewListing wires a Listing. m may be nil.
func NewListing(repo *repository.Repository, log *zap.Logger, m *metrics.Metrics) *Listing {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listing{repo: repo, logger: log.Named("listing"), metrics: m}
}

// ListStores returns one page of stores. A nil asUserID selects the admin projection,
// which carries each store's email. Otherwise the user projection hides the email and
// attaches the caller's own rating.
func (s *Listing) ListStores(ctx context.Context, params query.Params, asUserID *int64) (page domain.Page[domain.StoreView], err error) {
	projection := "admin"
	if asUserID != nil {
		projection = "user"
	}
	ctx, span := tracer.Start(ctx, "Listing.ListStores", oteltrace.WithAttributes(
		attribute.String("projection", projection),
		attribute.String("sort_by", params.SortField),
	))
	defer func() { endSpan(span, err) }()
	defer s.observe(time.Now(), "stores")

	plan, err := query.Build(query.StoreSchema, params)
	if err != nil {
		return page, err
	}

	var (
		items []domain.StoreView
		total int64
	)
	err = s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		var err error
		if items, err = tx.Stores.List(ctx, plan, asUserID); err != nil {
			return err
		}
		total, err = tx.Stores.CountMatching(ctx, plan)
		return err
	})
	if err != nil {
		s.logger.Error("list stores failed", zap.String("projection", projection), zap.Error(err))
		return page, fmt.Errorf("list stores: %w", err)
	}

	if asUserID != nil {
		for i := range items {
			items[i].Email = nil
		}
	}

	span.SetAttributes(attribute.Int64("total_count", total))
	return domain.Page[domain.StoreView]{
		Items:      items,
		Pagination: domain.NewPagination(plan.Page, plan.PageSize, total),
	}, nil
}

// ListUsers returns one page of users. Store owners carry the average of their store.
func (s *Listing) ListUsers(ctx context.Context, params query.Params) (page domain.Page[domain.UserView], err error) {
	ctx, span := tracer.Start(ctx, "Listing.ListUsers", oteltrace.WithAttributes(
		attribute.String("sort_by", params.SortField),
	))
	defer func() { endSpan(span, err) }()
	defer s.observe(time.Now(), "users")

	plan, err := query.Build(query.UserSchema, params)
	if err != nil {
		return page, err
	}

	var (
		items []domain.UserView
		total int64
	)
	err = s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		var err error
		if items, err = tx.Users.List(ctx, plan); err != nil {
			return err
		}
		total, err = tx.Users.CountMatching(ctx, plan)
		return err
	})
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return page, fmt.Errorf("list users: %w", err)
	}

	span.SetAttributes(attribute.Int64("total_count", total))
	return domain.Page[domain.UserView]{
		Items:      items,
		Pagination: domain.NewPagination(plan.Page, plan.PageSize, total),
	}, nil
}

// GetUserDetail returns the same projection as one ListUsers row.
func (s *Listing) GetUserDetail(ctx context.Context, userID int64) (view domain.UserView, err error) {
	ctx, span := tracer.Start(ctx, "Listing.GetUserDetail", oteltrace.WithAttributes(
		attribute.Int64("user_id", userID),
	))
	defer func() { endSpan(span, err) }()

	return s.repo.Users.GetView(ctx, userID)
}

// OwnerDashboard summarizes the store owned by ownerID: its aggregate and every rating
// it received, most recently updated first.
func (s *Listing) OwnerDashboard(ctx context.Context, ownerID int64) (dash domain.OwnerDashboard, err error) {
	ctx, span := tracer.Start(ctx, "Listing.OwnerDashboard", oteltrace.WithAttributes(
		attribute.Int64("owner_id", ownerID),
	))
	defer func() { endSpan(span, err) }()

	err = s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		store, err := tx.Stores.GetOwnedBy(ctx, ownerID)
		if err != nil {
			return err
		}
		agg, err := tx.Ratings.StoreAggregate(ctx, store.ID)
		if err != nil {
			return err
		}
		ratings, err := tx.Ratings.ListForStore(ctx, store.ID)
		if err != nil {
			return err
		}
		dash = domain.OwnerDashboard{
			StoreID:       store.ID,
			StoreName:     store.Name,
			AverageRating: agg.Average,
			TotalRatings:  agg.Count,
			Ratings:       ratings,
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("owner dashboard failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		}
		return domain.OwnerDashboard{}, err
	}
	return dash, nil
}

func (s *Listing) observe(start time.Time, listing string) {
	s.metrics.ObserveListing(listing, time.Since(start).Seconds())
}
