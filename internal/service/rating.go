package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/platform/metrics"
	"github.com/Clark-Hu/store-ratings/internal/repository"
)

// Ratings accepts rating submissions.
type Ratings struct {
	repo    *repository.Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRatings wires a Ratings service. m may be nil.
func NewRatings(repo *repository.Repository, log *zap.Logger, m *metrics.Metrics) *Ratings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ratings{repo: repo, logger: log.Named("ratings"), metrics: m}
}

// SubmitResult is the stored rating together with the store aggregate that includes it.
type SubmitResult struct {
	Rating    domain.Rating
	Aggregate domain.RatingAggregate
	Created   bool
}

// SubmitRating creates or replaces userID's rating of storeID. The write is a single
// upsert keyed on (user, store), so concurrent submissions leave exactly one row holding
// the last committed value.
func (s *Ratings) SubmitRating(ctx context.Context, userID, storeID int64, value int) (res SubmitResult, err error) {
	ctx, span := tracer.Start(ctx, "Ratings.SubmitRating", oteltrace.WithAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("store_id", storeID),
		attribute.Int("rating", value),
	))
	defer func() { endSpan(span, err) }()

	if err := domain.ValidateRatingValue(value); err != nil {
		return res, err
	}

	exists, err := s.repo.Stores.Exists(ctx, storeID)
	if err != nil {
		return res, err
	}
	if !exists {
		return res, fmt.Errorf("%w: store %d", domain.ErrNotFound, storeID)
	}

	rating, created, err := s.repo.Ratings.Upsert(ctx, repository.RatingUpsertParams{
		UserID:  userID,
		StoreID: storeID,
		Value:   value,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Error("rating upsert violated the (user, store) uniqueness invariant",
				zap.Int64("user_id", userID), zap.Int64("store_id", storeID), zap.Error(err))
		}
		return res, err
	}
	s.metrics.ObserveUpsert(created)

	agg, err := s.repo.Ratings.StoreAggregate(ctx, storeID)
	if err != nil {
		return res, err
	}

	s.logger.Debug("rating stored",
		zap.Int64("user_id", userID),
		zap.Int64("store_id", storeID),
		zap.Int("rating", value),
		zap.Bool("created", created))

	span.SetAttributes(attribute.Bool("created", created))
	return SubmitResult{Rating: rating, Aggregate: agg, Created: created}, nil
}
