package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is the single rating a user holds for a store.
type Rating struct {
	UserID    int64
	StoreID   int64
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingAggregate provides average and count for a store's ratings.
// Average is zero, never NaN, when Count is zero.
type RatingAggregate struct {
	Average float64
	Count   int64
}

// NewRatingAggregate rounds the raw mean for display.
func NewRatingAggregate(mean float64, count int64) RatingAggregate {
	if count == 0 || math.IsNaN(mean) {
		return RatingAggregate{}
	}
	return RatingAggregate{Average: RoundToOneDecimal(mean), Count: count}
}

// RatingDetail is one row of the store owner dashboard.
type RatingDetail struct {
	UserName  string
	UserEmail string
	Value     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerDashboard summarizes the feedback received by an owner's store.
type OwnerDashboard struct {
	StoreID       int64
	StoreName     string
	AverageRating float64
	TotalRatings  int64
	Ratings       []RatingDetail
}

// ValidateRatingValue checks v lies in [MinRatingValue, MaxRatingValue].
func ValidateRatingValue(v int) error {
	if v < MinRatingValue || v > MaxRatingValue {
		return fmt.Errorf("%w: rating must be an integer between %d and %d", ErrInvalidValue, MinRatingValue, MaxRatingValue)
	}
	return nil
}

// ParseRatingValue accepts a decoded JSON number and rejects fractions.
func ParseRatingValue(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: rating must be an integer", ErrInvalidValue)
	}
	if v < MinRatingValue || v > MaxRatingValue {
		return 0, fmt.Errorf("%w: rating must be an integer between %d and %d", ErrInvalidValue, MinRatingValue, MaxRatingValue)
	}
	return int(v), nil
}

// RoundToOneDecimal rounds half away from zero to one decimal place.
func RoundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10.0
}
