package domain

import "time"

// Store is a rateable shop, optionally owned by a store_owner user.
type Store struct {
	ID        int64
	Name      string
	Email     string
	Address   string
	OwnerID   *int64
	CreatedAt time.Time
}

// StoreView is a store row with its rating aggregate attached.
// Email is only populated in the admin projection, OwnRating only in the user projection.
type StoreView struct {
	ID            int64
	Name          string
	Email         *string
	Address       string
	CreatedAt     time.Time
	AverageRating float64
	TotalRatings  int64
	OwnRating     *int
}
