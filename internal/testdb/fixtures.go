package testdb

import (
	"context"
	"testing"
)

// placeholderHash is a syntactically valid bcrypt hash; fixtures never log in.
const placeholderHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO6v5zvbRhJ1dc8uG1I0kq3JY6Xu8uGsK"

// MustUser inserts a user and returns its id.
func (d *DB) MustUser(tb testing.TB, name, email, address, role string) int64 {
	tb.Helper()
	var id int64
	err := d.Pool.QueryRow(context.Background(),
		`INSERT INTO users (name, email, password, address, role) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		name, email, placeholderHash, address, role).Scan(&id)
	if err != nil {
		tb.Fatalf("insert user %q: %v", email, err)
	}
	return id
}

// MustStore inserts a store and returns its id. ownerID may be zero for an unowned store.
func (d *DB) MustStore(tb testing.TB, name, email, address string, ownerID int64) int64 {
	tb.Helper()
	var owner *int64
	if ownerID != 0 {
		owner = &ownerID
	}
	var id int64
	err := d.Pool.QueryRow(context.Background(),
		`INSERT INTO stores (name, email, address, owner_id) VALUES ($1,$2,$3,$4) RETURNING id`,
		name, email, address, owner).Scan(&id)
	if err != nil {
		tb.Fatalf("insert store %q: %v", name, err)
	}
	return id
}

// MustRating writes a rating row directly, bypassing the upsert path.
func (d *DB) MustRating(tb testing.TB, userID, storeID int64, value int) {
	tb.Helper()
	_, err := d.Pool.Exec(context.Background(),
		`INSERT INTO ratings (user_id, store_id, rating) VALUES ($1,$2,$3)`, userID, storeID, value)
	if err != nil {
		tb.Fatalf("insert rating user=%d store=%d: %v", userID, storeID, err)
	}
}

// RatingRows counts the stored rows for a (user, store) pair.
func (d *DB) RatingRows(tb testing.TB, userID, storeID int64) int {
	tb.Helper()
	var n int
	err := d.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM ratings WHERE user_id = $1 AND store_id = $2`, userID, storeID).Scan(&n)
	if err != nil {
		tb.Fatalf("count ratings: %v", err)
	}
	return n
}
