package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/platform/metrics"
	"github.com/Clark-Hu/store-ratings/internal/query"
	"github.com/Clark-Hu/store-ratings/internal/repository"
	"github.com/Clark-Hu/store-ratings/internal/testdb"
)

var db *testdb.DB

func TestMain(m *testing.M) {
	var err error
	db, err = testdb.Start("service_test")
	if err != nil {
		fmt.Fprintf(os.Stderr, "start test database: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	db.Stop()
	os.Exit(code)
}

type fixture struct {
	ctx     context.Context
	repo    *repository.Repository
	listing *Listing
	ratings *Ratings
	admin   *Admin
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db.Reset(t)
	repo := repository.NewWithPool(db.Pool)
	log := zaptest.NewLogger(t)
	m := metrics.New()
	admin := NewAdmin(repo, log)
	admin.cost = bcrypt.MinCost
	return &fixture{
		ctx:     context.Background(),
		repo:    repo,
		listing: NewListing(repo, log, m),
		ratings: NewRatings(repo, log, m),
		admin:   admin,
		metrics: m,
	}
}

func storeNames(items []domain.StoreView) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func TestListStores_SortByRatingDesc(t *testing.T) {
	f := newFixture(t)

	raters := make([]int64, 5)
	for i := range raters {
		raters[i] = db.MustUser(t, fmt.Sprintf("Rater %d", i), fmt.Sprintf("rater%d@example.com", i), "", "normal")
	}
	a := db.MustStore(t, "Store A", "a@example.com", "", 0)
	db.MustStore(t, "Store B", "b@example.com", "", 0)
	c := db.MustStore(t, "Store C", "c@example.com", "", 0)
	db.MustRating(t, raters[0], a, 5)
	db.MustRating(t, raters[1], a, 4)
	for _, r := range raters {
		db.MustRating(t, r, c, 3)
	}

	page, err := f.listing.ListStores(f.ctx, query.Params{SortField: "rating", SortDirection: "desc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Store A", "Store C", "Store B"}, storeNames(page.Items))
	assert.Equal(t, 4.5, page.Items[0].AverageRating)
	assert.EqualValues(t, 2, page.Items[0].TotalRatings)
	assert.Equal(t, 3.0, page.Items[1].AverageRating)
	assert.EqualValues(t, 5, page.Items[1].TotalRatings)
	assert.Equal(t, 0.0, page.Items[2].AverageRating)
	assert.EqualValues(t, 0, page.Items[2].TotalRatings)
}

func TestListStores_NameFilter(t *testing.T) {
	f := newFixture(t)
	db.MustStore(t, "Downtown Cafe", "cafe@example.com", "", 0)
	db.MustStore(t, "Uptown Diner", "diner@example.com", "", 0)

	page, err := f.listing.ListStores(f.ctx, query.Params{Filters: map[string]string{"name": "cafe"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Downtown Cafe"}, storeNames(page.Items))
	assert.EqualValues(t, 1, page.Pagination.TotalCount)
}

func TestListStores_Projections(t *testing.T) {
	f := newFixture(t)
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	rated := db.MustStore(t, "Rated Shop", "rated@example.com", "", 0)
	db.MustStore(t, "Unrated Shop", "unrated@example.com", "", 0)
	db.MustRating(t, user, rated, 4)

	adminPage, err := f.listing.ListStores(f.ctx, query.Params{}, nil)
	require.NoError(t, err)
	require.Len(t, adminPage.Items, 2)
	for _, item := range adminPage.Items {
		assert.NotNil(t, item.Email, "admin projection carries email")
		assert.Nil(t, item.OwnRating, "admin projection has no own rating")
	}

	userPage, err := f.listing.ListStores(f.ctx, query.Params{}, &user)
	require.NoError(t, err)
	require.Len(t, userPage.Items, 2)
	assert.Equal(t, "Rated Shop", userPage.Items[0].Name)
	require.NotNil(t, userPage.Items[0].OwnRating)
	assert.Equal(t, 4, *userPage.Items[0].OwnRating)
	assert.Nil(t, userPage.Items[1].OwnRating)
	for _, item := range userPage.Items {
		assert.Nil(t, item.Email, "user projection hides email")
	}
}

func TestListStores_PagesConcatenateToFullResult(t *testing.T) {
	f := newFixture(t)
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	for i := 0; i < 23; i++ {
		id := db.MustStore(t, fmt.Sprintf("Shop %02d", i%7), fmt.Sprintf("shop%d@example.com", i), "", 0)
		if i%3 == 0 {
			db.MustRating(t, user, id, i%5+1)
		}
	}

	for _, sortField := range []string{"name", "rating", "email"} {
		full, err := f.listing.ListStores(f.ctx, query.Params{SortField: sortField, SortDirection: "desc", PageSize: 1000}, nil)
		require.NoError(t, err)
		require.EqualValues(t, 23, full.Pagination.TotalCount)

		for _, size := range []int{1, 4, 10, 23, 50} {
			var (
				collected []int64
				pages     int
			)
			for p := 1; ; p++ {
				page, err := f.listing.ListStores(f.ctx, query.Params{SortField: sortField, SortDirection: "desc", Page: p, PageSize: size}, nil)
				require.NoError(t, err)
				for _, item := range page.Items {
					collected = append(collected, item.ID)
				}
				pages = page.Pagination.TotalPages
				if !page.Pagination.HasNext {
					break
				}
			}

			want := make([]int64, len(full.Items))
			for i, item := range full.Items {
				want[i] = item.ID
			}
			assert.Equal(t, want, collected, "sort=%s size=%d", sortField, size)
			assert.Equal(t, (23+size-1)/size, pages, "sort=%s size=%d", sortField, size)
		}
	}
}

func TestListStores_PageBeyondEnd(t *testing.T) {
	f := newFixture(t)
	db.MustStore(t, "Only Shop", "only@example.com", "", 0)

	page, err := f.listing.ListStores(f.ctx, query.Params{Page: 5}, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, domain.Pagination{CurrentPage: 5, PageSize: 10, TotalPages: 1, TotalCount: 1, HasPrev: true}, page.Pagination)
}

func TestListStores_InvalidQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.listing.ListStores(f.ctx, query.Params{SortField: "password"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = f.listing.ListStores(f.ctx, query.Params{Filters: map[string]string{"rating": "4"}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = f.listing.ListUsers(f.ctx, query.Params{SortField: "rating"})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestListUsers_OwnerRatingPerRow(t *testing.T) {
	f := newFixture(t)
	owner := db.MustUser(t, "Olive Owner", "olive@example.com", "", "store_owner")
	lonely := db.MustUser(t, "Lonely Owner", "lonely@example.com", "", "store_owner")
	normal := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	db.MustUser(t, "Adam Admin", "adam@example.com", "", "admin")
	store := db.MustStore(t, "Olive Store", "olive-store@example.com", "", owner)
	db.MustRating(t, normal, store, 2)
	db.MustRating(t, lonely, store, 3)

	page, err := f.listing.ListUsers(f.ctx, query.Params{Filters: map[string]string{"role": "owner"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Lonely Owner", page.Items[0].Name)
	assert.Nil(t, page.Items[0].Rating)
	assert.Equal(t, "Olive Owner", page.Items[1].Name)
	require.NotNil(t, page.Items[1].Rating)
	assert.Equal(t, 2.5, *page.Items[1].Rating)

	page, err = f.listing.ListUsers(f.ctx, query.Params{SortField: "role", Search: "example.com"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Pagination.TotalCount)
	assert.Equal(t, domain.RoleAdmin, page.Items[0].Role)
	assert.Nil(t, page.Items[0].Rating)

	detail, err := f.listing.GetUserDetail(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, page.Items[2].ID, detail.ID)
	require.NotNil(t, detail.Rating)
	assert.Equal(t, 2.5, *detail.Rating)

	_, err = f.listing.GetUserDetail(f.ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOwnerDashboard(t *testing.T) {
	f := newFixture(t)
	owner := db.MustUser(t, "Olive Owner", "olive@example.com", "", "store_owner")
	a := db.MustUser(t, "Alice Normal", "alice@example.com", "", "normal")
	b := db.MustUser(t, "Bob Normal", "bob@example.com", "", "normal")
	store := db.MustStore(t, "Olive Store", "olive-store@example.com", "", owner)

	_, err := f.ratings.SubmitRating(f.ctx, a, store, 5)
	require.NoError(t, err)
	_, err = f.ratings.SubmitRating(f.ctx, b, store, 2)
	require.NoError(t, err)

	dash, err := f.listing.OwnerDashboard(f.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, store, dash.StoreID)
	assert.Equal(t, "Olive Store", dash.StoreName)
	assert.Equal(t, 3.5, dash.AverageRating)
	assert.EqualValues(t, 2, dash.TotalRatings)
	require.Len(t, dash.Ratings, 2)
	assert.Equal(t, "bob@example.com", dash.Ratings[0].UserEmail)
	assert.Equal(t, "Alice Normal", dash.Ratings[1].UserName)

	_, err = f.listing.OwnerDashboard(f.ctx, a)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitRating_RepeatedSubmissionsKeepOneRow(t *testing.T) {
	f := newFixture(t)
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	store := db.MustStore(t, "Corner Shop", "corner@example.com", "", 0)

	values := []int{1, 4, 2, 5, 3}
	var prev SubmitResult
	for i, v := range values {
		res, err := f.ratings.SubmitRating(f.ctx, user, store, v)
		require.NoError(t, err)
		assert.Equal(t, i == 0, res.Created)
		assert.Equal(t, v, res.Rating.Value)
		assert.EqualValues(t, 1, res.Aggregate.Count)
		assert.Equal(t, float64(v), res.Aggregate.Average)
		if i > 0 {
			assert.Equal(t, prev.Rating.CreatedAt, res.Rating.CreatedAt)
			assert.False(t, res.Rating.UpdatedAt.Before(prev.Rating.UpdatedAt))
		}
		prev = res
	}

	assert.Equal(t, 1, db.RatingRows(t, user, store))
	stored, err := f.repo.Ratings.Get(f.ctx, user, store)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Value)
}

func TestSubmitRating_SameValueTwiceIsStable(t *testing.T) {
	f := newFixture(t)
	other := db.MustUser(t, "Other Normal", "other@example.com", "", "normal")
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	store := db.MustStore(t, "Corner Shop", "corner@example.com", "", 0)
	db.MustRating(t, other, store, 2)

	first, err := f.ratings.SubmitRating(f.ctx, user, store, 5)
	require.NoError(t, err)
	second, err := f.ratings.SubmitRating(f.ctx, user, store, 5)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Aggregate, second.Aggregate)
	assert.Equal(t, domain.RatingAggregate{Average: 3.5, Count: 2}, second.Aggregate)
}

func TestSubmitRating_Errors(t *testing.T) {
	f := newFixture(t)
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	for i := 0; i < 7; i++ {
		db.MustStore(t, fmt.Sprintf("Shop %d", i), fmt.Sprintf("shop%d@example.com", i), "", 0)
	}

	_, err := f.ratings.SubmitRating(f.ctx, user, 7, 6)
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
	_, err = f.ratings.SubmitRating(f.ctx, user, 7, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidValue)
	_, err = f.ratings.SubmitRating(f.ctx, user, 999, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, db.RatingRows(t, user, 7))

	_, err = f.ratings.SubmitRating(f.ctx, user, 7, 4)
	require.NoError(t, err)
	_, err = f.ratings.SubmitRating(f.ctx, user, 7, 9)
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	stored, err := f.repo.Ratings.Get(f.ctx, user, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Value, "a failed submission leaves the previous rating untouched")
}

func TestSubmitRating_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	user := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	store := db.MustStore(t, "Corner Shop", "corner@example.com", "", 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for _, v := range []int{3, 5, 3, 5, 3, 5} {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			res, err := f.ratings.SubmitRating(f.ctx, user, store, v)
			if err != nil {
				t.Errorf("submit %d: %v", v, err)
				return
			}
			if res.Created {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(v)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, db.RatingRows(t, user, store))
	agg, err := f.repo.Ratings.StoreAggregate(f.ctx, store)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg.Count)
	assert.Contains(t, []float64{3, 5}, agg.Average)
}

func TestAdmin_CreateUser(t *testing.T) {
	f := newFixture(t)

	user, err := f.admin.CreateUser(f.ctx, CreateUserInput{
		Name:     "  Olive Owner  ",
		Email:    "Olive@Example.com",
		Password: "Secret#12",
		Address:  "1 Elm St",
		Role:     "store_owner",
	})
	require.NoError(t, err)
	assert.Equal(t, "Olive Owner", user.Name)
	assert.Equal(t, "olive@example.com", user.Email)
	assert.Equal(t, domain.RoleStoreOwner, user.Role)

	var hash string
	require.NoError(t, db.Pool.QueryRow(f.ctx, `SELECT password FROM users WHERE id = $1`, user.ID).Scan(&hash))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Secret#12")))

	_, err = f.admin.CreateUser(f.ctx, CreateUserInput{Name: "Olive Again", Email: "olive@example.com", Password: "Secret#12"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	defaulted, err := f.admin.CreateUser(f.ctx, CreateUserInput{Name: "Nora Normal", Email: "nora@example.com", Password: "Secret#12"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNormal, defaulted.Role)

	cases := []CreateUserInput{
		{Name: "No", Email: "x@example.com", Password: "Secret#12"},
		{Name: "Bad Email", Email: "nope", Password: "Secret#12"},
		{Name: "Weak Password", Email: "weak@example.com", Password: "password"},
		{Name: "Bad Role", Email: "role@example.com", Password: "Secret#12", Role: "root"},
	}
	for _, in := range cases {
		_, err := f.admin.CreateUser(f.ctx, in)
		assert.ErrorIs(t, err, domain.ErrInvalidValue, in.Name)
	}
}

func TestAdmin_CreateStoreResolvesOwner(t *testing.T) {
	f := newFixture(t)
	owner := db.MustUser(t, "Olive Owner", "olive@example.com", "", "store_owner")
	db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")

	store, err := f.admin.CreateStore(f.ctx, CreateStoreInput{Name: "Olive Store", Email: "shop@example.com", OwnerEmail: "OLIVE@example.com"})
	require.NoError(t, err)
	require.NotNil(t, store.OwnerID)
	assert.Equal(t, owner, *store.OwnerID)

	_, err = f.admin.CreateStore(f.ctx, CreateStoreInput{Name: "Nora Store", Email: "nora-shop@example.com", OwnerEmail: "nora@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = f.admin.CreateStore(f.ctx, CreateStoreInput{Name: "Ghost Store", Email: "ghost@example.com", OwnerEmail: "ghost@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = f.admin.CreateStore(f.ctx, CreateStoreInput{Name: "Copy Store", Email: "shop@example.com"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	unowned, err := f.admin.CreateStore(f.ctx, CreateStoreInput{Name: "Free Store", Email: "free@example.com"})
	require.NoError(t, err)
	assert.Nil(t, unowned.OwnerID)
}

func TestAdmin_Dashboard(t *testing.T) {
	f := newFixture(t)
	u := db.MustUser(t, "Nora Normal", "nora@example.com", "", "normal")
	db.MustUser(t, "Adam Admin", "adam@example.com", "", "admin")
	s := db.MustStore(t, "Corner Shop", "corner@example.com", "", 0)
	db.MustRating(t, u, s, 4)

	stats, err := f.admin.Dashboard(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, DashboardStats{TotalUsers: 2, TotalStores: 1, TotalRatings: 1}, stats)
}
