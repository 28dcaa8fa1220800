package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Store_Owner ")
	require.NoError(t, err)
	assert.Equal(t, RoleStoreOwner, role)

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestParseRatingValue(t *testing.T) {
	for _, v := range []float64{1, 2, 3, 4, 5} {
		got, err := ParseRatingValue(v)
		require.NoError(t, err)
		assert.Equal(t, int(v), got)
	}
	for _, v := range []float64{0, 6, -1, 3.5, math.NaN(), math.Inf(1), 1e20} {
		_, err := ParseRatingValue(v)
		assert.ErrorIs(t, err, ErrInvalidValue, "value %v", v)
	}
}

func TestValidateRatingValue(t *testing.T) {
	assert.NoError(t, ValidateRatingValue(1))
	assert.NoError(t, ValidateRatingValue(5))
	assert.ErrorIs(t, ValidateRatingValue(0), ErrInvalidValue)
	assert.ErrorIs(t, ValidateRatingValue(6), ErrInvalidValue)
}

func TestNewRatingAggregate(t *testing.T) {
	assert.Equal(t, RatingAggregate{}, NewRatingAggregate(0, 0))
	assert.Equal(t, RatingAggregate{}, NewRatingAggregate(math.NaN(), 0))
	assert.Equal(t, RatingAggregate{Average: 3.7, Count: 3}, NewRatingAggregate(11.0/3.0, 3))
	assert.Equal(t, RatingAggregate{Average: 4.5, Count: 2}, NewRatingAggregate(4.5, 2))
}

func TestRoundToOneDecimal(t *testing.T) {
	tests := []struct {
		value, want float64
	}{
		{0, 0},
		{3.75, 3.8},
		{2.74, 2.7},
		{4.5, 4.5},
		{199.94, 199.9},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundToOneDecimal(tt.value), 1e-9, "round(%v)", tt.value)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(1, 10, 0)
	assert.Equal(t, Pagination{CurrentPage: 1, PageSize: 10}, p)

	p = NewPagination(2, 10, 25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(3, 10, 25)
	assert.False(t, p.HasNext)

	p = NewPagination(1, 5, 5)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}

func TestNewPagination_HugePageSize(t *testing.T) {
	p := NewPagination(1, math.MaxInt64, 5)
	assert.Equal(t, 1, p.TotalPages)
	assert.EqualValues(t, 5, p.TotalCount)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPagination(2, math.MaxInt64, 5)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(1, math.MaxInt64, math.MaxInt64)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Bob"))
	assert.NoError(t, ValidateName(strings.Repeat("x", MaxNameLength)))
	assert.ErrorIs(t, ValidateName("Al"), ErrInvalidValue)
	assert.ErrorIs(t, ValidateName("   ab   "), ErrInvalidValue)
	assert.ErrorIs(t, ValidateName(strings.Repeat("x", MaxNameLength+1)), ErrInvalidValue)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(""))
	assert.NoError(t, ValidateAddress(strings.Repeat("a", MaxAddressLength)))
	assert.ErrorIs(t, ValidateAddress(strings.Repeat("a", MaxAddressLength+1)), ErrInvalidValue)
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Owner@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", got)

	for _, bad := range []string{"", "owner", "Owner <owner@example.com>", "a@@b"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidValue, bad)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Secret#12"))
	assert.ErrorIs(t, ValidatePassword("Sh#1"), ErrInvalidValue)
	assert.ErrorIs(t, ValidatePassword("Way#TooLongPassword1"), ErrInvalidValue)
	assert.ErrorIs(t, ValidatePassword("nouppercase#1"), ErrInvalidValue)
	assert.ErrorIs(t, ValidatePassword("NoSpecial123"), ErrInvalidValue)
}
