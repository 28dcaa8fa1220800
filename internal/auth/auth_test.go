package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

func TestIssuer_SignVerifyRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Sign(Identity{UserID: 42, Role: domain.RoleStoreOwner})
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 42, Role: domain.RoleStoreOwner}, id)
}

func TestIssuer_VerifyRejects(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	good, err := issuer.Sign(Identity{UserID: 1, Role: domain.RoleNormal})
	require.NoError(t, err)

	other := NewIssuer("other-secret", time.Minute)
	forged, err := other.Sign(Identity{UserID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)

	expired := NewIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, err := expired.Sign(Identity{UserID: 1, Role: domain.RoleNormal})
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Role: "root"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1, Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"forged":    forged,
		"expired":   stale,
		"bad role":  badRole,
		"none alg":  noneAlg,
		"garbage":   "not-a-token",
		"truncated": good[:len(good)-4],
	} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestMiddlewareAndRequireRole(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	var seen Identity
	handler := Middleware(issuer, zap.NewNop())(RequireRole(domain.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	admin, err := issuer.Sign(Identity{UserID: 7, Role: domain.RoleAdmin})
	require.NoError(t, err)
	normal, err := issuer.Sign(Identity{UserID: 8, Role: domain.RoleNormal})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + normal, http.StatusForbidden},
		{"admin", "bearer " + admin, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusNoContent {
				assert.Contains(t, rec.Body.String(), `"code"`)
			}
		})
	}
	assert.Equal(t, Identity{UserID: 7, Role: domain.RoleAdmin}, seen)
}
