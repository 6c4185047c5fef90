package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(secret)
	token, err := issuer.Issue("user-1", true)
	require.NoError(t, err)

	v := Verify(token, []byte(secret))
	require.True(t, v.Valid(), v.Reason)
	assert.Equal(t, "user-1", v.Claims.UserID)
	assert.True(t, v.Claims.IsAdmin)
	assert.Equal(t, TokenTTL, v.Claims.ExpiresAt.Sub(v.Claims.IssuedAt.Time))
}

func TestVerifyRejects(t *testing.T) {
	issuer := NewIssuer(secret)
	good, err := issuer.Issue("user-1", true)
	require.NoError(t, err)

	expiredIssuer := NewIssuer(secret)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredIssuer.Issue("user-1", true)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           "user-1",
		IsAdmin:          true,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           "user-1",
		IsAdmin:          true,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
		reason string
	}{
		{"empty", "", secret, "missing token"},
		{"garbage", "not.a.token", secret, "malformed token"},
		{"wrong secret", good, "other-secret", "invalid signature"},
		{"expired", expired, secret, "token expired"},
		{"hs512", hs512, secret, "invalid signature"},
		{"alg none", none, secret, "invalid signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Verify(tt.token, []byte(tt.secret))
			assert.False(t, v.Valid())
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	ok, err := ComparePassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePassword(hash, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ComparePassword("not-a-bcrypt-hash", "hunter2")
	assert.Error(t, err)
}

func TestPublicRoutes(t *testing.T) {
	allow := PublicRoutes("/api/v1")

	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodGet, "/api/v1/products", true},
		{http.MethodGet, "/api/v1/products/get/featured/3", true},
		{http.MethodOptions, "/api/v1/categories/abc", true},
		{http.MethodGet, "/public/uploads/phone-1700000000000.png", true},
		{http.MethodPost, "/api/v1/users/login", true},
		{http.MethodPost, "/api/v1/users/register", true},
		{http.MethodPost, "/api/v1/products", false},
		{http.MethodDelete, "/api/v1/categories/abc", false},
		{http.MethodGet, "/api/v1/orders", false},
		{http.MethodGet, "/api/v1/users", false},
		{http.MethodGet, "/api/v1/users/login", false},
		{http.MethodPost, "/api/v1/users/login/extra", false},
		{http.MethodGet, "/other/api/v1/products", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, allow.Allows(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestPublicRoutesAtRoot(t *testing.T) {
	allow := PublicRoutes("")

	assert.True(t, allow.Allows(http.MethodGet, "/products/abc"))
	assert.True(t, allow.Allows(http.MethodPost, "/users/login"))
	assert.False(t, allow.Allows(http.MethodGet, "/orders"))
	assert.False(t, allow.Allows(http.MethodPost, "/products"))
}

func TestGateDecide(t *testing.T) {
	issuer := NewIssuer(secret)
	admin, err := issuer.Issue("admin-1", true)
	require.NoError(t, err)
	customer, err := issuer.Issue("user-1", false)
	require.NoError(t, err)

	gate := NewGate(PublicRoutes("/api/v1"), secret)

	request := func(method, path, token string) *http.Request {
		r := httptest.NewRequest(method, path, nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return r
	}

	assert.Equal(t, Bypass, gate.Decide(request(http.MethodGet, "/api/v1/products", "")).Outcome)
	assert.Equal(t, Bypass, gate.Decide(request(http.MethodGet, "/api/v1/products", "garbage")).Outcome)
	assert.Equal(t, Unauthenticated, gate.Decide(request(http.MethodGet, "/api/v1/orders", "")).Outcome)
	assert.Equal(t, Unauthenticated, gate.Decide(request(http.MethodGet, "/api/v1/orders", "garbage")).Outcome)
	assert.Equal(t, Forbidden, gate.Decide(request(http.MethodGet, "/api/v1/orders", customer)).Outcome)

	d := gate.Decide(request(http.MethodGet, "/api/v1/orders", admin))
	require.Equal(t, Admitted, d.Outcome)
	assert.Equal(t, "admin-1", d.Claims.UserID)
}

func TestGateIntercept(t *testing.T) {
	issuer := NewIssuer(secret)
	admin, err := issuer.Issue("admin-1", true)
	require.NoError(t, err)
	customer, err := issuer.Issue("user-1", false)
	require.NoError(t, err)

	gate := NewGate(PublicRoutes("/api/v1"), secret)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	res := gate.Intercept(r, http.Header{})
	require.NotNil(t, res.Response)
	assert.Equal(t, http.StatusUnauthorized, res.Response.Status)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	r.Header.Set("Authorization", "Bearer "+customer)
	res = gate.Intercept(r, http.Header{})
	require.NotNil(t, res.Response)
	assert.Equal(t, http.StatusForbidden, res.Response.Status)

	r = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	r.Header.Set("Authorization", "bearer "+admin)
	res = gate.Intercept(r, http.Header{})
	require.Nil(t, res.Response)
	claims, ok := ClaimsFrom(res.Request.Context())
	require.True(t, ok)
	assert.Equal(t, "admin-1", claims.UserID)
}
