// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/studentshelf/internal/config"
	"github.com/carterperez-dev/studentshelf/internal/core"
)

func writeTestKeys(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	require.NoError(t, GenerateKeyPair(priv, filepath.Join(dir, "public.pem")))
	return priv
}

func newTestManager(t *testing.T, privateKeyPath, audience string) *TokenManager {
	t.Helper()

	m, err := NewTokenManager(config.JWTConfig{
		PrivateKeyPath:    privateKeyPath,
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "studentshelf",
		Audience:          audience,
	})
	require.NoError(t, err)
	return m
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(t, writeTestKeys(t), "studentshelf-api")

	token, err := m.IssueAccessToken(AccessTokenClaims{
		UserID: "user-1",
		Role:   "admin",
		Email:  "ops@example.com",
	})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, 15*time.Minute, m.ExpiresIn())
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	m := newTestManager(t, writeTestKeys(t), "studentshelf-api")
	other := newTestManager(t, writeTestKeys(t), "studentshelf-api")

	token, err := other.IssueAccessToken(AccessTokenClaims{UserID: "u", Role: "user", Email: "a@b.co"})
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = m.VerifyAccessToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	key := writeTestKeys(t)
	issuer := newTestManager(t, key, "studentshelf-api")
	token, err := issuer.IssueAccessToken(AccessTokenClaims{UserID: "u", Role: "user", Email: "a@b.co"})
	require.NoError(t, err)

	_, err = newTestManager(t, key, "someone-else").VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyReportsExpiry(t *testing.T) {
	m := newTestManager(t, writeTestKeys(t), "studentshelf-api")

	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.IssueAccessToken(AccessTokenClaims{UserID: "u", Role: "user", Email: "a@b.co"})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(15*time.Minute + clockSkew/2) }
	_, err = m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = m.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestKeyIDIsStableAcrossReplicas(t *testing.T) {
	key := writeTestKeys(t)

	a := newTestManager(t, key, "studentshelf-api")
	b := newTestManager(t, key, "studentshelf-api")
	assert.Equal(t, a.KeyID(), b.KeyID())
	assert.Len(t, a.KeyID(), keyIDLen)

	other := newTestManager(t, writeTestKeys(t), "studentshelf-api")
	assert.NotEqual(t, a.KeyID(), other.KeyID())
}

func TestJWKSHandler(t *testing.T) {
	m := newTestManager(t, writeTestKeys(t), "studentshelf-api")
	handler := m.JWKSHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), m.KeyID())
	assert.NotContains(t, rec.Body.String(), `"d":`)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	req.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}
