// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type fakeUsers map[string]*UserInfo

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	for _, u := range f {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	u, ok := f[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

type stubIssuer struct {
	last AccessTokenClaims
}

func (s *stubIssuer) IssueAccessToken(c AccessTokenClaims) (string, error) {
	s.last = c
	return "signed-" + c.UserID, nil
}

func (s *stubIssuer) ExpiresIn() time.Duration { return 10 * time.Minute }

func TestLogin(t *testing.T) {
	hash, err := core.HashPassword("correct horse")
	require.NoError(t, err)

	users := fakeUsers{"u1": {
		ID:           "u1",
		Email:        "ana@campus.edu",
		Name:         "Ana",
		PasswordHash: hash,
		Role:         "user",
	}}
	issuer := &stubIssuer{}
	svc := NewService(issuer, users)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, LoginRequest{Email: " ANA@campus.edu", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "signed-u1", resp.Tokens.AccessToken)
		assert.Equal(t, 600, resp.Tokens.ExpiresIn)
		assert.Equal(t, "ana@campus.edu", issuer.last.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "ana@campus.edu", Password: "wrong horse"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginRequest{Email: "nobody@campus.edu", Password: "whatever1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("current user", func(t *testing.T) {
		me, err := svc.GetCurrentUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", me.Name)

		_, err = svc.GetCurrentUser(ctx, "")
		assert.ErrorIs(t, err, core.ErrUnauthorized)
	})
}
