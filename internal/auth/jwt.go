// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/studentshelf/internal/config"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
)

const (
	claimRole  = "role"
	claimEmail = "email"
	claimUse   = "token_use"

	useAccess = "access"

	clockSkew = 30 * time.Second
)

type AccessTokenClaims struct {
	UserID string
	Role   string
	Email  string
}

// TokenManager signs and verifies ES256 access tokens and publishes the
// public key as a JWKS document.
type TokenManager struct {
	signingKey jwk.Key
	verifyKey  jwk.Key
	kid        string
	jwksBody   []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) (*TokenManager, error) {
	signingKey, kid, err := loadSigningKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}

	verifyKey, err := signingKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive verification key: %w", err)
	}

	set := jwk.NewSet()
	if err := set.AddKey(verifyKey); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}
	jwksBody, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode jwks: %w", err)
	}

	return &TokenManager{
		signingKey: signingKey,
		verifyKey:  verifyKey,
		kid:        kid,
		jwksBody:   jwksBody,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.AccessTokenExpire,
		now:        time.Now,
	}, nil
}

func (m *TokenManager) IssueAccessToken(claims AccessTokenClaims) (string, error) {
	issued := m.now()

	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(m.issuer).
		Audience([]string{m.audience}).
		Subject(claims.UserID).
		IssuedAt(issued).
		NotBefore(issued).
		Expiration(issued.Add(m.ttl)).
		Claim(claimRole, claims.Role).
		Claim(claimEmail, claims.Email).
		Claim(claimUse, useAccess).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), m.signingKey))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return string(signed), nil
}

// VerifyAccessToken checks signature, issuer, audience, lifetime and the
// presence of every claim the middleware relies on.
func (m *TokenManager) VerifyAccessToken(
	_ context.Context,
	raw string,
) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.ES256(), m.verifyKey),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithClock(jwt.ClockFunc(m.now)),
		jwt.WithAcceptableSkew(clockSkew),
		jwt.WithRequiredClaim(claimRole),
		jwt.WithRequiredClaim(claimEmail),
		jwt.WithRequiredClaim(claimUse),
	)
	if errors.Is(err, jwt.TokenExpiredError()) {
		return nil, fmt.Errorf("verify access token: %w", core.ErrTokenExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", core.ErrTokenInvalid)
	}

	var use, role, email string
	for name, dst := range map[string]*string{claimUse: &use, claimRole: &role, claimEmail: &email} {
		if err := token.Get(name, dst); err != nil {
			return nil, fmt.Errorf("verify access token: claim %s: %w", name, core.ErrTokenInvalid)
		}
	}
	if use != useAccess {
		return nil, fmt.Errorf("verify access token: token_use %q: %w", use, core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify access token: no subject: %w", core.ErrTokenInvalid)
	}

	return &middleware.AccessTokenClaims{UserID: subject, Role: role, Email: email}, nil
}

// JWKSHandler serves the public key set. The body is fixed for the life of
// the process, so the kid doubles as its ETag.
func (m *TokenManager) JWKSHandler() http.HandlerFunc {
	etag := strconv.Quote(m.kid)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // client went away
		_, _ = w.Write(m.jwksBody)
	}
}

func (m *TokenManager) KeyID() string {
	return m.kid
}

// ExpiresIn is the lifetime stamped on every access token.
func (m *TokenManager) ExpiresIn() time.Duration {
	return m.ttl
}
