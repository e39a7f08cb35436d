// Package token issues and verifies the bearer session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// sessionClaims is the wire form: {sub, id, type, jti, iat, exp}.
type sessionClaims struct {
	UserID   string `json:"id"`
	UserType int    `json:"type"`
	jwt.RegisteredClaims
}

// JWTIssuer implements ports.TokenIssuer with HMAC-signed JWTs.
type JWTIssuer struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

type Option func(*JWTIssuer)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) Option {
	return func(i *JWTIssuer) { i.now = now }
}

// NewJWTIssuer returns an issuer for one of HS256, HS384 or HS512.
func NewJWTIssuer(secret, algorithm string, opts ...Option) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", algorithm)
	}

	i := &JWTIssuer{secret: []byte(secret), method: method, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs claims with an absolute expiry of now+ttl. The returned claims
// carry the generated token id and timestamps as encoded.
func (i *JWTIssuer) Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error) {
	now := i.now()
	sc := sessionClaims{
		UserID:   claims.UserID,
		UserType: int(claims.UserType.Normalize()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(i.method, sc).SignedString(i.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, toDomain(sc), nil
}

func (i *JWTIssuer) Verify(tokenStr string) (domain.Claims, error) {
	var sc sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &sc,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, domain.ErrTokenExpired
		}
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if sc.Subject == "" || sc.UserID == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing identity claims", domain.ErrTokenInvalid)
	}
	return toDomain(sc), nil
}

func toDomain(sc sessionClaims) domain.Claims {
	c := domain.Claims{
		Subject:  sc.Subject,
		UserID:   sc.UserID,
		UserType: domain.UserType(sc.UserType).Normalize(),
		TokenID:  sc.ID,
	}
	if sc.IssuedAt != nil {
		c.IssuedAt = sc.IssuedAt.Time
	}
	if sc.ExpiresAt != nil {
		c.ExpiresAt = sc.ExpiresAt.Time
	}
	return c
}
