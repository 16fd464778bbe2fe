package jwtinfra

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "verification-api"

// Claims holds the admin token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 admin JWTs.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewProvider(secret []byte, expiry time.Duration) (*Provider, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return &Provider{secret: secret, expiry: expiry, now: time.Now}, nil
}

// Sign issues a token for subject and returns it with its expiry.
func (p *Provider) Sign(subject, role string) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(p.expiry)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
