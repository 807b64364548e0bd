// Package auth verifies bearer credentials and resolves them to a principal email.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/config"
)

// Verifier turns a bearer credential into a verified email.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Claims is the token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies and issues HS256 tokens carrying an email claim.
type JWTVerifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTVerifier creates a verifier from auth settings.
func NewJWTVerifier(cfg *config.AuthConfig) *JWTVerifier {
	ttl := time.Duration(cfg.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTVerifier{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Verify checks signature, expiry and issuer and returns the email claim.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", apperr.Unauthenticated("missing token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Unauthenticated("token expired")
		}
		return "", apperr.Unauthenticated("invalid token")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return "", apperr.Unauthenticated("email claim missing")
	}
	return email, nil
}

// Issue signs a token for email valid for the configured lifetime.
func (v *JWTVerifier) Issue(email string) (string, error) {
	now := v.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
