// Package auth verifies the bearer tokens issued by the auth service.
// Issuing real tokens is that service's job; Issuer exists for local
// tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/shared/apperr"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is what the core needs from a verified credential. RawToken is
// kept so it can be forwarded to downstream services.
type Claims struct {
	UserID   uint64
	Email    string
	IsAdmin  bool
	RawToken string
}

type tokenClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return parts[1], nil
}

func (v *Verifier) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, apperr.UnauthorizedErr("Missing bearer token.").WithCause(ErrMissingToken)
	}

	var tc tokenClaims
	_, err := v.parser.ParseWithClaims(raw, &tc, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, apperr.UnauthorizedErr("Invalid token.").WithCause(fmt.Errorf("%w: %v", ErrInvalidToken, err))
	}

	uid, err := strconv.ParseUint(tc.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Claims{}, apperr.UnauthorizedErr("Invalid token.").WithCause(fmt.Errorf("%w: bad subject %q", ErrInvalidToken, tc.Subject))
	}

	return Claims{
		UserID:   uid,
		Email:    tc.Email,
		IsAdmin:  tc.IsAdmin,
		RawToken: raw,
	}, nil
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID uint64, email string, isAdmin bool) (string, error) {
	now := i.now()
	tc := tokenClaims{
		Email:   email,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(i.secret)
}
