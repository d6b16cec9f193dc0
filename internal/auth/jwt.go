package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned for tokens whose exp is not in the future.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenSignature is returned when the signature or algorithm does not verify.
	ErrTokenSignature = errors.New("invalid token signature")
	// ErrTokenMalformed covers undecodable tokens and missing required claims.
	ErrTokenMalformed = errors.New("malformed token")
)

// Claims is the claim set of an access token.
type Claims struct {
	Sub      subjectClaim  `json:"sub"`
	LegacyID *subjectClaim `json:"id,omitempty"`
	Name     string        `json:"name,omitempty"`
	Roles    []string      `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Identity resolves the resident behind the token. Older tokens carried the
// resident id in a top-level "id" claim instead of "sub".
func (c *Claims) Identity() (Identity, bool) {
	sub := c.Sub
	if !sub.set && c.LegacyID != nil {
		sub = *c.LegacyID
	}
	if !sub.set {
		return Identity{}, false
	}
	name := sub.name
	if name == "" {
		name = c.Name
	}
	return Identity{ResidentID: sub.id, Name: name}, true
}

// JWTManager signs and verifies HS256 tokens with a shared secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager builds the manager with the configured secret and lifetime.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the manager reading time from now.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	cp := *m
	cp.now = now
	return &cp
}

// TTL exposes the token lifetime.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// GenerateAccessToken signs a token for the resident.
func (m *JWTManager) GenerateAccessToken(id Identity, roles []string) (string, time.Time, error) {
	if id.ResidentID <= 0 {
		return "", time.Time{}, errors.New("resident id required")
	}

	now := m.now().UTC()
	expires := now.Add(m.ttl)

	claims := Claims{
		Sub:   subjectClaim{id: id.ResidentID, set: true},
		Name:  id.Name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseAndValidate verifies signature and expiry and resolves the identity.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, Identity{}, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, Identity{}, ErrTokenMalformed
	}

	identity, ok := claims.Identity()
	if !ok {
		return nil, Identity{}, fmt.Errorf("%w: subject missing", ErrTokenMalformed)
	}

	return claims, identity, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
