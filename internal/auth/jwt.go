// Package auth verifies the bearer tokens minted by the identity provider.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"groupgames-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the user profile alongside the registered claims. The subject
// is the user id.
type Claims struct {
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	jwt.RegisteredClaims
}

// User converts the claims into the profile upserted on every request.
func (c *Claims) User() models.User {
	return models.User{
		ID:              c.Subject,
		Email:           optional(c.Email),
		FirstName:       optional(c.FirstName),
		LastName:        optional(c.LastName),
		ProfileImageURL: optional(c.ProfileImageURL),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Verifier signs and parses HS256 tokens with a shared secret.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// CreateToken signs a token for the given profile. Used by tooling and tests;
// production tokens come from the identity provider.
func (v *Verifier) CreateToken(user models.User) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}
	if user.FirstName != nil {
		claims.FirstName = *user.FirstName
	}
	if user.LastName != nil {
		claims.LastName = *user.LastName
	}
	if user.ProfileImageURL != nil {
		claims.ProfileImageURL = *user.ProfileImageURL
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(v.secret)
}

// ParseToken validates signature, algorithm and expiry.
func (v *Verifier) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
