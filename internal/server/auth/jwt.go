// Package auth implements the session gate: issuing and verifying access
// tokens, carrying the verified identity on a context, and password hashing.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload: the registered claims plus the user's id, name
// and email.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// ErrTokenExpired is returned (wrapped in common.ErrUnauthenticated) for a
// well-formed token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// GenerateToken signs an HS256 token for id that expires after validityDuration.
func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: id.UserID,
		Name:   id.Name,
		Email:  id.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
// Every failure wraps common.ErrUnauthenticated.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %w", common.ErrUnauthenticated, ErrTokenExpired)
		}
		return Identity{}, fmt.Errorf("%w: invalid token", common.ErrUnauthenticated)
	}

	if !token.Valid || claims.UserID <= 0 {
		return Identity{}, fmt.Errorf("%w: invalid token", common.ErrUnauthenticated)
	}

	return Identity{UserID: claims.UserID, Name: claims.Name, Email: claims.Email}, nil
}
