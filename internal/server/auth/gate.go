package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

const bearerPrefix = "bearer "

// Gate verifies credentials presented on either transport.
type Gate struct {
	secret []byte
}

// NewGate returns a Gate that accepts tokens signed with secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authenticate accepts "Bearer <token>" or a bare token and returns the
// identity it names. Missing, malformed, wrongly signed and expired
// credentials all fail with common.ErrUnauthenticated.
func (g *Gate) Authenticate(credential string) (Identity, error) {
	token := strings.TrimSpace(credential)
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = strings.TrimSpace(token[len(bearerPrefix):])
	}
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", common.ErrUnauthenticated)
	}
	return ParseToken(token, g.secret)
}
