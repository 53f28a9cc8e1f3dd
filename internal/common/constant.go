// Package common contains shared constants and sentinel errors used across
// gophchat components.
package common

// AccessTokenHeaderName is the gRPC metadata key and WebSocket query parameter
// used to carry the access token.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName carries a "Bearer <token>" credential.
const AuthorizationHeaderName = "authorization"

// Pagination defaults applied when a request omits page or page size.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
