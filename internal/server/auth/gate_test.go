package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Authenticate(t *testing.T) {
	g := NewGate("gate-secret")
	tok, err := GenerateToken(alice, []byte("gate-secret"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		credential string
		wantErr    bool
	}{
		{name: "bare token", credential: tok},
		{name: "bearer scheme", credential: "Bearer " + tok},
		{name: "lowercase scheme", credential: "bearer " + tok},
		{name: "empty", credential: "", wantErr: true},
		{name: "scheme only", credential: "Bearer ", wantErr: true},
		{name: "garbage", credential: "Bearer abc.def.ghi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := g.Authenticate(tt.credential)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, alice, id)
		})
	}
}

func TestGate_ExpiredToken(t *testing.T) {
	g := NewGate("s")
	tok, err := GenerateToken(alice, []byte("s"), -time.Minute)
	require.NoError(t, err)

	_, err = g.Authenticate(tok)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), alice)
	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Secr3t!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Secr3t!pass", hash)

	assert.True(t, ComparePassword(hash, "Secr3t!pass"))
	assert.False(t, ComparePassword(hash, "wrong"))
	assert.False(t, ComparePassword("not-a-hash", "Secr3t!pass"))
}
