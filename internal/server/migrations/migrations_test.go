package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(Migrations, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 2)

	for _, name := range files {
		b, err := fs.ReadFile(Migrations, name)
		require.NoError(t, err)
		body := string(b)
		assert.True(t, strings.Contains(body, "-- +goose Up"), name)
		assert.True(t, strings.Contains(body, "-- +goose Down"), name)
	}
}
