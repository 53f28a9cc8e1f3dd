package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-w", "127.0.0.1:9091", "-b", "memory", "-d", "db", "-s", "secret",
			"-t", "5", "-o", "https://a.example, https://b.example", "-l", "debug",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				EndpointAddrHTTP:            "127.0.0.1:9091",
				StorageBackend:              "memory",
				DatabaseDSN:                 "db",
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 5 * time.Minute,
				AllowedOrigins:              []string{"https://a.example", "https://b.example"},
				LogLevel:                    "debug",
			}},
		{name: "config file flag is ignored", args: []string{"cmd", "-c", "conf.json", "-s", "k"},
			expected: &Config{SecretKey: "k"}},
		{name: "non-numeric token lifetime", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			config := &Config{}
			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
