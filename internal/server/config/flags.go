package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address for /ws and /metrics (e.g., ":8080")
//	-b string   storage backend: postgres or memory
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-o string   comma separated WebSocket origins
//	-l string   log level
//
// Only the flags above are picked out of os.Args (see flagx.FilterArgs), so
// -c/-config and unknown flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-b", "-d", "-s", "-t", "-o", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "address and port to run HTTP/WebSocket server")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend (postgres|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed WebSocket origins, comma separated")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.AllowedOrigins = splitList(*origins)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
