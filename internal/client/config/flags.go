package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
)

// parseFlags populates cfg from -a, -w and -t. Other arguments are filtered
// out with flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the request API")
	fs.StringVar(&cfg.LiveURL, "w", cfg.LiveURL, "live channel URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
