// Package config loads runtime configuration for the gophchat terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the request API (gRPC)
//	-w string   URL of the live channel, e.g. ws://127.0.0.1:8080/ws
//	-t int      per-request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "live_url": "ws://127.0.0.1:8080/ws",
//	  "request_timeout": "5s"
//	}
package config
