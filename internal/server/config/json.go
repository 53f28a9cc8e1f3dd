package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/flagx"
	"github.com/dmitrijs2005/gophchat/internal/timex"
)

// JsonConfig is the DTO read from the JSON config file. Durations accept
// both strings such as "15m" and integer nanoseconds. Fields that are absent
// from the file keep the value from the previous layers.
type JsonConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	StorageBackend              *string         `json:"storage_backend"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	RateLimitWindow             *timex.Duration `json:"rate_limit_window"`
	RateLimitMaxRequests        *int            `json:"rate_limit_max_requests"`
	AllowedOrigins              []string        `json:"allowed_origins"`
	SendBufferSize              *int            `json:"send_buffer_size"`
	LogLevel                    *string         `json:"log_level"`
}

// parseJson loads the file named by -c / -config into config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.RateLimitMaxRequests != nil {
		config.RateLimitMaxRequests = *c.RateLimitMaxRequests
	}
	if c.SendBufferSize != nil {
		config.SendBufferSize = *c.SendBufferSize
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
