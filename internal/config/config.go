// Package config loads client configuration from flags, the environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport selects which backend adapter is used
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportGRPC Transport = "grpc"
)

// Config holds the client configuration
type Config struct {
	// Transport is "http" (REST backend) or "grpc"
	Transport Transport `mapstructure:"MYBANK_API_TRANSPORT"`
	// APIBaseURL is the REST backend root, e.g. http://localhost:8080
	APIBaseURL string `mapstructure:"MYBANK_API_BASE_URL"`
	// GRPCAddr is the gRPC backend address, e.g. localhost:9090
	GRPCAddr string `mapstructure:"MYBANK_GRPC_ADDR"`
	// GRPCTLS enables transport security on the gRPC connection
	GRPCTLS bool `mapstructure:"MYBANK_GRPC_TLS"`
	// HTTPTimeout bounds each read-only lookup
	HTTPTimeout time.Duration `mapstructure:"MYBANK_HTTP_TIMEOUT"`
	// SubmitTimeout bounds the single mutating call
	SubmitTimeout time.Duration `mapstructure:"MYBANK_SUBMIT_TIMEOUT"`
	// SessionFile is where the login session is stored
	SessionFile string `mapstructure:"MYBANK_SESSION_FILE"`
	LogLevel    string `mapstructure:"MYBANK_LOG_LEVEL"`
	LogFormat   string `mapstructure:"MYBANK_LOG_FORMAT"`
	// BreakerMaxFailures consecutive lookup failures open the circuit breaker
	BreakerMaxFailures uint32 `mapstructure:"MYBANK_BREAKER_MAX_FAILURES"`
	// BreakerOpenTimeout is how long the breaker stays open before a trial request
	BreakerOpenTimeout time.Duration `mapstructure:"MYBANK_BREAKER_OPEN_TIMEOUT"`
}

// flagKeys maps command-line flags to their configuration keys
var flagKeys = map[string]string{
	"transport":    "MYBANK_API_TRANSPORT",
	"api-url":      "MYBANK_API_BASE_URL",
	"grpc-addr":    "MYBANK_GRPC_ADDR",
	"session-file": "MYBANK_SESSION_FILE",
	"log-level":    "MYBANK_LOG_LEVEL",
	"log-format":   "MYBANK_LOG_FORMAT",
}

// RegisterFlags adds the global flags that override configuration keys
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("transport", "", "backend transport: http or grpc")
	fs.String("api-url", "", "REST backend base URL")
	fs.String("grpc-addr", "", "gRPC backend address")
	fs.String("session-file", "", "path of the session file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json, console)")
}

// Load reads .env (if present), then the environment, then any flags set on fs, and validates the result.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("MYBANK_API_TRANSPORT", string(TransportHTTP))
	v.SetDefault("MYBANK_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("MYBANK_GRPC_ADDR", "localhost:9090")
	v.SetDefault("MYBANK_GRPC_TLS", false)
	v.SetDefault("MYBANK_HTTP_TIMEOUT", "30s")
	v.SetDefault("MYBANK_SUBMIT_TIMEOUT", "60s")
	v.SetDefault("MYBANK_SESSION_FILE", defaultSessionFile())
	v.SetDefault("MYBANK_LOG_LEVEL", "info")
	v.SetDefault("MYBANK_LOG_FORMAT", "console")
	v.SetDefault("MYBANK_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("MYBANK_BREAKER_OPEN_TIMEOUT", "30s")

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Transport = Transport(strings.ToLower(strings.TrimSpace(string(cfg.Transport))))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP:
		if c.APIBaseURL == "" {
			return errors.New("config: MYBANK_API_BASE_URL must be set for the http transport")
		}
	case TransportGRPC:
		if c.GRPCAddr == "" {
			return errors.New("config: MYBANK_GRPC_ADDR must be set for the grpc transport")
		}
	default:
		return fmt.Errorf("config: MYBANK_API_TRANSPORT must be http or grpc, got %q", c.Transport)
	}

	if c.HTTPTimeout <= 0 {
		return errors.New("config: MYBANK_HTTP_TIMEOUT must be positive")
	}
	if c.SubmitTimeout <= 0 {
		return errors.New("config: MYBANK_SUBMIT_TIMEOUT must be positive")
	}
	if c.SessionFile == "" {
		return errors.New("config: MYBANK_SESSION_FILE must be set")
	}
	if c.BreakerMaxFailures == 0 {
		return errors.New("config: MYBANK_BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".mybank-session.json"
	}
	return filepath.Join(home, ".mybank", "session.json")
}
