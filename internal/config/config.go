// Package config parses wakegate process configuration from environment
// variables and command-line flags. The domain registry itself lives in a
// separate JSON document handled by the registry package.
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process-level settings for the gateway.
type Config struct {
	ListenAddr    string
	DBPath        string
	RegistryPath  string
	AdminSecret   string
	SessionSecret string
	TestingHost   string
	LogLevel      string
	ProxyTimeout  time.Duration
	SessionTTL    time.Duration
	WakeBroadcast string
	WatchRegistry bool
	PprofAddr     string
}

const defaultListenAddr = ":8080"
const defaultDBPath = "./wakegate.db"
const defaultRegistryPath = "./config/domains.json"
const defaultTestingHost = "127.0.0.1"
const defaultProxyTimeout = 30 * time.Second
const defaultSessionTTL = 24 * time.Hour
const defaultWakeBroadcast = "255.255.255.255:9"

// ParseFlags builds a [Config] from environment defaults overridden by flags
// and validates it.
func ParseFlags(args []string) (Config, error) {
	cfg := Config{
		ListenAddr:    envOrDefault("WAKEGATE_LISTEN", defaultListenAddr),
		DBPath:        envOrDefault("WAKEGATE_DB_PATH", defaultDBPath),
		RegistryPath:  envOrDefault("WAKEGATE_CONFIG_PATH", defaultRegistryPath),
		AdminSecret:   envOrDefault("WAKEGATE_ADMIN_SECRET", ""),
		SessionSecret: envOrDefault("WAKEGATE_SESSION_SECRET", ""),
		TestingHost:   envOrDefault("WAKEGATE_TESTING_HOST", defaultTestingHost),
		LogLevel:      envOrDefault("WAKEGATE_LOG_LEVEL", "info"),
		ProxyTimeout:  envDurationOrDefault("WAKEGATE_PROXY_TIMEOUT", defaultProxyTimeout),
		SessionTTL:    envDurationOrDefault("WAKEGATE_SESSION_TTL", defaultSessionTTL),
		WakeBroadcast: envOrDefault("WAKEGATE_WAKE_BROADCAST", defaultWakeBroadcast),
		WatchRegistry: envBoolOrDefault("WAKEGATE_WATCH_CONFIG", true),
		PprofAddr:     envOrDefault("WAKEGATE_PPROF_ADDR", ""),
	}

	fs := flag.NewFlagSet("wakegate", flag.ContinueOnError)
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.RegistryPath, "config", cfg.RegistryPath, "Domain registry JSON path")
	fs.StringVar(&cfg.AdminSecret, "admin-secret", cfg.AdminSecret, "Shared secret for admin routes")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "Session token signing secret")
	fs.StringVar(&cfg.TestingHost, "testing-host", cfg.TestingHost, "Host reaching the testing backends")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error")
	fs.DurationVar(&cfg.ProxyTimeout, "proxy-timeout", cfg.ProxyTimeout, "Outbound reverse-proxy request timeout")
	fs.StringVar(&cfg.WakeBroadcast, "wake-broadcast", cfg.WakeBroadcast, "Wake-on-LAN broadcast address")
	fs.BoolVar(&cfg.WatchRegistry, "watch-config", cfg.WatchRegistry, "Reload registry on file change")
	fs.StringVar(&cfg.PprofAddr, "pprof", cfg.PprofAddr, "Optional pprof listen address (empty disables)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.RegistryPath) == "" {
		return cfg, errors.New("missing --config or WAKEGATE_CONFIG_PATH")
	}
	if strings.TrimSpace(cfg.AdminSecret) == "" {
		return cfg, errors.New("missing --admin-secret or WAKEGATE_ADMIN_SECRET")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return cfg, errors.New("missing --session-secret or WAKEGATE_SESSION_SECRET")
	}
	if cfg.ProxyTimeout <= 0 {
		return cfg, errors.New("proxy timeout must be > 0")
	}
	if cfg.SessionTTL <= 0 {
		return cfg, errors.New("session ttl must be > 0")
	}
	if strings.TrimSpace(cfg.TestingHost) == "" {
		return cfg, errors.New("testing host must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBoolOrDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
