package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	JWTSecret string // HS256 signing secret for session tokens

	OverlayDir   string        // directory for per-user favorite overlay files
	SessionTTL   time.Duration // idle time before a session is reaped (default: 30m)
	ReapInterval time.Duration // interval between reaper sweeps (default: 5m)

	ImportFile     string        // path to a bookmarks.yaml import file (optional, empty = import disabled)
	ImportOwner    string        // owner id the imported records belong to
	ImportInterval time.Duration // interval to re-read the import file (default: 24h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	CORSOrigins []string // browser origins allowed to call the API
	TrustProxy  bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKIT_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKIT_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKIT_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKIT_PRETTY_LOG", true),

		// Auth
		JWTSecret: requireEnv("MARKIT_JWT_SECRET"),

		// Sessions
		OverlayDir:   getenv("MARKIT_OVERLAY_DIR", "/app/data/overlays"),
		SessionTTL:   mustDuration("MARKIT_SESSION_TTL", 30*time.Minute),
		ReapInterval: mustDuration("MARKIT_REAP_INTERVAL", 5*time.Minute),

		// Import
		ImportFile:     getenv("MARKIT_IMPORT_FILE", ""), // Optional, empty = import disabled
		ImportOwner:    getenv("MARKIT_IMPORT_OWNER", ""),
		ImportInterval: mustDuration("MARKIT_IMPORT_INTERVAL", 24*time.Hour),

		// Redis settings
		RedisAddr:             requireEnv("MARKIT_REDIS_ADDR"),
		RedisUser:             getenv("MARKIT_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MARKIT_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("MARKIT_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("MARKIT_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access
		CORSOrigins: splitAndTrim(getenv("MARKIT_CORS_ORIGINS", "*")),
		TrustProxy:  mustBool("MARKIT_TRUST_PROXY", true),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: MARKIT_REDIS_PASSWORD is required when MARKIT_REDIS_PASSWORD_REQUIRED=true")
	}

	// An import file without an owner has nowhere to put its records
	if cfg.ImportFile != "" && cfg.ImportOwner == "" {
		panic("❌ FATAL: MARKIT_IMPORT_OWNER is required when MARKIT_IMPORT_FILE is set")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.JWTSecret = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
