package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per request, must cover a full extraction
	Environment     string        // "development" | "production"

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Persistence
	StorageBackend string // "redis" | "sqlite" | "memory"
	SQLitePath     string // ex: "./linkdex.db"

	// Cache
	CacheBackend string        // "memory" | "redis"
	CacheTTL     time.Duration // ex: 10m
	CacheSize    int           // max entries of the in-process cache

	// Extraction
	UserAgent         string        // UA sent on every scrape
	FetchTimeout      time.Duration // per network round trip
	MaxCanonicalDepth int           // canonical re-resolution hops before giving up
	SafeBrowsingKey   string        // optional, empty => see Environment
	SafeBrowsingURL   string
	NPMRegistryURL    string
	GitHubAPIURL      string
	GitHubRawURL      string
	YouTubeOEmbedURL  string
	IntegrationsFile  string // optional YAML keyword table, empty = embedded default

	// Actors & background work
	ActorIdleTimeout  time.Duration // idle actors are evicted after this
	ReconcileInterval time.Duration // projection reconciliation period

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

	AllowedOrigins []string // CORS origins, empty or "*" => any
	AllowedHosts   []string // optional, Host headers accepted on admin endpoints
	AllowedCIDRS   []string // optional, restrict admin endpoints (backup/restore/reindex) to these IPs
	TrustProxy     bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Submission throttling, per client IP
	SubmitBurst        int
	SubmitRefillPerMin int
}

func Load() *Config {
	// A missing .env file is fine; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKDEX_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKDEX_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("LINKDEX_REQUEST_TIMEOUT", 45*time.Second),
		Environment:     getenv("LINKDEX_ENV", EnvDevelopment),

		// Logging
		LogLevel:  getenv("LINKDEX_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKDEX_PRETTY_LOG", true),

		// Persistence
		StorageBackend: getenv("LINKDEX_STORAGE", BackendRedis),
		SQLitePath:     getenv("LINKDEX_SQLITE_PATH", "./linkdex.db"),

		// Cache
		CacheBackend: getenv("LINKDEX_CACHE", BackendMemory),
		CacheTTL:     mustDuration("LINKDEX_CACHE_TTL", 10*time.Minute),
		CacheSize:    getenvInt("LINKDEX_CACHE_SIZE", 4096),

		// Extraction
		UserAgent:         getenv("LINKDEX_USER_AGENT", "linkdex/1.0 (+https://github.com/MrSnakeDoc/linkdex)"),
		FetchTimeout:      mustDuration("LINKDEX_FETCH_TIMEOUT", 10*time.Second),
		MaxCanonicalDepth: getenvInt("LINKDEX_MAX_CANONICAL_DEPTH", 3),
		SafeBrowsingKey:   getenv("LINKDEX_SAFE_BROWSING_KEY", ""),
		SafeBrowsingURL:   getenv("LINKDEX_SAFE_BROWSING_URL", "https://safebrowsing.googleapis.com"),
		NPMRegistryURL:    getenv("LINKDEX_NPM_REGISTRY_URL", "https://registry.npmjs.org"),
		GitHubAPIURL:      getenv("LINKDEX_GITHUB_API_URL", "https://api.github.com"),
		GitHubRawURL:      getenv("LINKDEX_GITHUB_RAW_URL", "https://raw.githubusercontent.com"),
		YouTubeOEmbedURL:  getenv("LINKDEX_YOUTUBE_OEMBED_URL", "https://www.youtube.com/oembed"),
		IntegrationsFile:  getenv("LINKDEX_INTEGRATIONS_FILE", ""),

		// Actors & background work
		ActorIdleTimeout:  mustDuration("LINKDEX_ACTOR_IDLE_TIMEOUT", 5*time.Minute),
		ReconcileInterval: mustDuration("LINKDEX_RECONCILE_INTERVAL", 6*time.Hour),

		// Redis tuning
		RedisUser:             getenv("LINKDEX_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKDEX_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("LINKDEX_REDIS_PASSWORD", ""),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedOrigins: splitAndTrim(getenv("LINKDEX_ALLOWED_ORIGINS", "*")),
		AllowedHosts:   splitAndTrim(getenv("LINKDEX_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("LINKDEX_ALLOWED_CIDRS", "")),
		TrustProxy:     mustBool("LINKDEX_TRUST_PROXY", true),

		SubmitBurst:        getenvInt("LINKDEX_SUBMIT_BURST", 10),
		SubmitRefillPerMin: getenvInt("LINKDEX_SUBMIT_REFILL_PER_MIN", 20),
	}

	if cfg.UsesRedis() {
		cfg.RedisAddr = requireEnv("LINKDEX_REDIS_ADDR")
		cfg.RedisDB = requireEnvInt("LINKDEX_REDIS_DB")

		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: LINKDEX_REDIS_PASSWORD is required when LINKDEX_REDIS_PASSWORD_REQUIRED=true")
		}
	}

	switch cfg.StorageBackend {
	case BackendRedis, BackendSQLite, BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown LINKDEX_STORAGE %q (want redis, sqlite or memory)", cfg.StorageBackend))
	}

	if cfg.MaxCanonicalDepth < 1 {
		cfg.MaxCanonicalDepth = 1
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.SafeBrowsingKey = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.StorageBackend == BackendRedis || c.CacheBackend == BackendRedis
}

// IsProduction reports whether fail-closed behaviour is required.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
