package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// TokenTTL is the fixed lifetime of issued family tokens.
const TokenTTL = 7 * 24 * time.Hour

// Config holds application configuration
type Config struct {
	ServerPort     string
	AllowedOrigins []string
	JWTSecret      string
	TokenTTL       time.Duration
	DatabaseType   string
	DatabaseURL    string
	DatabasePath   string
	AuthRateLimit  int // requests per minute per client on /auth routes, 0 disables
	TrustedProxies []*net.IPNet
	Logging        LoggingConfig
}

// LoggingConfig controls the root zerolog logger
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	cfg, err := LoadDatabase()
	if err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadDatabase is Load without the token secret requirement, for offline
// tools that only talk to the database.
func LoadDatabase() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:     getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGIN", "*")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		TokenTTL:       TokenTTL,
		DatabaseType:   strings.ToLower(getEnv("DB_TYPE", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabasePath:   getEnv("DB_PATH", "./kidshield.db"),
		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Forwarding headers are only believed from these peers
	proxies, err := parseCIDRs(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	switch cfg.DatabaseType {
	case "sqlite", "sqlite3":
	case "postgres", "postgresql", "mysql":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for DB_TYPE=%s", cfg.DatabaseType)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %s", cfg.DatabaseType)
	}

	return cfg, nil
}

// AllowAllOrigins reports whether CORS is open to any origin
func (c *Config) AllowAllOrigins() bool {
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCIDRs(value string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, cidr := range splitList(value) {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", cidr, err)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
