package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port         string
	DataBackend  string
	DatabaseURL  string
	SQLiteDBPath string

	JWTSecret    string
	JWTIssuer    string
	JWTTTL       time.Duration
	CORSOrigins  []string
	CookieSecure bool

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	InsightsCurrency  string
	InsightsCacheTTL  time.Duration
	AIRateLimitPerMin int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	AMQPURL      string
	AMQPExchange string

	LogLevel string
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:         fallback(os.Getenv("PORT"), "8080"),
		DataBackend:  strings.ToLower(fallback(os.Getenv("DATA_BACKEND"), BackendPostgres)),
		DatabaseURL:  strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLiteDBPath: fallback(os.Getenv("SQLITE_DB_PATH"), "./data/expenses.db"),

		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:    fallback(os.Getenv("JWT_ISSUER"), "expense-tracker"),
		JWTTTL:       minutes(os.Getenv("JWT_TTL_MINUTES"), 7*24*60),
		CORSOrigins:  parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		CookieSecure: parseBool(os.Getenv("COOKIE_SECURE"), false),

		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   fallback(os.Getenv("OPENAI_MODEL"), "gpt-4o"),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),

		InsightsCurrency:  fallback(os.Getenv("INSIGHTS_CURRENCY"), "NGN"),
		InsightsCacheTTL:  duration(os.Getenv("INSIGHTS_CACHE_TTL"), 10*time.Minute),
		AIRateLimitPerMin: integer(os.Getenv("AI_RATE_LIMIT_PER_MINUTE"), 20),

		GoogleClientID:     strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		GoogleClientSecret: strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURL:  strings.TrimSpace(os.Getenv("GOOGLE_REDIRECT_URL")),

		AMQPURL:      strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPExchange: fallback(os.Getenv("AMQP_EXCHANGE"), "expenses"),

		LogLevel: strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), "info")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLiteDBPath) == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty when using sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend %q: must be one of [%s %s]", c.DataBackend, BackendPostgres, BackendSQLite))
	}

	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
	}

	if c.GoogleEnabled() && c.GoogleRedirectURL == "" {
		problems = append(problems, "GOOGLE_REDIRECT_URL is required when Google login is configured")
	}

	if c.AIRateLimitPerMin < 1 {
		problems = append(problems, fmt.Sprintf("invalid AI rate limit %d: must be at least 1", c.AIRateLimitPerMin))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed:\n- " + strings.Join(problems, "\n- "))
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// GoogleEnabled reports whether the Google identity provider has credentials.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// AIEnabled reports whether an LLM API key is configured.
func (c Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func minutes(value string, def int) time.Duration {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return time.Duration(def) * time.Minute
}

func duration(value string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && d > 0 {
		return d
	}
	return def
}

func integer(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return def
}

func parseBool(value string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
		return b
	}
	return def
}
