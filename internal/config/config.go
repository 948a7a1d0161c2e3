// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/fln-schedule/internal/domain"
	"github.com/pkordes/fln-schedule/internal/upstream"
)

// Config holds all configuration values for the collector and the API server.
// Values are populated by Load from environment variables. Every variable is
// optional.
type Config struct {
	// Proxy is an optional HTTP(S) proxy URL for upstream requests.
	Proxy string

	// Days is the number of calendar days to query, starting today. Defaults to 90.
	Days int

	// OutputFolder and OutputFile form the report path
	// "<OutputFolder>/<date>_<OutputFile>". The file extension picks the format.
	OutputFolder string
	OutputFile   string

	// Concurrency caps simultaneous upstream requests. Defaults to 30.
	Concurrency int

	// DateLayout is a Go time layout. DATE_FORMAT may also be given in
	// strftime notation ("%Y-%m-%d"); it is translated on load.
	DateLayout string

	// Directions are queried in order. DIRECTIONS is a comma-separated list of
	// ORIGIN:DESTINATION pairs.
	Directions []domain.Direction

	UpstreamURL string
	TripTypes   []string
	Providers   []string

	// FetchTimeout bounds each upstream request. Zero disables it.
	FetchTimeout time.Duration

	// TLSInsecure skips certificate verification on upstream requests.
	TLSInsecure bool

	// UserAgentCount is the size of the generated User-Agent pool.
	UserAgentCount int

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFormat is "text" (default) or "json".
	LogFormat string

	// LogFile, when set, receives the log output (appended) instead of stdout.
	LogFile string

	// DatabaseURL enables the Postgres sink when set.
	DatabaseURL string

	// SQLitePath enables the SQLite sink when set.
	SQLitePath string

	// RedisURL enables the Redis snapshot sink when set, e.g. "redis://localhost:6379/0".
	RedisURL string
	RedisKey string

	// RedisTTL expires the snapshot. Zero keeps it until overwritten.
	RedisTTL time.Duration

	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	CORSOrigins []string
}

// Load reads configuration from environment variables and returns a Config.
// Every invalid value is reported in a single domain.ErrValidation error.
func Load() (Config, error) {
	cfg := Config{
		Proxy:        os.Getenv("PROXY"),
		OutputFolder: getEnv("OUTPUT_FOLDER", "output"),
		OutputFile:   getEnv("OUTPUT_FILE", "FLN_schedule.xlsx"),
		UpstreamURL:  getEnv("UPSTREAM_URL", upstream.DefaultBaseURL),
		TripTypes:    splitCSV(getEnv("TRIP_TYPES", upstream.DefaultType)),
		Providers:    splitCSV(getEnv("PROVIDERS", upstream.DefaultProvider)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:      os.Getenv("LOG_FILE"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		RedisURL:     os.Getenv("REDIS_URL"),
		RedisKey:     getEnv("REDIS_KEY", "fln:schedule:latest"),
		Port:         getEnv("PORT", "8080"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	var err error
	if cfg.Days, err = getInt("SCHEDULE_DAYS", 90); err != nil {
		fail("%v", err)
	} else if cfg.Days < 1 {
		fail("SCHEDULE_DAYS must be at least 1, got %d", cfg.Days)
	}

	if cfg.Concurrency, err = getInt("CONCURRENCY", 30); err != nil {
		fail("%v", err)
	} else if cfg.Concurrency < 1 {
		fail("CONCURRENCY must be at least 1, got %d", cfg.Concurrency)
	}

	if cfg.UserAgentCount, err = getInt("USER_AGENT_COUNT", 1000); err != nil {
		fail("%v", err)
	} else if cfg.UserAgentCount < 1 {
		fail("USER_AGENT_COUNT must be at least 1, got %d", cfg.UserAgentCount)
	}

	if cfg.DateLayout, err = ParseDateLayout(getEnv("DATE_FORMAT", time.DateOnly)); err != nil {
		fail("DATE_FORMAT: %v", err)
	}

	if cfg.Directions, err = ParseDirections(getEnv("DIRECTIONS", "NORDDEICH:JUIST,JUIST:NORDDEICH")); err != nil {
		fail("DIRECTIONS: %v", err)
	}

	if cfg.FetchTimeout, err = time.ParseDuration(getEnv("FETCH_TIMEOUT", "60s")); err != nil {
		fail("FETCH_TIMEOUT: %v", err)
	} else if cfg.FetchTimeout < 0 {
		fail("FETCH_TIMEOUT must not be negative, got %s", cfg.FetchTimeout)
	}

	if cfg.RedisTTL, err = time.ParseDuration(getEnv("REDIS_TTL", "0")); err != nil {
		fail("REDIS_TTL: %v", err)
	} else if cfg.RedisTTL < 0 {
		fail("REDIS_TTL must not be negative, got %s", cfg.RedisTTL)
	}

	if cfg.TLSInsecure, err = strconv.ParseBool(getEnv("TLS_INSECURE", "false")); err != nil {
		fail("TLS_INSECURE: %v", err)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		fail("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	if strings.TrimSpace(cfg.OutputFile) == "" {
		fail("OUTPUT_FILE must not be blank")
	}
	if len(cfg.TripTypes) == 0 {
		fail("TRIP_TYPES must name at least one type")
	}
	if len(cfg.Providers) == 0 {
		fail("PROVIDERS must name at least one provider")
	}

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config.Load: %w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return cfg, nil
}

// strftimeDirectives maps the strftime directives accepted in DATE_FORMAT to
// their Go layout equivalents.
var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'H': "15",
	'M': "04",
	'S': "05",
	'%': "%",
}

// ParseDateLayout returns a Go time layout for s. Values containing '%' are
// read as strftime patterns; anything else is taken as a Go layout as-is.
func ParseDateLayout(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("empty layout")
	}
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 == len(s) {
			return "", fmt.Errorf("dangling %% in %q", s)
		}
		i++
		repl, ok := strftimeDirectives[s[i]]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c in %q", s[i], s)
		}
		b.WriteString(repl)
	}
	return b.String(), nil
}

// ParseDirections parses "A:B,C:D" into ordered directions. Pairs are kept
// exactly as given: no deduplication, no implied reverse direction.
func ParseDirections(s string) ([]domain.Direction, error) {
	parts := splitCSV(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no directions given")
	}
	dirs := make([]domain.Direction, 0, len(parts))
	for _, p := range parts {
		origin, dest, ok := strings.Cut(p, ":")
		origin, dest = strings.TrimSpace(origin), strings.TrimSpace(dest)
		if !ok || origin == "" || dest == "" {
			return nil, fmt.Errorf("malformed pair %q, want ORIGIN:DESTINATION", p)
		}
		dirs = append(dirs, domain.Direction{Origin: origin, Destination: dest})
	}
	return dirs, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getInt parses the integer variable named by key, or returns fallback if unset.
func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
