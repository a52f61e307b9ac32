// Package config loads runtime settings for the movie services from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dannyrandall/moviecatalog/internal/copilot"
)

type Config struct {
	HTTP      HTTPConfig
	Logger    LoggerConfig
	Tracing   TracingConfig
	Retry     RetryConfig
	Upstream  UpstreamConfig
	Tables    TableConfig
	Broadcast BroadcastConfig
}

type HTTPConfig struct {
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type TracingConfig struct {
	Enabled bool
}

// RetryConfig is the policy shared by both downstream dependencies.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// UpstreamConfig holds the base URLs the gateway calls.
type UpstreamConfig struct {
	MovieInfoURL string
	ReviewsURL   string
}

// TableConfig names the DynamoDB tables and indexes.
type TableConfig struct {
	MovieInfos       string
	Reviews          string
	ReviewMovieIndex string
}

type BroadcastConfig struct {
	HistorySize int
}

// Load reads the environment (and .env when present) and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:            getString("SERVER_PORT", "8080"),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Tracing: TracingConfig{
			Enabled: getBool("TRACING_ENABLED", true),
		},
		Retry: RetryConfig{
			MaxAttempts: getInt("RETRY_MAX_ATTEMPTS", 4),
			Delay:       getDuration("RETRY_DELAY", time.Second),
		},
		Upstream: UpstreamConfig{
			MovieInfoURL: upstreamURL("MOVIE_INFO_URL", "movieinfo", "/v1/movieinfos", "http://localhost:8080/v1/movieinfos"),
			ReviewsURL:   upstreamURL("REVIEWS_URL", "reviews", "/v1/reviews", "http://localhost:8081/v1/reviews"),
		},
		Tables: TableConfig{
			MovieInfos:       os.Getenv("MOVIEINFOS_NAME"),
			Reviews:          os.Getenv("REVIEWS_NAME"),
			ReviewMovieIndex: getString("REVIEWS_MOVIE_INDEX", "movieInfoId-index"),
		},
		Broadcast: BroadcastConfig{
			HistorySize: getInt("BROADCAST_HISTORY_SIZE", 10000),
		},
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Delay < 0 {
		return nil, fmt.Errorf("RETRY_DELAY must not be negative, got %s", cfg.Retry.Delay)
	}
	return cfg, nil
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return ":" + c.HTTP.Port
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// upstreamURL prefers key, then the Copilot service discovery name of svc.
func upstreamURL(key, svc, path, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if copilot.App() != "" && copilot.Environment() != "" {
		return copilot.ServiceURL(svc, 8080, path)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
