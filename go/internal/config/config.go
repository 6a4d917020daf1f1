package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the game server
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	NATS      NATSConfig      `yaml:"nats"`
	Room      RoomConfig      `yaml:"room"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ForceHTTPS      bool          `yaml:"force_https"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds token settings
type AuthConfig struct {
	SecretKey string        `yaml:"secret_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RateLimitConfig holds per-client request limits. An empty RedisURL keeps
// the counters in process memory.
type RateLimitConfig struct {
	Max      int           `yaml:"max"`
	Window   time.Duration `yaml:"window"`
	RedisURL string        `yaml:"redis_url"`
}

// NATSConfig holds match bus settings. An empty URL logs events instead.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Stream        string `yaml:"stream"`
}

// RoomConfig holds room behaviour settings
type RoomConfig struct {
	StrictRoles bool `yaml:"strict_roles"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "10000",
			AllowedOrigins:  []string{"https://rpsls.online"},
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			SecretKey: "change-me-in-production",
			TokenTTL:  24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Max:    100,
			Window: 15 * time.Minute,
		},
		NATS: NATSConfig{
			SubjectPrefix: "rpsls",
		},
		Room: RoomConfig{
			StrictRoles: true,
		},
		LogLevel: "info",
	}
}

// Load layers the YAML file at path (if any) and then the environment over
// the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.ForceHTTPS = getEnvAsBool("FORCE_HTTPS", c.Server.ForceHTTPS)
	c.Server.TrustProxy = getEnvAsBool("TRUST_PROXY", c.Server.TrustProxy)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.SecretKey = getEnv("SECRET_KEY", c.Auth.SecretKey)
	c.Auth.TokenTTL = getEnvAsDuration("TOKEN_TTL", c.Auth.TokenTTL)

	c.RateLimit.Max = getEnvAsInt("RATE_LIMIT_MAX", c.RateLimit.Max)
	c.RateLimit.Window = getEnvAsDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)
	c.RateLimit.RedisURL = getEnv("REDIS_URL", c.RateLimit.RedisURL)

	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)

	c.Room.StrictRoles = getEnvAsBool("STRICT_ROLES", c.Room.StrictRoles)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports settings the server cannot start with
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Auth.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("rate limit max must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
