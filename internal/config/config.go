package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the moderation API.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	CORSAllowOrigins    string
	DatabaseDriver      string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	RealtimeChannel     string
	JWTSecret           string
	RateLimitMax        int
	RateLimitWindow     time.Duration
	ActivityQueryCap    int
	RiskCaseThreshold   float64
	RiskHistoryLimit    int
	AuditBuffer         int
	AuditMaxRetries     int
	AuditRetryBackoff   time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CloudinaryEnabled reports whether backup uploads have credentials.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GUARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LegalBot Guard API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("realtime.channel", "legalbot:moderation")
	v.SetDefault("ratelimit.max", 60)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("activity.query_cap", 1000)
	v.SetDefault("risk.case_threshold", 70)
	v.SetDefault("risk.history_limit", 200)
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("audit.max_retries", 3)
	v.SetDefault("audit.retry_backoff", "200ms")
	v.SetDefault("cloudinary.folder", "legalbot/backups")

	window, err := parseDuration(v.GetString("ratelimit.window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	backoff, err := parseDuration(v.GetString("audit.retry_backoff"), 200*time.Millisecond)
	if err != nil {
		return Config{}, fmt.Errorf("invalid audit retry backoff: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		DatabaseDriver:      strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		RealtimeChannel:     v.GetString("realtime.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		RateLimitMax:        v.GetInt("ratelimit.max"),
		RateLimitWindow:     window,
		ActivityQueryCap:    v.GetInt("activity.query_cap"),
		RiskCaseThreshold:   v.GetFloat64("risk.case_threshold"),
		RiskHistoryLimit:    v.GetInt("risk.history_limit"),
		AuditBuffer:         v.GetInt("audit.buffer"),
		AuditMaxRetries:     v.GetInt("audit.max_retries"),
		AuditRetryBackoff:   backoff,
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 60
	}
	if cfg.ActivityQueryCap <= 0 {
		cfg.ActivityQueryCap = 1000
	}
	if cfg.RiskCaseThreshold <= 0 || cfg.RiskCaseThreshold > 100 {
		cfg.RiskCaseThreshold = 70
	}
	if cfg.RiskHistoryLimit <= 0 {
		cfg.RiskHistoryLimit = 200
	}
	if cfg.AuditBuffer <= 0 {
		cfg.AuditBuffer = 256
	}
	if cfg.AuditMaxRetries < 0 {
		cfg.AuditMaxRetries = 0
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
