package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Detector
	DetectorType string `envconfig:"DETECTOR_TYPE" default:"mock"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Matching
	MatchThreshold   float64 `envconfig:"MATCH_THRESHOLD" default:"0.70"`
	MatchConcurrency int     `envconfig:"MATCH_CONCURRENCY" default:"4"`

	// Verification flow
	CapturesPerPose      int           `envconfig:"CAPTURES_PER_POSE" default:"3"`
	RequiredBlinks       int           `envconfig:"REQUIRED_BLINKS" default:"2"`
	SmileFrames          int           `envconfig:"SMILE_FRAMES" default:"10"`
	ChallengeFrameBudget int           `envconfig:"CHALLENGE_FRAME_BUDGET" default:"150"`
	SessionTTL           time.Duration `envconfig:"SESSION_TTL" default:"10m"`

	// Reference photo download
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"15s"`
	DownloadRetries int           `envconfig:"DOWNLOAD_RETRIES" default:"3"`
	DownloadMaxMB   int           `envconfig:"DOWNLOAD_MAX_MB" default:"10"`

	// Reference signature cache
	SignatureCacheTTL time.Duration `envconfig:"SIGNATURE_CACHE_TTL" default:"24h"`

	// Session start rate limiting (0 disables the cap)
	SessionStartLimit  int           `envconfig:"SESSION_START_LIMIT" default:"20"`
	SessionStartWindow time.Duration `envconfig:"SESSION_START_WINDOW" default:"1h"`

	// Usage accounting
	UsageFlushInterval time.Duration `envconfig:"USAGE_FLUSH_INTERVAL" default:"30s"`

	// Alerting
	AlertCheckInterval time.Duration `envconfig:"ALERT_CHECK_INTERVAL" default:"30s"`

	// Admin API (webhook and usage management); empty secret leaves the
	// endpoints unguarded, for development only
	AdminJWTSecret string        `envconfig:"ADMIN_JWT_SECRET"`
	AdminTokenTTL  time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"12h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
