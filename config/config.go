package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config is parsed once in main and injected into everything that
// needs it; nothing else reads environment variables directly.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DB_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	Storage   Storage   `envPrefix:"STORAGE_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
	AWS       AWS
}

type RateLimit struct {
	PerSecond float64 `env:"PER_SECOND" envDefault:"5"`
	Burst     int     `env:"BURST" envDefault:"20"`
}

// Storage selects and parameterizes the storage backend. Driver is the
// single switch between the local filesystem and S3; everything past
// construction goes through the storage.Backend interface.
type Storage struct {
	Driver      string        `env:"DRIVER" envDefault:"local"`
	DownloadTTL time.Duration `env:"DOWNLOAD_TTL" envDefault:"120s"`
	UploadTTL   time.Duration `env:"UPLOAD_TTL" envDefault:"300s"`

	LocalDir      string `env:"LOCAL_DIR" envDefault:"uploads"`
	LocalSecret   string `env:"LOCAL_SECRET"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

type AWS struct {
	Region string `env:"AWS_REGION"`
	Bucket string `env:"AWS_BUCKET_NAME"`
}

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// Load reads .env (when present) and parses the environment into a
// Config. Render and other PaaS hosts inject real env vars, so a
// missing .env is not an error.
func Load() (*Config, error) {
	if os.Getenv("RENDER") == "" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Storage.Driver {
	case DriverLocal:
		if cfg.Storage.LocalSecret == "" {
			return nil, fmt.Errorf("STORAGE_LOCAL_SECRET is required for the local storage driver")
		}
	case DriverS3:
		if cfg.AWS.Bucket == "" {
			return nil, fmt.Errorf("AWS_BUCKET_NAME is required for the s3 storage driver")
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
