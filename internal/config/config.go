package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	MediaBackendLocal = "local"
	MediaBackendGCS   = "gcs"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBUser                 string        `env:"DB_USER,required"`
	DBPassword             string        `env:"DB_PASSWORD,required"`
	DBHost                 string        `env:"DB_HOST,required"` // e.g. host, tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string        `env:"DB_NAME,required"`
	DBPort                 string        `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string        `env:"INSTANCE_CONNECTION_NAME"`
	DBMaxConnections       int           `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMaxIdleConnections   int           `env:"DB_MAX_IDLE_CONNECTIONS" envDefault:"5"`
	DBConnMaxLifetime      time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBAcquireTimeout       time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"5s"`

	MediaBackend          string `env:"MEDIA_BACKEND" envDefault:"local"`
	UploadDir             string `env:"UPLOAD_DIR" envDefault:"uploads"`
	UploadsBaseURL        string `env:"UPLOADS_BASE_URL" envDefault:"/uploads"`
	StorageBucket         string `env:"STORAGE_BUCKET"`
	StoragePrefix         string `env:"STORAGE_PREFIX" envDefault:"uploads/"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
	MaxUploadSize         string `env:"MAX_UPLOAD_SIZE" envDefault:"10M"`

	MediaGCInterval time.Duration `env:"MEDIA_GC_INTERVAL" envDefault:"0s"`
	MediaGCGrace    time.Duration `env:"MEDIA_GC_GRACE" envDefault:"24h"`

	FirebaseProjectID  string   `env:"FIREBASE_PROJECT_ID"`
	CORSOriginSuffixes []string `env:"CORS_ALLOWED_ORIGIN_SUFFIXES" envSeparator:"," envDefault:"vercel.app"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations env tags cannot express.
func (c *Config) Validate() error {
	c.MediaBackend = strings.ToLower(strings.TrimSpace(c.MediaBackend))
	switch c.MediaBackend {
	case MediaBackendLocal:
		if strings.TrimSpace(c.UploadDir) == "" {
			return errors.New("UPLOAD_DIR must not be empty for the local media backend")
		}
	case MediaBackendGCS:
		if strings.TrimSpace(c.StorageBucket) == "" {
			return errors.New("STORAGE_BUCKET is required when MEDIA_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.MediaBackend)
	}
	if c.DBMaxConnections <= 0 {
		return errors.New("DB_MAX_CONNECTIONS must be positive")
	}
	if c.DBAcquireTimeout <= 0 {
		return errors.New("DB_ACQUIRE_TIMEOUT must be positive")
	}
	if c.MediaGCInterval < 0 || c.MediaGCGrace < 0 {
		return errors.New("MEDIA_GC_INTERVAL and MEDIA_GC_GRACE must not be negative")
	}
	return nil
}
