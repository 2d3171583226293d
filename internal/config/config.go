package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	PhotosLocal = "local"
	PhotosS3    = "s3"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Auth   AuthConfig
	Photos PhotoConfig
	CORS   CORSConfig
	// PublicBaseURL is the externally reachable API root scan links point at.
	PublicBaseURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret     string
	JWTExpiry     time.Duration
	AdminEmail    string
	AdminPassword string
}

type PhotoConfig struct {
	Driver    string
	Path      string
	PublicURL string
	S3        S3Config
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type CORSConfig struct {
	AllowedOrigins string
}

func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads CHECKPOINT_* variables. A .env file in the working directory
// is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	jwtExpiry, err := time.ParseDuration(envOrDefault("CHECKPOINT_JWT_EXPIRY", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKPOINT_JWT_EXPIRY: %w", err)
	}

	port := envOrDefault("CHECKPOINT_PORT", "8080")
	publicBase := envOrDefault("CHECKPOINT_PUBLIC_BASE_URL", "http://localhost:"+port+"/api/v1")

	cfg := &Config{
		Server: ServerConfig{
			Host: envOrDefault("CHECKPOINT_HOST", "0.0.0.0"),
			Port: port,
		},
		DB: DBConfig{
			Driver:   envOrDefault("CHECKPOINT_STORE", StorePostgres),
			Host:     envOrDefault("CHECKPOINT_DB_HOST", "localhost"),
			Port:     envOrDefault("CHECKPOINT_DB_PORT", "5432"),
			Name:     envOrDefault("CHECKPOINT_DB_NAME", "checkpoint"),
			User:     envOrDefault("CHECKPOINT_DB_USER", "checkpoint"),
			Password: envOrDefault("CHECKPOINT_DB_PASSWORD", "checkpoint"),
			SSLMode:  envOrDefault("CHECKPOINT_DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:     envOrDefault("CHECKPOINT_JWT_SECRET", "change-me-in-production"),
			JWTExpiry:     jwtExpiry,
			AdminEmail:    envOrDefault("CHECKPOINT_ADMIN_EMAIL", "admin@checkpoint.local"),
			AdminPassword: envOrDefault("CHECKPOINT_ADMIN_PASSWORD", "admin"),
		},
		Photos: PhotoConfig{
			Driver:    envOrDefault("CHECKPOINT_PHOTOS_DRIVER", PhotosLocal),
			Path:      envOrDefault("CHECKPOINT_PHOTOS_PATH", "/data/photos"),
			PublicURL: envOrDefault("CHECKPOINT_PHOTOS_PUBLIC_URL", strings.TrimSuffix(publicBase, "/")+"/photos"),
			S3: S3Config{
				Bucket:    os.Getenv("CHECKPOINT_S3_BUCKET"),
				Region:    envOrDefault("CHECKPOINT_S3_REGION", "us-east-1"),
				Endpoint:  os.Getenv("CHECKPOINT_S3_ENDPOINT"),
				AccessKey: os.Getenv("CHECKPOINT_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("CHECKPOINT_S3_SECRET_KEY"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: envOrDefault("CHECKPOINT_CORS_ORIGINS", "http://localhost:3000"),
		},
		PublicBaseURL: publicBase,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("invalid CHECKPOINT_STORE %q: want %s or %s", c.DB.Driver, StorePostgres, StoreMemory)
	}
	switch c.Photos.Driver {
	case PhotosLocal:
	case PhotosS3:
		if c.Photos.S3.Bucket == "" {
			return fmt.Errorf("CHECKPOINT_S3_BUCKET is required for the s3 photo driver")
		}
	default:
		return fmt.Errorf("invalid CHECKPOINT_PHOTOS_DRIVER %q: want %s or %s", c.Photos.Driver, PhotosLocal, PhotosS3)
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("CHECKPOINT_JWT_EXPIRY must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
