// Package config reads process configuration from the environment, after loading a .env
// file when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Port        string
	PostgresURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	OTLPEndpoint string
	// KafkaBrokers is empty when order events are disabled.
	KafkaBrokers []string

	StorageBackend string
	StorageDir     string
	S3Bucket       string
	AWSRegion      string
	ImageBaseURL   string

	AdminEmail    string
	AdminPassword string

	SendGridAPIKey string
	EmailSender    string

	MigrationsPath string
}

// Load reads every key. Variables already set in the environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("godotenv.Load: %w", err)
	}

	port := getenv("PORT", "8080")
	cfg := &Config{
		Port:        port,
		PostgresURL: os.Getenv("POSTGRES_URL"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getenv("JWT_ISSUER", "storefront-api"),
		JWTAudience: getenv("JWT_AUDIENCE", "storefront-clients"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),

		StorageBackend: strings.ToLower(getenv("STORAGE_BACKEND", StorageLocal)),
		StorageDir:     getenv("STORAGE_DIR", "images"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		AWSRegion:      getenv("AWS_REGION", "us-east-1"),
		ImageBaseURL:   getenv("IMAGE_BASE_URL", "http://localhost:"+port+"/images"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		EmailSender:    os.Getenv("EMAIL_SENDER"),

		MigrationsPath: getenv("MIGRATIONS_PATH", "file://migrations"),
	}

	return cfg, nil
}

// ValidateAPI checks what cmd/api cannot start without.
func (c *Config) ValidateAPI() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	switch c.StorageBackend {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

func (c *Config) ValidateNotifier() error {
	var errs []error
	if len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if c.SendGridAPIKey == "" {
		errs = append(errs, errors.New("SENDGRID_API_KEY is required"))
	}
	if c.EmailSender == "" {
		errs = append(errs, errors.New("EMAIL_SENDER is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) ValidateMigrate() error {
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
