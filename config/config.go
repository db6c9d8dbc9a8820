package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultRoundLimit     = 3
	defaultFinalFieldSize = 2
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL        string
	JWTSecretKey       string
	ServerPort         int
	StorageDriver      string
	RoundLimit         int
	FinalFieldSize     int
	CORSAllowedOrigins []string
	// SeedUsers are nicknames created at startup by the memory driver, with ids from 1.
	SeedUsers []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads the environment, loading a .env file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      os.Getenv("JWT_SECRET_KEY"),
		StorageDriver:     strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER"))),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverPostgres
	}
	if cfg.StorageDriver != DriverPostgres && cfg.StorageDriver != DriverMemory {
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, cfg.StorageDriver)
	}
	if cfg.DatabaseURL == "" && cfg.StorageDriver == DriverPostgres {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}

	if cfg.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if cfg.RoundLimit, err = intFromEnv("ROUND_LIMIT", defaultRoundLimit); err != nil {
		return nil, err
	}
	if cfg.RoundLimit < 1 {
		return nil, fmt.Errorf("ROUND_LIMIT must be at least 1, got %d", cfg.RoundLimit)
	}

	if cfg.FinalFieldSize, err = intFromEnv("FINAL_FIELD_SIZE", defaultFinalFieldSize); err != nil {
		return nil, err
	}
	if cfg.FinalFieldSize < 1 {
		return nil, fmt.Errorf("FINAL_FIELD_SIZE must be at least 1, got %d", cfg.FinalFieldSize)
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	cfg.SeedUsers = splitList(os.Getenv("SEED_USERS"))

	return cfg, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
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
