package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultServerPort     = 8080
	defaultJudgeTimeout   = 30 * time.Second
	defaultJudgeRetries   = 3
	defaultMaxRematches   = 3
	defaultSweepInterval  = 30 * time.Second
	defaultAllowedOrigins = "*"
)

// ErrPartialR2Config - заданы не все R2-переменные.
var ErrPartialR2Config = errors.New("R2 configuration is partial: set all R2_* variables or none")

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort int
	// DatabaseURL пустой - используется хранилище в памяти.
	DatabaseURL  string
	JWTSecretKey string

	JudgeURL     string
	JudgeAPIKey  string
	JudgeTimeout time.Duration
	JudgeRetries int

	MaxRematches   int
	SweepInterval  time.Duration
	AllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// ArchiveEnabled сообщает, настроен ли архив сеток в R2.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", defaultServerPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	judgeTimeout, err := durationEnv("JUDGE_TIMEOUT", defaultJudgeTimeout)
	if err != nil {
		return nil, err
	}
	judgeRetries, err := intEnv("JUDGE_RETRIES", defaultJudgeRetries)
	if err != nil {
		return nil, err
	}
	if judgeRetries < 1 {
		return nil, fmt.Errorf("JUDGE_RETRIES must be at least 1, got %d", judgeRetries)
	}
	maxRematches, err := intEnv("MAX_REMATCHES", defaultMaxRematches)
	if err != nil {
		return nil, err
	}
	if maxRematches < 0 {
		return nil, fmt.Errorf("MAX_REMATCHES must not be negative, got %d", maxRematches)
	}
	sweepInterval, err := durationEnv("SWEEP_INTERVAL", defaultSweepInterval)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:        port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      jwtKey,
		JudgeURL:          strings.TrimRight(os.Getenv("JUDGE_URL"), "/"),
		JudgeAPIKey:       os.Getenv("JUDGE_API_KEY"),
		JudgeTimeout:      judgeTimeout,
		JudgeRetries:      judgeRetries,
		MaxRematches:      maxRematches,
		SweepInterval:     sweepInterval,
		AllowedOrigins:    splitList(envOr("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins)),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, ErrPartialR2Config
	}

	return cfg, nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, v)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
