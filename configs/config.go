package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID     string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

type Threads struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Gemini struct {
	APIKey string
	Model  string
}

type Worker struct {
	TickInterval   time.Duration
	BatchSize      int
	Concurrency    int
	ClaimTTL       time.Duration
	MaxAttempts    int
	PublishTimeout time.Duration
}

type Config struct {
	PostgresURI   string
	RedisURI      string
	FrontendURL   string
	SecretKey     string
	CookieName    string
	APIKey        string
	AdminPassword string
	Threads       Threads
	Gemini        Gemini
	R2            R2
	Worker        Worker
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:   getEnv("POSTGRES_URI", ""),
		RedisURI:      getEnv("REDIS_URI", "127.0.0.1:6379"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:     getEnv("SECRET_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "threadcast_session"),
		APIKey:        getEnv("API_KEY", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		Threads: Threads{
			ClientID:     getEnv("THREADS_CLIENT_ID", ""),
			ClientSecret: getEnv("THREADS_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("THREADS_REDIRECT_URI", ""),
		},
		Gemini: Gemini{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		R2: R2{
			AccountID:     getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:     getEnv("R2_ACCESS_KEY", ""),
			SecretKey:     getEnv("R2_SECRET_KEY", ""),
			BucketName:    getEnv("R2_BUCKET_NAME", ""),
			PublicBaseURL: getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		Worker: Worker{
			TickInterval:   getEnvDuration("WORKER_TICK_INTERVAL", time.Minute),
			BatchSize:      getEnvInt("WORKER_BATCH_SIZE", 10),
			Concurrency:    getEnvInt("WORKER_CONCURRENCY", 10),
			ClaimTTL:       getEnvDuration("WORKER_CLAIM_TTL", 10*time.Minute),
			MaxAttempts:    getEnvInt("WORKER_MAX_ATTEMPTS", 5),
			PublishTimeout: getEnvDuration("WORKER_PUBLISH_TIMEOUT", time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
