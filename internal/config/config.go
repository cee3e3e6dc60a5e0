package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	SERVER_PORT int
	LOG_LEVEL   string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	JWT_SECRET string

	KAFKA_ADDRESS string

	SMTP_HOST     string
	SMTP_PORT     int
	SMTP_USER     string
	SMTP_PASSWORD string
	SMTP_FROM     string

	RAZORPAY_KEY_ID     string
	RAZORPAY_KEY_SECRET string

	SESSION_ACTIVE_WINDOW time.Duration
	TOKEN_TTL             time.Duration

	TICKET_RETENTION_DAYS  int
	CLEANUP_INTERVAL_HOURS int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		SERVER_PORT: envIntDefault("SERVER_PORT", 8080),
		LOG_LEVEL:   envDefault("LOG_LEVEL", "info"),

		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		JWT_SECRET: os.Getenv("JWT_SECRET"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		SMTP_HOST:     os.Getenv("SMTP_HOST"),
		SMTP_PORT:     envIntDefault("SMTP_PORT", 587),
		SMTP_USER:     os.Getenv("SMTP_USER"),
		SMTP_PASSWORD: os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:     envDefault("SMTP_FROM", "no-reply@lessonhub.local"),

		RAZORPAY_KEY_ID:     os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET: os.Getenv("RAZORPAY_KEY_SECRET"),

		SESSION_ACTIVE_WINDOW: time.Duration(envIntDefault("SESSION_ACTIVE_WINDOW_SECONDS", 45)) * time.Second,
		TOKEN_TTL:             time.Duration(envIntDefault("TOKEN_TTL_HOURS", 7*24)) * time.Hour,

		TICKET_RETENTION_DAYS:  envIntDefault("TICKET_RETENTION_DAYS", 30),
		CLEANUP_INTERVAL_HOURS: envIntDefault("CLEANUP_INTERVAL_HOURS", 24),
	}

	return config, nil
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
