package main

import (
	"os"
	"strconv"
	"strings"
)

// Config is read once from the environment at startup.
type Config struct {
	Port         string
	DatabaseURL  string
	SQLitePath   string
	AllowOrigins []string
	BodyLimit    int
}

func LoadConfig() Config {
	return Config{
		Port:         getEnv("PORT", "8000"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   os.Getenv("SQLITE_PATH"),
		AllowOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		BodyLimit:    getEnvInt("BODY_LIMIT_BYTES", 4<<20),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
