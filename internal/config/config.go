package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the server needs. Values come from the
// environment, with a .env file loaded first when present.
type Config struct {
	Port          string
	Env           string // "development" or "production"
	DSN           string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	CORSOrigin    string
	BaseURL       string
	UploadDir     string
}

// Load reads the .env file (if any) and assembles the Config.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}

	return Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("APP_ENV", "development"),
		DSN:           getEnv("DB_DSN", "root:root@tcp(127.0.0.1:3306)/storefront?parseTime=true"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "http://localhost:5173"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
	}
}

// IsProduction reports whether the server runs in a production-like
// environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
