package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application-level configuration
type Config struct {
	// Storage
	HistoryFile string
	DatabaseURL string // optional PostgreSQL mirror; empty disables sync

	// Alerting
	PriceDropThreshold float64 // minimum dollar drop between checks to flag

	// Scraper
	CostcoURL      string
	RateLimitDelay int // milliseconds between bookings
	MaxRetries     int
	SearchTimeout  int // seconds to wait for the results page
	ScreenshotDir  string

	// Email
	SMTPServer     string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
}

// Load reads configuration from a .env file (if present) and environment
// variables, falling back to defaults
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HistoryFile:        getEnv("HISTORY_FILE", "price_history.json"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		PriceDropThreshold: getEnvFloat("PRICE_DROP_THRESHOLD", 10.0),
		CostcoURL:          getEnv("COSTCO_URL", "https://www.costcotravel.com/Rental-Cars"),
		RateLimitDelay:     getEnvInt("RATE_LIMIT_DELAY_MS", 3000),
		MaxRetries:         getEnvInt("MAX_RETRIES", 3),
		SearchTimeout:      getEnvInt("SEARCH_TIMEOUT_S", 60),
		ScreenshotDir:      getEnv("SCREENSHOT_DIR", "screenshots"),
		SMTPServer:         getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SenderEmail:        getEnv("SENDER_EMAIL", ""),
		SenderPassword:     getEnv("SENDER_PASSWORD", ""),
		RecipientEmail:     getEnv("RECIPIENT_EMAIL", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
