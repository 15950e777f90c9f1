package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds server configuration read from the environment.
type Config struct {
	Port             string
	DBPath           string
	EbayClientID     string
	EbayClientSecret string
	MarketplaceID    string
	RefreshSchedule  string // cron expression for reference-data refresh
}

// Load reads configuration from a .env file (when present) and the
// process environment. Environment variables win over .env values.
func Load() Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:             getenv("PORT", "8080"),
		DBPath:           getenv("DB_PATH", "pricer.db"),
		EbayClientID:     os.Getenv("EBAY_CLIENT_ID"),
		EbayClientSecret: os.Getenv("EBAY_CLIENT_SECRET"),
		MarketplaceID:    getenv("EBAY_MARKETPLACE_ID", "EBAY_US"),
		RefreshSchedule:  getenv("REFRESH_SCHEDULE", "0 3 * * *"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
