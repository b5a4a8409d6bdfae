package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port        int
	Environment string
	JWTSecret   string
	DatabaseURL string
	CORSOrigins []string

	AdminEmail    string
	AdminPassword string

	// AppBaseURL is where the gateway redirects users after checkout.
	AppBaseURL string

	// Payment gateway (Creem).
	CreemAPIBase        string
	CreemAPIKey         string
	CreemWebhookSecret  string
	CreemProductMonthly string
	CreemProductYearly  string

	// FreeUsageLimit is the analysis allowance new accounts start with.
	FreeUsageLimit int

	// AnalyzerURL points at the content-analysis service; empty disables it.
	AnalyzerURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port, _ := strconv.Atoi(getEnv("PORT", "4002"))

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	freeLimit, err := strconv.Atoi(getEnv("FREE_USAGE_LIMIT", "5"))
	if err != nil || freeLimit < 0 {
		return nil, fmt.Errorf("FREE_USAGE_LIMIT must be a non-negative integer")
	}

	return &Config{
		Port:        port,
		Environment: getEnv("APP_ENV", "development"),
		JWTSecret:   jwtSecret,
		DatabaseURL: dbURL,
		CORSOrigins: origins,

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@geoscribe.app"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),

		CreemAPIBase:        getEnv("CREEM_API_BASE", ""),
		CreemAPIKey:         getEnv("CREEM_API_KEY", ""),
		CreemWebhookSecret:  getEnv("CREEM_WEBHOOK_SECRET", ""),
		CreemProductMonthly: getEnv("CREEM_PRODUCT_MONTHLY", ""),
		CreemProductYearly:  getEnv("CREEM_PRODUCT_YEARLY", ""),

		FreeUsageLimit: freeLimit,

		AnalyzerURL: getEnv("ANALYZER_URL", ""),
	}, nil
}

// Production reports whether the service runs with production error masking.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
