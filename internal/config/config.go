package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Environment
	Env string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Reconciliation: a rule match at or above this confidence is applied
	// automatically; matches below it surface as suggestions for manual
	// confirmation.
	ReconcileAcceptThreshold float64

	// Validation: posted amounts at or above this value (in major currency
	// units) attach a data-quality warning to the validation result.
	LargeAmountThreshold float64

	// Sweeper: how often the recurring-template sweep and reconciliation
	// batch run.
	SweepInterval time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "ledgercore"),
		DBPassword: getEnv("DB_PASSWORD", "ledgercore"),
		DBName:     getEnv("DB_NAME", "ledgercore"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		ReconcileAcceptThreshold: getEnvFloat("RECONCILE_ACCEPT_THRESHOLD", 0.7),
		LargeAmountThreshold:     getEnvFloat("LARGE_AMOUNT_THRESHOLD", 10000),
	}

	sweepStr := getEnv("SWEEP_INTERVAL", "1h")
	sweepDur, err := time.ParseDuration(sweepStr)
	if err != nil {
		log.Printf("Warning: invalid SWEEP_INTERVAL value '%s', falling back to 1h\n", sweepStr)
		sweepDur = time.Hour
	}
	config.SweepInterval = sweepDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %v\n", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
