package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "snaplister"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Config holds the service configuration.
type Config struct {
	ListenAddr   string
	DBPath       string
	GeminiAPIKey string
}

// FromEnv reads configuration from the environment. A missing GEMINI_API_KEY
// is a startup-time hard stop; everything else has a default.
func FromEnv() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	addr := os.Getenv("SNAPLISTER_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dbPath := os.Getenv("SNAPLISTER_DB_PATH")
	if dbPath == "" {
		dbPath = "snaplister.db"
	}

	return &Config{
		ListenAddr:   addr,
		DBPath:       dbPath,
		GeminiAPIKey: apiKey,
	}, nil
}
