// Package config provides application configuration loading and validation,
// plus the search-profile document parser.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultPort       = 8080
	DefaultStorageURL = "data"
)

// App holds the process-level configuration resolved from the environment.
type App struct {
	GeminiAPIKey      string `validate:"-"`
	StorageURL        string `validate:"required"`
	Port              int    `validate:"min=1,max=65535"`
	ScanIntervalHours int    `validate:"min=0"`
	TelegramBotToken  string
	TelegramChatID    int64
	UseBrowser        bool
	Verbose           bool
}

// FromEnv builds an App from environment variables and validates it.
// GEMINI_API_KEY may be empty here; scan runs fail with a recorded error
// run when it is missing.
func FromEnv() (*App, error) {
	cfg := &App{
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		StorageURL:       os.Getenv("STORAGE_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Port:             DefaultPort,
		UseBrowser:       boolEnv("USE_BROWSER"),
		Verbose:          boolEnv("VERBOSE"),
	}
	if cfg.StorageURL == "" {
		cfg.StorageURL = DefaultStorageURL
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("SCAN_INTERVAL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_INTERVAL_HOURS %q: %w", v, err)
		}
		cfg.ScanIntervalHours = hours
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		chatID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.TelegramChatID = chatID
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func boolEnv(name string) bool {
	v := os.Getenv(name)
	return v == "1" || v == "true" || v == "yes"
}
