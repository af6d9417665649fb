package config

import (
	"errors"
	"os"
)

const defaultModel = "mistralai/mistral-small-3.2-24b-instruct:free"

// Config is built once at startup and passed by reference into the pieces
// that need it. No package reads the environment after Load returns.
type Config struct {
	OpenRouterAPIKey     string
	Model                string
	Referer              string
	AppTitle             string
	IncludeEmailFeatures bool
	Port                 string
}

// Load reads configuration from the environment. A missing API key is an
// error: the server must refuse to start rather than accept requests it
// cannot fulfil.
func Load() (*Config, error) {
	key := os.Getenv("OPENROUTER_API_KEY")
	if key == "" {
		return nil, errors.New("OPENROUTER_API_KEY is not set")
	}

	return &Config{
		OpenRouterAPIKey:     key,
		Model:                getenv("LLM_MODEL", defaultModel),
		Referer:              getenv("LLM_REFERER", "http://localhost"),
		AppTitle:             getenv("LLM_APP_TITLE", "LLM Analyzer"),
		IncludeEmailFeatures: os.Getenv("LLM_EMAIL_FEATURES") == "true",
		Port:                 getenv("PORT", "5002"),
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
