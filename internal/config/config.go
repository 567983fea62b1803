// Package config resolves Umbra's runtime configuration.
//
// Precedence, lowest to highest: built-in defaults, a .env file in the
// working directory, process environment. Command flags override fields
// after loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	keyAPIKey   = "GOOGLE_API_KEY"
	keyModel    = "GEMINI_MODEL"
	keyOutput   = "OUTPUT_FILE"
	keyDebounce = "DEBOUNCE_SECONDS"

	// DefaultModel is the Gemini model used when GEMINI_MODEL is unset.
	DefaultModel = "gemini-flash-latest"

	// DefaultOutputFile is where the live architecture document lands.
	DefaultOutputFile = "./output/LIVE_ARCHITECTURE.md"

	defaultDebounce = 2.0
)

// Config holds the resolved settings shared by every command.
type Config struct {
	APIKey          string
	Model           string
	OutputFile      string
	DebounceSeconds float64
}

// Load reads .env (if present in dir) and the environment.
// A missing .env file is not an error.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetDefault(keyModel, DefaultModel)
	v.SetDefault(keyOutput, DefaultOutputFile)
	v.SetDefault(keyDebounce, defaultDebounce)

	v.SetConfigFile(filepath.Join(dir, ".env"))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(filepath.Join(dir, ".env")); statErr == nil {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{
		APIKey:          v.GetString(keyAPIKey),
		Model:           v.GetString(keyModel),
		OutputFile:      v.GetString(keyOutput),
		DebounceSeconds: v.GetFloat64(keyDebounce),
	}
	if cfg.DebounceSeconds <= 0 {
		cfg.DebounceSeconds = defaultDebounce
	}
	return cfg, nil
}

// KnowledgeFile returns the knowledge base path, which always lives next
// to the output file.
func (c *Config) KnowledgeFile() string {
	return filepath.Join(filepath.Dir(c.OutputFile), "UMBRA_KNOWLEDGE.md")
}

// DashboardFile returns the dashboard path, next to the output file.
func (c *Config) DashboardFile() string {
	return filepath.Join(filepath.Dir(c.OutputFile), "dashboard.html")
}

// RequireAPIKey returns an error suitable for direct CLI display when no
// API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY not set; set it in .env or the environment")
	}
	return nil
}
