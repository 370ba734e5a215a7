package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the aicraftd server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite database file. Empty selects the in-memory store.
	DBPath string `yaml:"db_path"`

	// Provider selects the agent runtime: "anthropic" or "openai".
	Provider string `yaml:"provider"`
	// Model overrides the provider's default model.
	Model string `yaml:"model"`
	// MaxTurns bounds one deployment's model/tool loop.
	MaxTurns int `yaml:"max_turns"`

	// AvatarBin is an external image generation command; empty disables
	// avatar generation.
	AvatarBin string `yaml:"avatar_bin"`
	// AvatarDir is the directory avatar images are written to.
	AvatarDir string `yaml:"avatar_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaults() Config {
	return Config{
		Listen:    ":8080",
		Provider:  "anthropic",
		AvatarDir: "avatars",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadConfig reads the YAML config at path, applying defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, cfg.validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Provider {
	case "anthropic", "openai", "scripted":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}
