// Package cli supports cmd/ldflags: a local evaluation CLI plus an
// optional "remote mode" that queries a running cmd/ldflags-service
// instance instead of evaluating locally, grounded on goflagship's
// internal/cli (YAML config file at ~/.flagship/config.yaml, flag >
// env var > config-file precedence for an environment's base URL and
// API key).
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the CLI's on-disk configuration: named remote environments
// cmd/ldflags can target in remote mode.
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig is one named remote environment's connection details.
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the path to the CLI config file.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ldflags", "config.yaml"), nil
}

// LoadConfig loads the configuration from file, returning an empty
// default config if the file doesn't exist yet.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{DefaultEnv: "prod", Environments: make(map[string]EnvConfig)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file.
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetEnvConfig resolves a remote environment's connection details.
// Priority: command flags > environment variables > config file.
func GetEnvConfig(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	if baseURLFlag != "" && apiKeyFlag != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env flag is required when using --base-url and --api-key flags")
		}
		return &EnvConfig{BaseURL: baseURLFlag, APIKey: apiKeyFlag}, envName, nil
	}

	envBaseURL := os.Getenv("LDFLAGS_BASE_URL")
	envAPIKey := os.Getenv("LDFLAGS_API_KEY")
	if envBaseURL != "" && envAPIKey != "" {
		if envName == "" {
			return nil, "", fmt.Errorf("--env flag is required when using LDFLAGS_BASE_URL and LDFLAGS_API_KEY environment variables")
		}
		return &EnvConfig{BaseURL: envBaseURL, APIKey: envAPIKey}, envName, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	if envName == "" {
		envName = cfg.DefaultEnv
	}

	envCfg, ok := cfg.Environments[envName]
	if !ok {
		return nil, "", fmt.Errorf("environment %q not found in config", envName)
	}

	if baseURLFlag != "" {
		envCfg.BaseURL = baseURLFlag
	} else if envBaseURL != "" {
		envCfg.BaseURL = envBaseURL
	}
	if apiKeyFlag != "" {
		envCfg.APIKey = apiKeyFlag
	} else if envAPIKey != "" {
		envCfg.APIKey = envAPIKey
	}

	if envCfg.BaseURL == "" || envCfg.APIKey == "" {
		return nil, "", fmt.Errorf("base_url and api_key must be configured for environment %q", envName)
	}
	return &envCfg, envName, nil
}

// InitConfig writes a starter config file with dev/staging/prod entries.
func InitConfig() error {
	cfg := &Config{
		DefaultEnv: "prod",
		Environments: map[string]EnvConfig{
			"dev":     {BaseURL: "http://localhost:8080", APIKey: "dev-key"},
			"staging": {BaseURL: "https://staging.example.com", APIKey: "staging-key"},
			"prod":    {BaseURL: "https://flags.example.com", APIKey: "prod-key"},
		},
	}
	return SaveConfig(cfg)
}
