package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the user's persistent configuration preferences.
type Config struct {
	LLMProvider string  `json:"llm_provider,omitempty"` // openai, anthropic, kimi, etc.
	APIKey      string  `json:"api_key,omitempty"`      // The API key for the selected provider
	Model       string  `json:"model,omitempty"`        // Model override applied to every tier
	BaseURL     string  `json:"base_url,omitempty"`     // Optional override for API base URL
	Tier        string  `json:"tier,omitempty"`         // Default capability tier: fast, smart, creative
	MaxCostUSD  float64 `json:"max_cost_usd,omitempty"` // Default per-run spend ceiling
	ArchiveRuns bool    `json:"archive_runs"`           // Whether to persist finished runs
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}

	return &Manager{
		configDir: filepath.Join(configDir, "agentloop"),
	}, nil
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// GetDataPath returns the absolute path for a data file (like the run
// archive database) under the config directory.
func (m *Manager) GetDataPath(name string) string {
	return filepath.Join(m.configDir, name)
}

// Load reads the configuration from disk.
// If the file does not exist, it returns an empty Config and no error.
func (m *Manager) Load() (*Config, error) {
	path := m.GetConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config json: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions (0600).
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := m.GetConfigPath()
	// The file can carry an API key; owner-only permissions.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}

// ApplyEnv exports the stored provider selection into the environment so
// the provider factory picks it up. Existing environment variables win.
func (cfg *Config) ApplyEnv() {
	setIfUnset := func(key, value string) {
		if value != "" && os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	setIfUnset("LLM_PROVIDER", cfg.LLMProvider)

	switch cfg.LLMProvider {
	case "anthropic":
		setIfUnset("ANTHROPIC_API_KEY", cfg.APIKey)
		setIfUnset("ANTHROPIC_MODEL", cfg.Model)
	case "kimi":
		setIfUnset("KIMI_API_KEY", cfg.APIKey)
		setIfUnset("KIMI_MODEL", cfg.Model)
		setIfUnset("KIMI_BASE_URL", cfg.BaseURL)
	case "deepseek":
		setIfUnset("DEEPSEEK_API_KEY", cfg.APIKey)
		setIfUnset("DEEPSEEK_MODEL", cfg.Model)
	case "groq":
		setIfUnset("GROQ_API_KEY", cfg.APIKey)
		setIfUnset("GROQ_MODEL", cfg.Model)
	default:
		setIfUnset("OPENAI_API_KEY", cfg.APIKey)
		setIfUnset("OPENAI_MODEL", cfg.Model)
		setIfUnset("OPENAI_BASE_URL", cfg.BaseURL)
	}
}
