package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Domain   string   `yaml:"domain"`
	Sources  Sources  `yaml:"sources"`
	Oracle   Oracle   `yaml:"oracle"`
	Pipeline Pipeline `yaml:"pipeline"`
	Output   Output   `yaml:"output"`
	Logging  Logging  `yaml:"logging"`
}

type Sources struct {
	Feeds []Feed     `yaml:"feeds"`
	APIs  APIsConfig `yaml:"apis"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type APIsConfig struct {
	NewsAPI NewsAPIConfig `yaml:"newsapi"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
}

type Oracle struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	OllamaURL      string `yaml:"ollama_url"`
	OpenAIModel    string `yaml:"openai_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Pipeline struct {
	RetentionDays     int `yaml:"retention_days"`
	CollectDaysBack   int `yaml:"collect_days_back"`
	TriageBatchSize   int `yaml:"triage_batch_size"`
	AnalysisBatchSize int `yaml:"analysis_batch_size"`
	ReindexBatchSize  int `yaml:"reindex_batch_size"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsintel.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsintel")
}

// DataDir returns the XDG data directory for newsintel.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsintel")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsintel/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsintel init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Domain: "afl",
		Sources: Sources{
			APIs: APIsConfig{
				NewsAPI: NewsAPIConfig{
					APIKeyEnv: "NEWSAPI_KEY",
					Query:     "AFL fantasy football",
				},
			},
		},
		Oracle: Oracle{
			Provider:       "ollama",
			Model:          "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			OpenAIModel:    "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Pipeline: Pipeline{
			RetentionDays:     7,
			CollectDaysBack:   3,
			TriageBatchSize:   50,
			AnalysisBatchSize: 20,
			ReindexBatchSize:  100,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
