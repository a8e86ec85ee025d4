package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models pactline.yml.
type Config struct {
	Workspace struct {
		Name   string `yaml:"name"`
		Tenant string `yaml:"tenant"`
	} `yaml:"workspace"`
	Contract struct {
		APIVersion     string `yaml:"api_version"`
		Kind           string `yaml:"kind"`
		InitialVersion string `yaml:"initial_version"`
	} `yaml:"contract"`
	Catalog struct {
		Domains         []string `yaml:"domains"`
		Classifications []string `yaml:"classifications"`
		SLAProperties   []string `yaml:"sla_properties"`
		QualityEngines  []string `yaml:"quality_engines"`
	} `yaml:"catalog"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig describes one outbound event subscription.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with pl config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Workspace.Name == "" {
		return fmt.Errorf("config.workspace.name is required")
	}
	if c.Contract.APIVersion == "" {
		return fmt.Errorf("config.contract.api_version is required")
	}
	if c.Contract.Kind != "DataContract" {
		return fmt.Errorf("config.contract.kind must be 'DataContract'")
	}
	if c.Contract.InitialVersion == "" {
		return fmt.Errorf("config.contract.initial_version is required")
	}
	for i, cl := range c.Catalog.Classifications {
		if cl == "" {
			return fmt.Errorf("config.catalog.classifications[%d] is empty", i)
		}
	}
	for i, p := range c.Catalog.SLAProperties {
		if p == "" {
			return fmt.Errorf("config.catalog.sla_properties[%d] is empty", i)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "pactline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(name string) string {
	return fmt.Sprintf(defaultTemplate, name)
}

// Default returns the default Config struct for a workspace.
func Default(name string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, name))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workspace:
  name: %s
  tenant: ""

contract:
  api_version: v3.1.0
  kind: DataContract
  initial_version: 0.1.0

catalog:
  domains:
    - sales
    - finance
    - marketing
    - operations
  classifications:
    - public
    - internal
    - confidential
    - pii
    - sensitive
  sla_properties:
    - latency
    - availability
    - freshness
    - retention
    - frequency
  quality_engines:
    - monte-carlo
    - great-expectations
    - soda
    - dbt

webhooks: []
`
