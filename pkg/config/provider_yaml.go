package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the configuration from the YAML file. Defaults are not
// applied here so that later layers can still tell unset values apart.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{}
	if err := yaml.Unmarshal(cfgFile, config); err != nil {
		return nil, err
	}

	return config, nil
}

// staticProvider serves a fixed configuration
type staticProvider struct {
	cfg *ConfigData
}

// NewStaticProvider wraps an already-built configuration
func NewStaticProvider(cfg *ConfigData) ConfigProvider {
	return &staticProvider{cfg: cfg}
}

func (s *staticProvider) LoadConfig() (*ConfigData, error) {
	c := *s.cfg
	c.Locations = append([]LocationData(nil), s.cfg.Locations...)
	return &c, nil
}
