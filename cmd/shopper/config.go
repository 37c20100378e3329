package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPIURL = "http://localhost:4000"
	envConfigPath = "STOREFRONT_SHOPPER_CONFIG"
)

// cliConfig is read from ~/.config/storefront/config.yaml. Flags win over
// file values.
type cliConfig struct {
	APIURL  string `yaml:"api_url"`
	DataDir string `yaml:"data_dir"`
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront")
	}
	return ".storefront"
}

func defaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// loadConfig reads path. A missing file yields defaults.
func loadConfig(path string) (cliConfig, error) {
	cfg := cliConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *cliConfig) applyDefaults() {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = filepath.Join(defaultConfigDir(), "data")
	}
}
