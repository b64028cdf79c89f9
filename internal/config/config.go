// Package config loads site definitions from a YAML file and secrets from
// the environment. Validation runs before any network or store activity.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModeDeal makes the orchestrator run the deal refresh pass before crawling.
const ModeDeal = "deal"

// Site is one configured retailer. The yaml keys match the original
// operator-facing setting names.
type Site struct {
	Name     string `yaml:"name"`
	Domain   string `yaml:"domain"`
	URL      string `yaml:"url"`
	Label    string `yaml:"label"`
	BannerID string `yaml:"id"`
	StoreID  string `yaml:"store"`
	APIKey   string `yaml:"apikey"`
	APIRoot  string `yaml:"apiroot"`
	Mode     string `yaml:"mode"` // optional; "deal" enables the refresh pass

	// HTTPClient overrides the upstream transport, for tests.
	HTTPClient *http.Client `yaml:"-"`
}

// Validate reports the first missing required setting.
func (s Site) Validate() error {
	for _, f := range []struct {
		key   string
		value string
	}{
		{"name", s.Name},
		{"domain", s.Domain},
		{"url", s.URL},
		{"label", s.Label},
		{"id", s.BannerID},
		{"store", s.StoreID},
		{"apikey", s.APIKey},
		{"apiroot", s.APIRoot},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("setting %q is absent", f.key)
		}
	}
	return nil
}

type Config struct {
	Sites []Site `yaml:"sites"`
}

// Load reads the site file. ${VAR} references are expanded from the
// environment so API keys can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Sites) == 0 {
		return nil, fmt.Errorf("config %s defines no sites", path)
	}
	for _, site := range cfg.Sites {
		if err := site.Validate(); err != nil {
			return nil, fmt.Errorf("site %q: %w", site.Name, err)
		}
	}
	return &cfg, nil
}
