package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Load reads a JSON5 config file and merges it over Default().
// A missing file is not an error: defaults are returned so first runs work
// without any setup.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.resolveSecrets()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.resolveSecrets()
	return cfg, nil
}

// DefaultPath returns the config file location (~/.mogzi/config.json),
// overridable via MOGZI_CONFIG.
func DefaultPath() string {
	if v := os.Getenv("MOGZI_CONFIG"); v != "" {
		return v
	}
	return ExpandHome("~/.mogzi/config.json")
}

func (c *Config) validate() error {
	switch c.Tools.Approvals {
	case "", ApprovalReadonly, ApprovalAll:
	default:
		return fmt.Errorf("config: tools.approvals must be %q or %q, got %q",
			ApprovalReadonly, ApprovalAll, c.Tools.Approvals)
	}
	if c.Tools.Approvals == "" {
		c.Tools.Approvals = ApprovalReadonly
	}
	return nil
}

func (c *Config) resolveSecrets() {
	if c.Provider.APIKeyEnv != "" {
		c.Provider.APIKey = os.Getenv(c.Provider.APIKeyEnv)
	}
}
