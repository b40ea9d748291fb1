package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ApprovalMode controls which tools are allowed to mutate state.
type ApprovalMode string

const (
	ApprovalReadonly ApprovalMode = "readonly"
	ApprovalAll      ApprovalMode = "all"
)

// Config is the root configuration for mogzi.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Tools    ToolsConfig    `json:"tools"`
	Sessions SessionsConfig `json:"sessions"`
	mu       sync.RWMutex
}

// ProviderConfig configures the chat client.
// APIKey is never read from the config file; it comes only from the env
// var named by APIKeyEnv.
type ProviderConfig struct {
	BaseURL       string `json:"base_url"`
	Model         string `json:"model"`
	APIKeyEnv     string `json:"api_key_env,omitempty"`
	APIKey        string `json:"-"`
	ContextWindow int    `json:"context_window,omitempty"`
	MaxTokens     int    `json:"max_tokens,omitempty"`
	// IdleTimeoutSec aborts a stream when no content arrives for this long.
	IdleTimeoutSec int `json:"idle_timeout_sec,omitempty"`
}

// ToolsConfig configures tool execution policy.
type ToolsConfig struct {
	Approvals ApprovalMode `json:"approvals"`
}

// SessionsConfig configures session storage.
type SessionsConfig struct {
	ChatsDir  string `json:"chats_dir,omitempty"`
	ListLimit int    `json:"list_limit,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:        "https://api.anthropic.com",
			Model:          "claude-sonnet-4-5-20250929",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			ContextWindow:  200000,
			MaxTokens:      8192,
			IdleTimeoutSec: 120,
		},
		Tools: ToolsConfig{
			Approvals: ApprovalReadonly,
		},
		Sessions: SessionsConfig{
			ChatsDir:  "~/.mogzi/chats",
			ListLimit: 10,
		},
	}
}

// ProviderConfig returns a copy of the provider settings.
func (c *Config) ProviderConfig() ProviderConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Provider
}

// IdleTimeout converts the configured idle timeout to a duration.
func (p ProviderConfig) IdleTimeout() time.Duration {
	if p.IdleTimeoutSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.IdleTimeoutSec) * time.Second
}

// Approvals returns the current tool approval mode.
func (c *Config) Approvals() ApprovalMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Tools.Approvals
}

// SetApprovals mutates the live approval mode (slash command / config reload).
func (c *Config) SetApprovals(mode ApprovalMode) error {
	switch mode {
	case ApprovalReadonly, ApprovalAll:
	default:
		return fmt.Errorf("invalid approval mode %q", mode)
	}
	c.mu.Lock()
	c.Tools.Approvals = mode
	c.mu.Unlock()
	return nil
}

// ChatsDir returns the expanded chats root directory.
func (c *Config) ChatsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Sessions.ChatsDir)
}

// SessionListLimit caps interactive session listings.
func (c *Config) SessionListLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Sessions.ListLimit <= 0 {
		return 10
	}
	return c.Sessions.ListLimit
}

// ExpandHome expands a leading ~ to the user home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
