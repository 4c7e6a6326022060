// Package config provides configuration management for netaudit.
//
// The config file carries everything an audit run needs except secrets:
// device list location, SSH settings, rule selection and per-rule options,
// report destinations and the history database path. Secrets (SSH password,
// SNMP keys) come from flags or the environment so the file can live in
// version control.
//
// Config file locations (priority order):
//  1. $NETAUDIT_CONFIG
//  2. ./netaudit.yaml
//  3. ~/.config/netaudit/config.yaml
//  4. /etc/netaudit/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables carrying secrets kept out of the config file.
const (
	EnvSSHPassword = "NETAUDIT_SSH_PASSWORD"
	EnvSNMPUser    = "NETAUDIT_SNMP_USER"
	EnvSNMPAuthKey = "NETAUDIT_SNMP_AUTH_KEY"
	EnvSNMPPrivKey = "NETAUDIT_SNMP_PRIV_KEY"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, path, nil
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()

	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = Duration(15 * time.Second)
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = Duration(30 * time.Second)
	}
	if c.SNMP.AuthProtocol == "" {
		c.SNMP.AuthProtocol = "SHA"
	}
	if c.SNMP.PrivProtocol == "" {
		c.SNMP.PrivProtocol = "AES"
	}
	if c.Audit.Workers == 0 {
		c.Audit.Workers = 10
	}
	if c.Audit.RuleTimeout == 0 {
		c.Audit.RuleTimeout = Duration(60 * time.Second)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.CSV == "" && c.Output.HTML == "" && c.Output.JSON == "" {
		c.Output.CSV = "audit.csv"
		c.Output.HTML = "audit.html"
	}
	if c.History.Path == "" {
		c.History.Path = "./netaudit.db"
	}
	if c.Prescan.Ports == "" {
		c.Prescan.Ports = "22"
	}
}

// applyEnv overlays secrets from the environment. Values already present in
// the file win so an explicit config stays reproducible.
func (c *Config) applyEnv() {
	if c.SSH.Password == "" {
		c.SSH.Password = os.Getenv(EnvSSHPassword)
	}
	if c.SNMP.User == "" {
		c.SNMP.User = os.Getenv(EnvSNMPUser)
	}
	if c.SNMP.AuthKey == "" {
		c.SNMP.AuthKey = os.Getenv(EnvSNMPAuthKey)
	}
	if c.SNMP.PrivKey == "" {
		c.SNMP.PrivKey = os.Getenv(EnvSNMPPrivKey)
	}
}

// RuleSettings returns one rule's settings, never nil
func (c *Config) RuleSettings(name string) map[string]string {
	if s, ok := c.Rules.Settings[name]; ok {
		return s
	}

	return map[string]string{}
}
