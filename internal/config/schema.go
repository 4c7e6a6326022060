package config

import (
	"time"

	"netaudit/internal/logger"
)

// Config is the root configuration structure
type Config struct {
	Logging logger.Config `yaml:"logging"`
	SSH     SSHConfig     `yaml:"ssh"`
	SNMP    SNMPConfig    `yaml:"snmp"`
	Audit   AuditConfig   `yaml:"audit"`
	Rules   RulesConfig   `yaml:"rules"`
	Output  OutputConfig  `yaml:"output"`
	History HistoryConfig `yaml:"history"`
	Prescan PrescanConfig `yaml:"prescan"`
}

// SSHConfig holds connection settings. Password is usually left out of the
// file and supplied via flag or environment.
type SSHConfig struct {
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password,omitempty"`
	Port           int      `yaml:"port"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"`
}

// SNMPConfig holds the SNMPv3 USM parameters used by the snmp_v3 rule
type SNMPConfig struct {
	User         string `yaml:"user,omitempty"`
	AuthKey      string `yaml:"auth_key,omitempty"`
	PrivKey      string `yaml:"priv_key,omitempty"`
	AuthProtocol string `yaml:"auth_protocol"`
	PrivProtocol string `yaml:"priv_protocol"`
}

// AuditConfig holds orchestration settings
type AuditConfig struct {
	// DeviceFile is a text file with one device address per line.
	DeviceFile string `yaml:"device_file,omitempty"`

	// Devices lists addresses inline, appended after DeviceFile entries.
	Devices []string `yaml:"devices,omitempty"`

	Workers      int      `yaml:"workers"`
	BatchTimeout Duration `yaml:"batch_timeout,omitempty"`
	RuleTimeout  Duration `yaml:"rule_timeout"`
}

// RulesConfig selects rules and carries their per-rule settings
type RulesConfig struct {
	// Active lists rule names to run; empty or "all" means every rule.
	Active []string `yaml:"active,omitempty"`

	// Settings is keyed by rule name; values are that rule's options.
	Settings map[string]map[string]string `yaml:"settings,omitempty"`
}

// OutputConfig holds report destinations; an empty field disables that
// format. When every format is empty, CSV and HTML defaults are applied.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	CSV  string `yaml:"csv,omitempty"`
	HTML string `yaml:"html,omitempty"`
	JSON string `yaml:"json,omitempty"`
}

// HistoryConfig holds audit history database settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PrescanConfig controls the optional reachability scan before the audit
type PrescanConfig struct {
	Enabled bool   `yaml:"enabled"`
	Ports   string `yaml:"ports"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the wrapped value
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
