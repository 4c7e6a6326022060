// Package rule defines the compliance rule contract and the built-in rule
// catalog. A rule is a named, stateless unit of compliance logic: it reads the
// device and its session, never mutates shared state, and may run concurrently
// against different devices.
package rule

import (
	"context"
	"strconv"
	"strings"

	"netaudit/internal/domain"
	"netaudit/internal/session"
)

// Config holds one rule's settings from the configuration layer. Values are
// strings; the accessors apply defaults and conversions.
type Config map[string]string

// Get returns the value for key, or def when unset.
func (c Config) Get(key, def string) string {
	if v, ok := c[key]; ok && v != "" {
		return v
	}

	return def
}

// Float returns the value for key as a float, or def when unset or malformed.
func (c Config) Float(key string, def float64) float64 {
	v, ok := c[key]
	if !ok || v == "" {
		return def
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}

	return f
}

// Int returns the value for key as an int, or def when unset or malformed.
func (c Config) Int(key string, def int) int {
	v, ok := c[key]
	if !ok || v == "" {
		return def
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}

	return n
}

// List splits a comma-separated value into trimmed, non-empty items. def is
// parsed the same way when the key is unset.
func (c Config) List(key, def string) []string {
	return SplitList(c.Get(key, def))
}

// SplitList normalizes a comma-separated configuration value.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}

	return items
}

// Target is what one rule invocation may touch: the device's session, the
// discovered device snapshot, the raw discovery output and the SNMP
// credentials borrowed from the caller. Nothing else.
type Target struct {
	Shell    session.Shell
	Device   *domain.Device
	Platform *domain.PlatformInfo
	SNMP     *domain.SNMPCredentials
}

// Rule is one compliance check. Implementations must be stateless: the same
// instance is invoked concurrently against different devices.
type Rule interface {
	// Name is the unique identifier used for selection and reporting.
	Name() string

	// Applicable reports whether the rule is relevant to the discovered
	// platform. Inapplicable rules are recorded as skipped, never run.
	Applicable(device *domain.Device) bool

	// Run evaluates the rule. It returns a result, never panics by contract;
	// the execution engine still guards against defects with its own
	// isolation boundary.
	Run(ctx context.Context, target Target, cfg Config) domain.RuleResult
}

func compliant(detail string) domain.RuleResult {
	return domain.RuleResult{Verdict: domain.VerdictCompliant, Detail: detail}
}

func nonCompliant(detail string) domain.RuleResult {
	return domain.RuleResult{Verdict: domain.VerdictNonCompliant, Detail: detail}
}

func evalError(detail string) domain.RuleResult {
	return domain.RuleResult{Verdict: domain.VerdictError, Detail: detail}
}

// sendPaged wraps session.SendPaged and keeps rule code terse.
func sendPaged(ctx context.Context, t Target, command string) (string, error) {
	return session.SendPaged(ctx, t.Shell, command)
}

// disablePaging turns the pager off for the device's dialect, honoring a
// per-rule override.
func disablePaging(ctx context.Context, t Target, cfg Config) {
	overrides := SplitList(cfg.Get("disable_paging", ""))
	session.DisablePaging(ctx, t.Shell, session.DisablePagingCommands(t.Device.Vendor, overrides))
}

var rejectedOutput = []string{"Unrecognized", "Invalid", "Unknown command", "Incomplete input"}

func rejected(output string) bool {
	for _, marker := range rejectedOutput {
		if strings.Contains(output, marker) {
			return true
		}
	}

	return false
}

// firstUsableCommand tries commands in order and returns the first non-empty
// output the device did not reject.
func firstUsableCommand(ctx context.Context, t Target, commands []string) (string, string, error) {
	var lastErr error

	for _, command := range commands {
		output, err := sendPaged(ctx, t, command)
		if err != nil {
			lastErr = err
			continue
		}

		if strings.TrimSpace(output) == "" || rejected(output) {
			continue
		}

		return command, output, nil
	}

	return "", "", lastErr
}
