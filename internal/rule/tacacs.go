package rule

import (
	"context"
	"regexp"

	"netaudit/internal/domain"
)

// TacacsRule verifies that a TACACS or HWTACACS scheme is configured by
// grepping the running configuration for a vendor pattern.
type TacacsRule struct{}

func (TacacsRule) Name() string { return "tacacs" }

func (TacacsRule) Applicable(*domain.Device) bool { return true }

func (TacacsRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	command := commandFor(t.Device.Vendor, cfg)
	if command == "" {
		return evalError("no tacacs lookup command for this platform")
	}

	out, err := sendPaged(ctx, t, command)
	if err != nil {
		return evalError("command failed: " + err.Error())
	}

	if rejected(out) {
		return evalError("device rejected " + command)
	}

	pattern := cfg.Get("pattern", `(?i)(hwtacacs|tacacs)`)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return evalError("invalid tacacs pattern: " + err.Error())
	}

	if re.MatchString(out) {
		return compliant("tacacs scheme present in running configuration")
	}

	return nonCompliant("no tacacs scheme configured")
}

func commandFor(vendor domain.Vendor, cfg Config) string {
	if c := cfg.Get("command", ""); c != "" {
		return c
	}

	if vendor.ComwareFamily() || vendor == domain.VendorHuawei {
		return "display current-configuration | include tacacs"
	}

	return "show running-config | include tacacs"
}
