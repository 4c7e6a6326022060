package rule

import (
	"context"
	"fmt"
	"strings"

	"netaudit/internal/domain"
)

// SNMPTrapRule verifies the trap configuration on Comware platforms: traps
// must be globally enabled and at least the configured number of target
// hosts must be present.
type SNMPTrapRule struct{}

func (SNMPTrapRule) Name() string { return "snmp_trap" }

func (SNMPTrapRule) Applicable(d *domain.Device) bool { return d.Vendor.ComwareFamily() }

func (SNMPTrapRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	out, err := sendPaged(ctx, t, cfg.Get("command", "display current-configuration | include snmp-agent"))
	if err != nil {
		return evalError("command failed: " + err.Error())
	}

	if rejected(out) {
		return evalError("device rejected snmp-agent lookup")
	}

	lines := make([]string, 0, 16)

	for _, line := range strings.Split(out, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) < 2 {
		return nonCompliant("snmp configuration incomplete or empty")
	}

	var (
		trapEnabled bool
		targets     int
	)

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "snmp-agent trap enable"):
			trapEnabled = true
		case strings.HasPrefix(line, "snmp-agent target-host"):
			targets++
		}
	}

	var issues []string

	if !trapEnabled {
		issues = append(issues, "snmp traps not enabled")
	}

	for _, required := range cfg.List("required_targets", "") {
		found := false

		for _, line := range lines {
			if strings.HasPrefix(line, "snmp-agent target-host") && strings.Contains(line, required) {
				found = true
				break
			}
		}

		if !found {
			issues = append(issues, "trap target "+required+" missing")
		}
	}

	if minTargets := cfg.Int("min_targets", 2); targets < minTargets {
		issues = append(issues, fmt.Sprintf("only %d of %d target hosts configured", targets, minTargets))
	}

	if len(issues) > 0 {
		return nonCompliant(strings.Join(issues, "; "))
	}

	return compliant(fmt.Sprintf("traps enabled with %d target hosts", targets))
}
