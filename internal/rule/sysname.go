package rule

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"netaudit/internal/domain"
)

// SysnameRule checks the discovered hostname against the naming convention:
// an allowed prefix list and/or a full-match pattern list.
type SysnameRule struct{}

func (SysnameRule) Name() string { return "sysname" }

// Applicable everywhere: the hostname comes from discovery, not from a
// vendor-specific command.
func (SysnameRule) Applicable(*domain.Device) bool { return true }

func (SysnameRule) Run(_ context.Context, t Target, cfg Config) domain.RuleResult {
	hostname := t.Device.Hostname
	if hostname == "" {
		return evalError("no hostname discovered")
	}

	upper := strings.ToUpper(hostname)

	allowed := false

	for _, prefix := range cfg.List("prefixes", "") {
		if strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			allowed = true
			break
		}
	}

	if !allowed {
		for _, pattern := range cfg.List("patterns", "") {
			re, err := regexp.Compile("^(?:" + pattern + ")$")
			if err != nil {
				continue
			}

			if re.MatchString(upper) {
				allowed = true
				break
			}
		}
	}

	if allowed {
		return compliant(fmt.Sprintf("hostname %q matches the naming convention", hostname))
	}

	return nonCompliant(fmt.Sprintf("hostname %q outside the naming convention", hostname))
}
