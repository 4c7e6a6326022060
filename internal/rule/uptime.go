package rule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"netaudit/internal/domain"
)

var (
	uptimeReasonRE = regexp.MustCompile(`(?i)(?:Last\s+reboot\s+reason\s*:\s*(.+))|(?:Reboot\s+Cause\s*:\s*(.+))`)
	uptimeIsRE     = regexp.MustCompile(`(?i)\buptime\s+is\s+(.+)`)
	uptimeColonRE  = regexp.MustCompile(`(?i)\bUp\s*Time\s*[:=]\s*(.+)`)
	uptimeTrailRE  = regexp.MustCompile(`\s{2,}(Memory|CPU|Base|Software|ROM)`)
	uptimeSpanRE   = regexp.MustCompile(`(?i)(?:(\d+)\s*weeks?)?\s*,?\s*(?:(\d+)\s*days?)?\s*,?\s*(?:(\d+)\s*hours?)?\s*,?\s*(?:(\d+)\s*minutes?)?`)
	uptimeDaysRE   = regexp.MustCompile(`(?i)(\d+)\s*days?`)
)

// ParseUptime extracts the uptime, the reboot reason and the uptime in
// seconds from a version display. The uptime string is empty when the
// output carries no uptime at all.
func ParseUptime(output string) (uptime, reason string, seconds int) {
	reason = "NA"

	if m := uptimeReasonRE.FindStringSubmatch(output); m != nil {
		if r := strings.TrimSpace(m[1] + m[2]); r != "" {
			reason = r
		}
	}

	m := uptimeIsRE.FindStringSubmatch(output)
	if m == nil {
		m = uptimeColonRE.FindStringSubmatch(output)
	}

	if m == nil {
		return "", reason, 0
	}

	raw := strings.TrimSpace(m[1])
	if loc := uptimeTrailRE.FindStringIndex(raw); loc != nil {
		raw = strings.TrimSpace(raw[:loc[0]])
	}

	var weeks, days, hours, minutes int

	if span := uptimeSpanRE.FindStringSubmatch(raw); span != nil {
		weeks = atoiOrZero(span[1])
		days = atoiOrZero(span[2])
		hours = atoiOrZero(span[3])
		minutes = atoiOrZero(span[4])
	} else if d := uptimeDaysRE.FindStringSubmatch(raw); d != nil {
		days = atoiOrZero(d[1])
	}

	seconds = weeks*7*86400 + days*86400 + hours*3600 + minutes*60

	if weeks+days+hours+minutes > 0 {
		uptime = fmt.Sprintf("%d weeks, %d days, %d hours, %d minutes", weeks, days, hours, minutes)
	} else {
		uptime = raw
	}

	return uptime, reason, seconds
}

func atoiOrZero(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

// UptimeRule flags recently rebooted devices. It reuses the version output
// captured during discovery when available and only issues commands when
// that output carries no uptime.
type UptimeRule struct{}

func (UptimeRule) Name() string { return "uptime" }

func (UptimeRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (UptimeRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	threshold := cfg.Int("minimum_seconds", 86400)

	cachedCmd := ""

	if t.Platform != nil && t.Platform.Raw != "" {
		cachedCmd = strings.ToLower(strings.TrimSpace(t.Platform.ProbeCommand))

		if uptime, reason, seconds := ParseUptime(t.Platform.Raw); uptime != "" {
			return verdictForUptime(uptime, reason, seconds, threshold, t.Platform.ProbeCommand)
		}
	}

	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display version,show version,show system information,show system")

	for _, command := range commands {
		if strings.ToLower(strings.TrimSpace(command)) == cachedCmd {
			continue
		}

		out, err := sendPaged(ctx, t, command)
		if err != nil || out == "" {
			continue
		}

		if uptime, reason, seconds := ParseUptime(out); uptime != "" {
			return verdictForUptime(uptime, reason, seconds, threshold, command)
		}
	}

	return evalError("no uptime information")
}

func verdictForUptime(uptime, reason string, seconds, threshold int, source string) domain.RuleResult {
	if seconds >= threshold {
		return compliant(fmt.Sprintf("uptime %s (reboot reason: %s) via %s", uptime, reason, source))
	}

	return nonCompliant(fmt.Sprintf("recent reboot (%s), threshold %dh, via %s",
		uptime, threshold/3600, source))
}
