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
	fanStateLineRE = regexp.MustCompile(`(?i)(Normal|Abnormal|Faulty|Absent)`)
	fanNormalRE    = regexp.MustCompile(`(?i)Normal`)
	fanFailureRE   = regexp.MustCompile(`(\d+)\s*/\s*(\d+)\s*Fans in Failure State`)
	fanRatioRE     = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
)

// AnalyseFans counts healthy fans versus detected fans. It prefers
// per-fan state lines, then the ProCurve failure summary, then any x/y
// ratio. The third return is false when the output carries no fan data.
func AnalyseFans(output string) (ok, total int, found bool) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if !fanStateLineRE.MatchString(line) {
			continue
		}

		total++
		if fanNormalRE.MatchString(line) {
			ok++
		}
	}

	if total > 0 {
		return ok, total, true
	}

	if m := fanFailureRE.FindStringSubmatch(output); m != nil {
		ko, _ := strconv.Atoi(m[1])
		total, _ = strconv.Atoi(m[2])

		return total - ko, total, true
	}

	if m := fanRatioRE.FindStringSubmatch(output); m != nil {
		ok, _ = strconv.Atoi(m[1])
		total, _ = strconv.Atoi(m[2])

		return ok, total, true
	}

	return 0, 0, false
}

// FanHealthRule checks that every detected fan reports a normal state.
type FanHealthRule struct{}

func (FanHealthRule) Name() string { return "fan_health" }

func (FanHealthRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (FanHealthRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands", "display fan,display device,show system fans")

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil {
			continue
		}

		ok, total, found := AnalyseFans(out)
		if !found {
			continue
		}

		switch {
		case total == 0:
			return compliant("no fan detected via " + command)
		case ok == total:
			return compliant(fmt.Sprintf("fans %d/%d ok via %s", ok, total, command))
		default:
			return nonCompliant(fmt.Sprintf("fan anomaly %d/%d via %s", ok, total, command))
		}
	}

	return evalError("no usable fan data")
}
