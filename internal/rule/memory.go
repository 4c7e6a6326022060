package rule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"netaudit/internal/domain"
)

var memoryPercentRE = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// ExtractUsagePercent returns the first percentage figure found in a memory
// display, or false when the output carries none.
func ExtractUsagePercent(output string) (float64, bool) {
	m := memoryPercentRE.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// MemoryUsageRule checks that memory utilization stays under a threshold.
type MemoryUsageRule struct{}

func (MemoryUsageRule) Name() string { return "memory_usage" }

func (MemoryUsageRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (MemoryUsageRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display memory,display memory-usage,display system resource,show system resource-usage")

	var (
		percent float64
		found   bool
		usedCmd string
	)

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil {
			continue
		}

		if percent, found = ExtractUsagePercent(out); found {
			usedCmd = command
			break
		}
	}

	if !found {
		return evalError("no memory usage figure found")
	}

	threshold := cfg.Float("threshold", 85)

	detail := fmt.Sprintf("memory usage %.1f%% (threshold %.1f%%) via %s", percent, threshold, usedCmd)

	if percent <= threshold {
		return compliant(detail)
	}

	return nonCompliant(detail)
}
