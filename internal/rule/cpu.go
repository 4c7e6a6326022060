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
	cpuControlPlaneRE = regexp.MustCompile(`(?is)Control\s+Plane(.*?)(?:Data\s+Plane|$)`)
	cpuNowRE          = regexp.MustCompile(`(?i)CPU\s*Usage:\s*([\d.]+)\s*%`)
	cpuHistoryRE      = regexp.MustCompile(`(?is)ten\s*seconds:\s*([\d.]+)%.*?one\s*minute:\s*([\d.]+)%.*?five\s*minutes:\s*([\d.]+)%`)
	cpuGenericRE      = regexp.MustCompile(`(?is)(\d+(?:\.\d+)?)%\s*in\s*last\s*5\s*seconds.*?(\d+(?:\.\d+)?)%\s*in\s*last\s*1\s*minute.*?(\d+(?:\.\d+)?)%\s*in\s*last\s*5\s*minutes`)
	cpuTextualRE      = regexp.MustCompile(`(?is)Five\s*seconds:\s*(\d+(?:\.\d+)?)%.*?One\s*minute:\s*(\d+(?:\.\d+)?)%.*?Five\s*minutes:\s*(\d+(?:\.\d+)?)%`)
	cpuIdleRE         = regexp.MustCompile(`(?i)idle[^0-9]*?(\d+(?:\.\d+)?)\s*%`)
)

// cpuSample is one CPU load reading with its window label.
type cpuSample struct {
	Label string
	Value float64
}

// ParseCPUOutput extracts CPU load samples from a show/display cpu output.
// It tries the Comware control-plane layout, then the 5s/1m/5m variants,
// then an idle-percentage fallback.
func ParseCPUOutput(output string) []cpuSample {
	if m := cpuControlPlaneRE.FindStringSubmatch(output); m != nil {
		var samples []cpuSample

		block := m[1]
		if now := cpuNowRE.FindStringSubmatch(block); now != nil {
			samples = append(samples, cpuSample{"Now", mustFloat(now[1])})
		}

		if hist := cpuHistoryRE.FindStringSubmatch(block); hist != nil {
			samples = append(samples,
				cpuSample{"10s", mustFloat(hist[1])},
				cpuSample{"1m", mustFloat(hist[2])},
				cpuSample{"5m", mustFloat(hist[3])},
			)
		}

		if len(samples) > 0 {
			return samples
		}
	}

	for _, re := range []*regexp.Regexp{cpuGenericRE, cpuTextualRE} {
		if m := re.FindStringSubmatch(output); m != nil {
			return []cpuSample{
				{"5s", mustFloat(m[1])},
				{"1m", mustFloat(m[2])},
				{"5m", mustFloat(m[3])},
			}
		}
	}

	if m := cpuIdleRE.FindStringSubmatch(output); m != nil {
		return []cpuSample{{"Now", 100 - mustFloat(m[1])}}
	}

	return nil
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// CPUUsageRule samples the CPU load and compares the average and the peak
// against configurable thresholds.
type CPUUsageRule struct{}

func (CPUUsageRule) Name() string { return "cpu_usage" }

func (CPUUsageRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (CPUUsageRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display cpu-usage,display cpu,show cpu,show processes cpu,show processes cpu history")

	var (
		samples []cpuSample
		usedCmd string
	)

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil {
			continue
		}

		if samples = ParseCPUOutput(out); samples != nil {
			usedCmd = command
			break
		}
	}

	if len(samples) == 0 {
		return evalError("no cpu metric found")
	}

	var sum, peak float64

	for _, s := range samples {
		sum += s.Value
		if s.Value > peak {
			peak = s.Value
		}
	}

	average := sum / float64(len(samples))

	averageThreshold := cfg.Float("average_threshold", 80)
	peakThreshold := cfg.Float("peak_threshold", 90)

	metrics := make([]string, 0, len(samples))
	for _, s := range samples {
		metrics = append(metrics, fmt.Sprintf("%s:%.1f%%", s.Label, s.Value))
	}

	detail := fmt.Sprintf("average %.1f%% / peak %.1f%% (%s) via %s",
		average, peak, strings.Join(metrics, ", "), usedCmd)

	if average <= averageThreshold && peak <= peakThreshold {
		return compliant("cpu load ok: " + detail)
	}

	return nonCompliant(fmt.Sprintf("cpu load high: %s, thresholds avg %.1f%% / peak %.1f%%",
		detail, averageThreshold, peakThreshold))
}
