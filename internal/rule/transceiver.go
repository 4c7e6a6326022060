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
	transceiverHeadRE  = regexp.MustCompile(`(?i)((?:GigabitEthernet|Ten[- ]?GigabitEthernet|Forty[- ]?GigabitEthernet|Hundred[- ]?GigE)\S+)\s+transceiver\s+diagnostic\s+information:`)
	transceiverValueRE = regexp.MustCompile(`(?is)(Temperature|Voltage|Bias\s*Current|RX\s*Power|TX\s*Power)\s*[:=]\s*(-?\d+(?:\.\d+)?).*?(?:Threshold|Range|Warning)\s*[:=]?\s*(-?\d+(?:\.\d+)?)\s*(?:to|\.{2})\s*(-?\d+(?:\.\d+)?)`)
	transceiverGoneRE  = regexp.MustCompile(`(?i)transceiver\s+is\s+absent`)
	transceiverHereRE  = regexp.MustCompile(`(?i)present`)
)

// opticalMeasure is one diagnostic value with the module's own min..max
// threshold range.
type opticalMeasure struct {
	Metric string
	Value  float64
	Min    float64
	Max    float64
}

func (m opticalMeasure) InRange() bool { return m.Min <= m.Value && m.Value <= m.Max }

// transceiverStatus describes one port's optical module.
type transceiverStatus struct {
	Port     string
	Present  bool
	Measures []opticalMeasure
}

// ParseTransceivers splits a diagnostic display into per-port module
// statuses with their measurements.
func ParseTransceivers(output string) []transceiverStatus {
	headers := transceiverHeadRE.FindAllStringSubmatchIndex(output, -1)

	statuses := make([]transceiverStatus, 0, len(headers))

	for i, loc := range headers {
		infoEnd := len(output)
		if i+1 < len(headers) {
			infoEnd = headers[i+1][0]
		}

		status := transceiverStatus{Port: output[loc[2]:loc[3]], Present: true}
		info := strings.TrimSpace(output[loc[1]:infoEnd])

		if transceiverGoneRE.MatchString(info) {
			status.Present = false
			statuses = append(statuses, status)

			continue
		}

		for _, m := range transceiverValueRE.FindAllStringSubmatch(info, -1) {
			value, errV := strconv.ParseFloat(m[2], 64)
			vmin, errMin := strconv.ParseFloat(m[3], 64)
			vmax, errMax := strconv.ParseFloat(m[4], 64)

			if errV != nil || errMin != nil || errMax != nil {
				continue
			}

			status.Measures = append(status.Measures, opticalMeasure{
				Metric: strings.TrimSpace(m[1]),
				Value:  value,
				Min:    vmin,
				Max:    vmax,
			})
		}

		if len(status.Measures) == 0 {
			status.Present = transceiverHereRE.MatchString(info)
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// TransceiverDiagnosticsRule checks optical module measurements against the
// thresholds the modules themselves report.
type TransceiverDiagnosticsRule struct{}

func (TransceiverDiagnosticsRule) Name() string { return "transceiver_diagnostics" }

func (TransceiverDiagnosticsRule) Applicable(d *domain.Device) bool { return d.Vendor.ComwareFamily() }

func (TransceiverDiagnosticsRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display transceiver diagnosis interface,display transceiver,show interfaces transceiver")

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil || strings.TrimSpace(out) == "" || rejected(out) {
			continue
		}

		statuses := ParseTransceivers(out)
		if len(statuses) == 0 {
			continue
		}

		var present, absent int
		var alerts []string
		parts := make([]string, 0, len(statuses)+1)

		for _, status := range statuses {
			if !status.Present {
				absent++

				parts = append(parts, status.Port+": absent")

				continue
			}

			present++

			if len(status.Measures) == 0 {
				parts = append(parts, status.Port+": present, no measurement")
				continue
			}

			for _, m := range status.Measures {
				if !m.InRange() {
					alerts = append(alerts, fmt.Sprintf("%s %s=%g (range %g..%g)",
						status.Port, m.Metric, m.Value, m.Min, m.Max))
				}
			}
		}

		summary := fmt.Sprintf("sfp present: %d, absent: %d, via %s", present, absent, command)
		if len(parts) > 0 {
			summary += "; " + strings.Join(parts, "; ")
		}

		if len(alerts) == 0 {
			return compliant(summary)
		}

		return nonCompliant(summary + "; out of range: " + strings.Join(alerts, "; "))
	}

	return evalError("no transceiver data available")
}
