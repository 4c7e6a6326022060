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
	powerOKRE     = regexp.MustCompile(`(?i)\b(Normal|OK|Present|Powered|Active)\b`)
	powerFaultRE  = regexp.MustCompile(`(?i)\b(Fault|Abnormal|Fail|Defect|Error)\b`)
	powerAbsentRE = regexp.MustCompile(`(?i)\b(Absent|Not Present|Missing)\b`)
	powerResumeRE = regexp.MustCompile(`\((\d+)\s+fault\(s\),\s+(\d+)\s+absent\(s\),\s+(\d+)\s+OK\)`)
	powerBaysRE   = regexp.MustCompile(`(?i)(\d+)\s*/\s*(\d+)\s*supply bays delivering power`)
)

// powerState summarizes a power supply display.
type powerState struct {
	OK     int
	Fault  int
	Absent int
	Total  int
}

// AnalysePower counts supply states from a power display. Keyword counts
// are overridden by the Comware summary line and the ProCurve bays line
// when present.
func AnalysePower(output string) powerState {
	st := powerState{
		OK:     len(powerOKRE.FindAllString(output, -1)),
		Fault:  len(powerFaultRE.FindAllString(output, -1)),
		Absent: len(powerAbsentRE.FindAllString(output, -1)),
	}

	if m := powerResumeRE.FindStringSubmatch(output); m != nil {
		st.Fault, _ = strconv.Atoi(m[1])
		st.Absent, _ = strconv.Atoi(m[2])
		st.OK, _ = strconv.Atoi(m[3])
	}

	if m := powerBaysRE.FindStringSubmatch(output); m != nil {
		st.OK, _ = strconv.Atoi(m[1])
		st.Total, _ = strconv.Atoi(m[2])

		if st.Absent = st.Total - st.OK; st.Absent < 0 {
			st.Absent = 0
		}

		return st
	}

	st.Total = st.OK + st.Fault + st.Absent

	return st
}

// PowerSupplyRule checks that all power supplies are present and healthy.
type PowerSupplyRule struct{}

func (PowerSupplyRule) Name() string { return "power_supply" }

func (PowerSupplyRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (PowerSupplyRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display power,show system power-supply,show environment power")

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil || out == "" {
			continue
		}

		if strings.Contains(strings.ToLower(out), "does not support") {
			return compliant("no power sensors on this platform via " + command)
		}

		st := AnalysePower(out)
		if st.Total == 0 {
			continue
		}

		if st.Fault == 0 && st.Absent == 0 && st.OK > 0 {
			return compliant(fmt.Sprintf("power supplies ok %d/%d via %s", st.OK, st.Total, command))
		}

		detail := fmt.Sprintf("power supplies degraded %d/%d (fault:%d, absent:%d) via %s",
			st.OK, st.Total, st.Fault, st.Absent, command)
		if st.OK == 0 {
			detail += ", no active supply"
		}

		return nonCompliant(detail)
	}

	return evalError("no usable power supply data")
}
