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
	tempSeparatorRE = regexp.MustCompile(`^\s*-{3,}\s*$`)
	tempPromptRE    = regexp.MustCompile(`^<.*?>$`)
	tempHeaderRE    = regexp.MustCompile(`(?i)\btemperature\b`)
	tempNumberRE    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	tempCelsiusRE   = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*°?\s*C`)
	tempSplitRE     = regexp.MustCompile(`\s{2,}`)
)

// tempReadings holds the sensor values and the thresholds a temperature
// display reports. Threshold fields are nil when the output omits them.
type tempReadings struct {
	Temps []float64
	Lower *float64
	Warn  *float64
	Alarm *float64
}

type tempColumn struct {
	name  string
	start int
	end   int
}

func computeColumns(header string) []tempColumn {
	var (
		columns []tempColumn
		start   = -1
	)

	for idx := 0; idx < len(header); idx++ {
		switch {
		case start < 0 && header[idx] != ' ':
			start = idx
		case start >= 0 && header[idx] == ' ':
			if name := strings.ToLower(strings.TrimSpace(header[start:idx])); name != "" {
				columns = append(columns, tempColumn{name, start, idx})
			}

			start = -1
		}
	}

	if start >= 0 {
		if name := strings.ToLower(strings.TrimSpace(header[start:])); name != "" {
			columns = append(columns, tempColumn{name, start, len(header)})
		}
	}

	return columns
}

func sliceColumn(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}

	if end > len(line) {
		end = len(line)
	}

	return strings.TrimSpace(line[start:end])
}

func findColumn(columns []tempColumn, keys ...string) (int, int, bool) {
	for _, key := range keys {
		for _, col := range columns {
			if strings.Contains(col.name, key) {
				return col.start, col.end, true
			}
		}
	}

	return 0, 0, false
}

func parseTempTable(lines []string) tempReadings {
	headerIndex := -1

	for idx, line := range lines {
		low := strings.ToLower(line)
		if strings.Contains(low, "information") {
			continue
		}

		if tempHeaderRE.MatchString(low) || strings.Contains(low, "temp(c)") {
			if len(tempSplitRE.Split(strings.TrimSpace(line), -1)) >= 2 {
				headerIndex = idx
				break
			}
		}
	}

	if headerIndex < 0 {
		return tempReadings{}
	}

	columns := computeColumns(lines[headerIndex])

	tempStart, tempEnd, haveTemp := findColumn(columns, "temperature", "temp", "temp(c)")
	if !haveTemp {
		return tempReadings{}
	}

	warnStart, warnEnd, haveWarn := findColumn(columns, "warning", "upper", "warninglimit")
	alarmStart, alarmEnd, haveAlarm := findColumn(columns, "alarm", "shutdown")
	lowerStart, lowerEnd, haveLower := findColumn(columns, "lower", "lowerlimit")

	var r tempReadings
	var warns, alarms, lowers []float64

	for _, line := range lines[headerIndex+1:] {
		stripped := strings.TrimSpace(line)
		if stripped == "" || tempSeparatorRE.MatchString(stripped) || tempPromptRE.MatchString(stripped) {
			continue
		}

		if m := tempNumberRE.FindString(sliceColumn(line, tempStart, tempEnd)); m != "" {
			v, _ := strconv.ParseFloat(m, 64)
			r.Temps = append(r.Temps, v)
		}

		grab := func(start, end int, have bool, into *[]float64) {
			if !have {
				return
			}

			if m := tempNumberRE.FindString(sliceColumn(line, start, end)); m != "" {
				v, _ := strconv.ParseFloat(m, 64)
				*into = append(*into, v)
			}
		}

		grab(warnStart, warnEnd, haveWarn, &warns)
		grab(alarmStart, alarmEnd, haveAlarm, &alarms)
		grab(lowerStart, lowerEnd, haveLower, &lowers)
	}

	if len(r.Temps) == 0 {
		return tempReadings{}
	}

	r.Warn = minOf(warns)
	r.Alarm = minOf(alarms)
	r.Lower = minOf(lowers)

	return r
}

func minOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}

	return &m
}

func parseTempText(output string) tempReadings {
	var r tempReadings

	for _, m := range tempCelsiusRE.FindAllStringSubmatch(output, -1) {
		v, _ := strconv.ParseFloat(m[1], 64)
		r.Temps = append(r.Temps, v)
	}

	grab := func(tag string) *float64 {
		re := regexp.MustCompile(`(?i)` + tag + `[^0-9-]*(-?\d+(?:\.\d+)?)\s*°?\s*C`)

		m := re.FindStringSubmatch(output)
		if m == nil {
			return nil
		}

		v, _ := strconv.ParseFloat(m[1], 64)

		return &v
	}

	if r.Warn = grab("warning"); r.Warn == nil {
		r.Warn = grab("upper")
	}

	r.Alarm = grab("alarm")
	r.Lower = grab("lower")

	return r
}

// ParseTemperatures extracts sensor readings from a temperature display,
// trying the fixed-width table layout first and falling back to free text.
func ParseTemperatures(output string) tempReadings {
	r := parseTempTable(strings.Split(output, "\n"))
	if len(r.Temps) > 0 || r.Lower != nil || r.Warn != nil || r.Alarm != nil {
		return r
	}

	return parseTempText(output)
}

// TemperatureRule checks the hottest sensor against the device's own
// warning/alarm thresholds, or a configured default when the display
// carries none.
type TemperatureRule struct{}

func (TemperatureRule) Name() string { return "temperature" }

func (TemperatureRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (TemperatureRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display temperature all,display env,display environment,show system temperature")

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil || strings.TrimSpace(out) == "" {
			continue
		}

		r := ParseTemperatures(out)
		if len(r.Temps) == 0 {
			continue
		}

		threshold := cfg.Float("default_threshold", 60)

		switch {
		case r.Warn != nil && r.Alarm != nil:
			if *r.Warn < *r.Alarm {
				threshold = *r.Warn
			} else {
				threshold = *r.Alarm
			}
		case r.Warn != nil:
			threshold = *r.Warn
		case r.Alarm != nil:
			threshold = *r.Alarm
		}

		maxTemp := r.Temps[0]
		for _, v := range r.Temps[1:] {
			if v > maxTemp {
				maxTemp = v
			}
		}

		detail := fmt.Sprintf("max temperature %.1f°C (threshold %.1f°C) via %s | lower:%s warning:%s alarm:%s",
			maxTemp, threshold, command, fmtTemp(r.Lower), fmtTemp(r.Warn), fmtTemp(r.Alarm))

		if maxTemp <= threshold {
			return compliant(detail)
		}

		return nonCompliant(detail)
	}

	return evalError("no temperature reading available")
}

func fmtTemp(v *float64) string {
	if v == nil {
		return "NA"
	}

	return fmt.Sprintf("%.1f°C", *v)
}
