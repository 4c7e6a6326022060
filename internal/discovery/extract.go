package discovery

import (
	"regexp"
	"strings"
)

var (
	csiSeq   = regexp.MustCompile(`\x1B\[[0-9;?]*[ -/]*[@-~]`)
	escSeq   = regexp.MustCompile(`\x1B[@-Z\\-_]`)
	ctlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)
	banner   = regexp.MustCompile(`(?im)^\s*Press any key.*$`)
)

// CleanOutput strips ANSI control sequences, stray control characters and
// pause banners from raw CLI output.
func CleanOutput(text string) string {
	if text == "" {
		return ""
	}

	cleaned := csiSeq.ReplaceAllString(text, "")
	cleaned = escSeq.ReplaceAllString(cleaned, "")
	cleaned = ctlChars.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "")
	cleaned = banner.ReplaceAllString(cleaned, "")

	return cleaned
}

// modelPatterns are tried in order; the first match wins. More specific
// vendor banners come before generic product-code patterns.
var modelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^(?:HPE|HP|H3C|Huawei|Aruba|Cisco)\s+([^\n]+?)\s+with\b`),
	regexp.MustCompile(`(?i)(?:Product\s*Name|Model|Device\s*model|Device\s*type|BOARD\s*TYPE)\s*:\s*([^\n]+)`),
	regexp.MustCompile(`(?im)^\s*Chassis\s*:\s*([^\n]+)$`),
	regexp.MustCompile(`(?i)\b([0-9]{3,4}.*?(?:HI|EI)[^\n]*)`),
	regexp.MustCompile(`(?i)\b(2930F[-\w +]*)\b`),
	regexp.MustCompile(`(?i)\b(AR\d{3,}[A-Z]?)\b`),
	regexp.MustCompile(`(?i)\b(S\d{4}[A-Z0-9\-]*)\b`),
	regexp.MustCompile(`(?i)\bHP\s*(\d{3,4}\w*)\b`),
	regexp.MustCompile(`(?im)^\s*(Switch\s+7750)\s+Software\s+Version`),
}

var (
	partNumber     = regexp.MustCompile(`(?i)\b(J[HL]\d{3,}[A-Z]?)\b`)
	trailingDevice = regexp.MustCompile(`(?i)\s+(Switch|Router)\s*$`)
	softwareLine   = regexp.MustCompile(`(?im)^(.*Software.*)$`)
)

// ExtractModel determines a readable model designation from version output.
// Returns "N/A" when nothing matches.
func ExtractModel(text string) string {
	if text == "" {
		return "N/A"
	}

	t := CleanOutput(text)

	for i, pattern := range modelPatterns {
		match := pattern.FindStringSubmatch(t)
		if match == nil {
			continue
		}

		value := strings.TrimSpace(match[1])

		switch i {
		case 0:
			// Banner form: append the part number when the banner lacks it.
			if pn := partNumber.FindString(t); pn != "" {
				pn = strings.ToUpper(pn)
				if !strings.Contains(value, pn) {
					value = value + " " + pn
				}
			}

			value = trailingDevice.ReplaceAllString(value, "")
		case 4:
			value = "Aruba " + value
		case 8:
			return "Switch 7750"
		}

		return value
	}

	if match := softwareLine.FindStringSubmatch(t); match != nil {
		return strings.TrimSpace(match[1])
	}

	return "N/A"
}

var (
	comware7Version = regexp.MustCompile(`(?i)Comware\s+Software,\s*Version\s*([0-9A-Za-z.\-]+)\s*,\s*Release\s*([0-9A-Za-z]+)`)
	comware5Version = regexp.MustCompile(`(?i)\bVersion\s*([0-9]+\.[0-9A-Za-z.]+)\s*,\s*Release\s*([0-9A-Za-z]+)`)
	vrpVersion      = regexp.MustCompile(`(?i)\bVersion\s*([0-9A-Za-z.\-]+)\s*(\([^)]+\))`)
	arubaVersion    = regexp.MustCompile(`(?i)(?:Software\s+revision|Software\s+Version)\s*:\s*([^\n]+)`)
	threeComVersion = regexp.MustCompile(`(?i)Switch\s+7750\s+Software\s+Version\s+([^\s]+)`)
	genericVersion  = regexp.MustCompile(`(?i)\bVersion\s*:\s*([^\n]+)`)
	versionPrefix   = regexp.MustCompile(`^[0-9A-Za-z.\-]+`)

	// ProCurve/Aruba firmware image names (KB/WC trains).
	hpFirmware = regexp.MustCompile(`(KB|WC)\.\d+\.\d+\.\d+`)
)

// ExtractVersionFirmware detects the software version and full firmware string
// from version output. Either value may be "N/A".
func ExtractVersionFirmware(text string) (version, firmware string) {
	if text == "" {
		return "N/A", "N/A"
	}

	t := CleanOutput(text)

	if m := comware7Version.FindStringSubmatch(t); m != nil {
		base := strings.TrimSpace(m[1])
		return base, base + ", Release " + strings.TrimSpace(m[2])
	}

	if m := comware5Version.FindStringSubmatch(t); m != nil {
		base := strings.TrimSpace(m[1])
		return base, base + ", Release " + strings.TrimSpace(m[2])
	}

	if m := vrpVersion.FindStringSubmatch(t); m != nil {
		base := strings.TrimSpace(m[1])
		return base, base + " " + strings.TrimSpace(m[2])
	}

	if m := arubaVersion.FindStringSubmatch(t); m != nil {
		base := strings.TrimSpace(m[1])
		return base, base
	}

	if m := threeComVersion.FindStringSubmatch(t); m != nil {
		v := strings.TrimSpace(m[1])
		return v, v
	}

	if m := genericVersion.FindStringSubmatch(t); m != nil {
		full := strings.TrimSpace(m[1])

		version := full
		if prefix := versionPrefix.FindString(full); prefix != "" {
			version = prefix
		}

		return version, full
	}

	return "N/A", "N/A"
}

// ExtractHPFirmware pulls a ProCurve firmware train (KB/WC) out of version
// output when the structured patterns found nothing.
func ExtractHPFirmware(text string) string {
	return hpFirmware.FindString(text)
}
