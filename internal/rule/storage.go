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
	diskUsageRE    = regexp.MustCompile(`(?i)([\d,]+)\s*KB\s+total(?:\s+available)?\s*\(\s*([\d,]+)\s*KB\s+free`)
	firmwareFileRE = regexp.MustCompile(`(?i)(\S+\.(?:bin|cc|img|ipe))`)
	firmwareSizeRE = regexp.MustCompile(`-rw-\s+([\d,]+)`)
	firmwareNumRE  = regexp.MustCompile(`([\d,]+)`)
)

// ExtractDiskUsage pulls the total and free KB figures from a flash
// directory listing. found is false when no usage line is present.
func ExtractDiskUsage(output string) (total, free int, found bool) {
	for _, line := range strings.Split(output, "\n") {
		m := diskUsageRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		total, errTotal := parseGrouped(m[1])
		free, errFree := parseGrouped(m[2])

		if errTotal != nil || errFree != nil {
			continue
		}

		return total, free, true
	}

	return 0, 0, false
}

func parseGrouped(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ",", ""))
}

// firmwareFile is one firmware image found on flash, size in bytes.
type firmwareFile struct {
	Name string
	Size int
}

// ExtractFirmwares lists the firmware images present in a flash listing.
// Size comes from the -rw- column when present, else the largest number on
// the line.
func ExtractFirmwares(output string) []firmwareFile {
	var files []firmwareFile

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, ".bin") && !strings.Contains(lower, ".cc") &&
			!strings.Contains(lower, ".img") && !strings.Contains(lower, ".ipe") {
			continue
		}

		name := firmwareFileRE.FindStringSubmatch(line)
		if name == nil {
			continue
		}

		size := -1

		if m := firmwareSizeRE.FindStringSubmatch(line); m != nil {
			if v, err := parseGrouped(m[1]); err == nil {
				size = v
			}
		}

		if size < 0 {
			for _, candidate := range firmwareNumRE.FindAllString(line, -1) {
				if v, err := parseGrouped(candidate); err == nil && v > size {
					size = v
				}
			}
		}

		if size >= 0 {
			files = append(files, firmwareFile{name[1], size})
		}
	}

	return files
}

// StorageCapacityRule checks that flash has room for one more firmware image
// at least as large as the biggest one already stored.
type StorageCapacityRule struct{}

func (StorageCapacityRule) Name() string { return "storage_capacity" }

func (StorageCapacityRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (StorageCapacityRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands", "dir,show flash,display flash")

	for _, command := range commands {
		out, err := sendPaged(ctx, t, command)
		if err != nil || strings.TrimSpace(out) == "" || rejected(out) {
			continue
		}

		_, freeKB, haveUsage := ExtractDiskUsage(out)
		firmwares := ExtractFirmwares(out)

		var largest firmwareFile
		for _, f := range firmwares {
			if f.Size > largest.Size {
				largest = f
			}
		}

		switch {
		case haveUsage && len(firmwares) > 0:
			firmwareKB := float64(largest.Size) / 1024

			detail := fmt.Sprintf("free: %d KB | largest firmware: %s (%.0f KB) via %s",
				freeKB, largest.Name, firmwareKB, command)

			if float64(freeKB) > firmwareKB {
				return compliant(detail)
			}

			return nonCompliant(detail + ", insufficient space")

		case len(firmwares) > 0:
			return nonCompliant(fmt.Sprintf("firmware %s (%d B) found via %s but free space unknown",
				largest.Name, largest.Size, command))

		case haveUsage:
			return compliant(fmt.Sprintf("free: %d KB, no firmware image on flash via %s", freeKB, command))
		}
	}

	return evalError("no usable storage information")
}
