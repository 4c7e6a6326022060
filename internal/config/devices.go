package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"netaudit/internal/domain"
)

// LoadDevices assembles the ordered device list from the configured file and
// the inline entries, preserving input order. File entries come first.
func (c *Config) LoadDevices() ([]domain.Device, error) {
	var devices []domain.Device

	if c.Audit.DeviceFile != "" {
		fromFile, err := ReadDeviceFile(c.Audit.DeviceFile)
		if err != nil {
			return nil, err
		}

		devices = fromFile
	}

	for _, entry := range c.Audit.Devices {
		if d, ok := parseDeviceLine(entry); ok {
			devices = append(devices, d)
		}
	}

	return devices, nil
}

// ReadDeviceFile reads one device per line: an address, optionally followed
// by a pre-known hostname. Blank lines and # comments are skipped.
func ReadDeviceFile(path string) ([]domain.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read device file: %w", err)
	}
	defer f.Close()

	var devices []domain.Device

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if d, ok := parseDeviceLine(scanner.Text()); ok {
			devices = append(devices, d)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read device file: %w", err)
	}

	return devices, nil
}

func parseDeviceLine(line string) (domain.Device, bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return domain.Device{}, false
	}

	d := domain.Device{Address: fields[0]}
	if len(fields) > 1 {
		d.Hostname = fields[1]
	}

	return d, true
}
