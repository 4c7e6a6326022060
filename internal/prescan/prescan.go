// Package prescan filters the device inventory with an nmap TCP probe
// before any SSH connection is attempted. Devices whose management port
// is not open are reported as unreachable up front instead of burning a
// worker slot on a connect timeout.
package prescan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"netaudit/internal/domain"
)

// DefaultPorts is the port expression scanned when the configuration
// does not name one.
const DefaultPorts = "22"

// runScan is swapped in tests to avoid invoking the nmap binary.
var runScan = func(ctx context.Context, targets []string, ports string) (*nmap.Run, error) {
	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets(targets...),
		nmap.WithPorts(ports),
		nmap.WithSkipHostDiscovery(),
	)
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log := zerolog.Ctx(ctx)
		log.Warn().Strs("warnings", *warnings).Msg("nmap reported warnings")
	}
	return result, nil
}

// Scanner probes device addresses for open management ports.
type Scanner struct {
	Ports string
	Log   zerolog.Logger
}

// Filter scans every device address and splits the inventory into
// reachable and unreachable sets. Input order is preserved within each
// set. A device counts as reachable when at least one scanned port is
// open on its address.
func (s *Scanner) Filter(ctx context.Context, devices []domain.Device) (reachable, unreachable []domain.Device, err error) {
	if len(devices) == 0 {
		return nil, nil, nil
	}

	ports := s.Ports
	if ports == "" {
		ports = DefaultPorts
	}
	if err := ValidatePorts(ports); err != nil {
		return nil, nil, err
	}

	targets := make([]string, 0, len(devices))
	for _, d := range devices {
		targets = append(targets, d.Address)
	}

	s.Log.Info().Int("devices", len(targets)).Str("ports", ports).Msg("prescan started")

	ctx = s.Log.WithContext(ctx)
	result, err := runScan(ctx, targets, ports)
	if err != nil {
		return nil, nil, err
	}

	open := OpenHosts(result)
	for _, d := range devices {
		if open[d.Address] {
			reachable = append(reachable, d)
		} else {
			unreachable = append(unreachable, d)
		}
	}

	s.Log.Info().
		Int("reachable", len(reachable)).
		Int("unreachable", len(unreachable)).
		Msg("prescan complete")
	return reachable, unreachable, nil
}

// OpenHosts maps every scanned address with at least one open TCP port
// to true. Both the IP and any reported hostname are keyed so the map
// matches whichever form the inventory used.
func OpenHosts(result *nmap.Run) map[string]bool {
	open := make(map[string]bool)
	if result == nil {
		return open
	}
	for _, host := range result.Hosts {
		if !hasOpenPort(host) {
			continue
		}
		for _, addr := range host.Addresses {
			open[addr.Addr] = true
		}
		for _, name := range host.Hostnames {
			open[name.Name] = true
		}
	}
	return open
}

func hasOpenPort(host nmap.Host) bool {
	for _, port := range host.Ports {
		if strings.HasPrefix(port.State.State, "open") {
			return true
		}
	}
	return false
}

// ValidatePorts rejects port expressions nmap would not accept. It
// covers the forms the configuration documents, single ports and
// comma-separated lists of ports or low-high ranges.
func ValidatePorts(expr string) error {
	if expr == "" {
		return nil
	}
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		lo, hi, ok := strings.Cut(part, "-")
		if err := validatePort(lo); err != nil {
			return err
		}
		if ok {
			if err := validatePort(hi); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", s)
	}
	return nil
}
