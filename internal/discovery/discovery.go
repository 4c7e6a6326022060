// Package discovery identifies a device's vendor dialect and basic inventory
// (hostname, model, firmware) by probing an open session with version queries
// and matching the output against ordered vendor signatures.
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"netaudit/internal/domain"
	"netaudit/internal/session"
)

// DiscoveryError reports a connection or command failure during probing. It
// aborts the device's audit: there is no point running rules over a session
// that cannot answer a version query.
type DiscoveryError struct {
	Probe string
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery probe %q: %v", e.Probe, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// signature maps response text to a vendor dialect. Order is a deliberate
// priority: some signatures are substrings of others, so the generic Comware
// marker must come after the HP and Huawei ones or it steals their devices.
type signature struct {
	vendor  domain.Vendor
	pattern *regexp.Regexp
}

var signatures = []signature{
	{domain.VendorProCurve, regexp.MustCompile(`(?i)ProCurve`)},
	{domain.VendorArubaOS, regexp.MustCompile(`(?i)\bAruba(OS)?\b`)},
	{domain.VendorHuawei, regexp.MustCompile(`(?i)Huawei\s+Versatile\s+Routing\s+Platform|\bVRP\b|\bHuawei\b`)},
	{domain.VendorComware, regexp.MustCompile(`(?i)HPE?\s+Comware`)},
	{domain.VendorComwareGeneric, regexp.MustCompile(`(?i)\bComware\b|\bH3C\b`)},
}

// versionProbes are tried in order until one yields usable output.
var versionProbes = []string{
	"display version",
	"show version",
}

var rejectedCommand = regexp.MustCompile(`(?i)Unrecognized|Invalid input|Unknown command|Incomplete input`)

// hostnameProbe returns the sysname query and extraction pattern for a
// dialect. ok is false when the dialect has no known query.
func hostnameProbe(vendor domain.Vendor) (command string, pattern *regexp.Regexp, ok bool) {
	if vendor.ComwareFamily() {
		return "display current-configuration | include sysname",
			regexp.MustCompile(`(?m)^\s*sysname\s+(\S+)`), true
	}

	switch vendor {
	case domain.VendorProCurve, domain.VendorArubaOS:
		return "show running-config | include hostname",
			regexp.MustCompile(`(?m)^\s*hostname\s+"?([^"\s]+)`), true
	default:
		return "", nil, false
	}
}

// Discoverer probes open sessions for platform identity.
type Discoverer struct {
	Log zerolog.Logger
}

// Identify probes the session and classifies the device. An unidentifiable
// platform yields VendorUnknown without error; it merely narrows which rules
// apply. A probe that fails at the transport level is a *DiscoveryError.
func (d *Discoverer) Identify(ctx context.Context, sh session.Shell) (*domain.PlatformInfo, error) {
	session.DisablePaging(ctx, sh, session.DisablePagingCommands(domain.VendorUnknown, nil))

	var lastErr error

	for _, probe := range versionProbes {
		raw, err := session.SendPaged(ctx, sh, probe)
		if err != nil {
			lastErr = err
			continue
		}

		output := CleanOutput(raw)
		if strings.TrimSpace(output) == "" || rejectedCommand.MatchString(output) {
			continue
		}

		info := d.classify(ctx, sh, probe, output)

		d.Log.Debug().
			Str("probe", probe).
			Str("vendor", string(info.Vendor)).
			Str("model", info.Model).
			Msg("platform identified")

		return info, nil
	}

	if lastErr != nil {
		return nil, &DiscoveryError{Probe: strings.Join(versionProbes, ", "), Err: lastErr}
	}

	// Probes ran but nothing matched a known dialect.
	return &domain.PlatformInfo{Vendor: domain.VendorUnknown}, nil
}

func (d *Discoverer) classify(ctx context.Context, sh session.Shell, probe, output string) *domain.PlatformInfo {
	info := &domain.PlatformInfo{
		Vendor:       domain.VendorUnknown,
		ProbeCommand: probe,
		Raw:          output,
	}

	for _, sig := range signatures {
		if sig.pattern.MatchString(output) {
			info.Vendor = sig.vendor
			break
		}
	}

	info.Model = ExtractModel(output)
	info.Version, info.Firmware = ExtractVersionFirmware(output)

	if info.Vendor.ComwareFamily() && (info.Model == "N/A" || info.Model == "") {
		info.Model = d.modelFromManuinfo(ctx, sh)
	}

	if info.Model == "N/A" || info.Model == "" {
		info.Model = d.modelFromModules(ctx, sh)
	}

	if info.Firmware == "" || info.Firmware == "N/A" {
		if fw := ExtractHPFirmware(output); fw != "" {
			info.Firmware = fw
		}
	}

	info.Hostname = d.probeHostname(ctx, sh, info.Vendor)

	if info.Model == "" || info.Model == "N/A" {
		if info.Hostname != "" {
			info.Model = info.Hostname
		} else {
			info.Model = "N/A"
		}
	}

	if info.Version == "" {
		info.Version = "N/A"
	}

	if info.Firmware == "" {
		if info.Version != "N/A" {
			info.Firmware = info.Version
		} else {
			info.Firmware = "N/A"
		}
	}

	return info
}

var (
	manuinfoName  = regexp.MustCompile(`(?m)^\s*DEVICE_NAME\s*:\s*(.+)`)
	moduleChassis = regexp.MustCompile(`(?m)Chassis:\s*(.+?)\s+Serial Number`)
)

func (d *Discoverer) modelFromManuinfo(ctx context.Context, sh session.Shell) string {
	out, err := session.SendPaged(ctx, sh, "display device manuinfo")
	if err != nil {
		return "N/A"
	}

	if m := manuinfoName.FindStringSubmatch(CleanOutput(out)); m != nil {
		return strings.TrimSpace(m[1])
	}

	return "N/A"
}

func (d *Discoverer) modelFromModules(ctx context.Context, sh session.Shell) string {
	out, err := session.SendPaged(ctx, sh, "show module")
	if err != nil {
		return "N/A"
	}

	if m := moduleChassis.FindStringSubmatch(CleanOutput(out)); m != nil {
		return strings.TrimSpace(m[1])
	}

	return "N/A"
}

func (d *Discoverer) probeHostname(ctx context.Context, sh session.Shell, vendor domain.Vendor) string {
	command, pattern, ok := hostnameProbe(vendor)
	if !ok {
		return ""
	}

	out, err := session.SendPaged(ctx, sh, command)
	if err != nil {
		return ""
	}

	if m := pattern.FindStringSubmatch(CleanOutput(out)); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}
