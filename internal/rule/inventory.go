package rule

import (
	"context"
	"fmt"
	"strings"

	"netaudit/internal/discovery"
	"netaudit/internal/domain"
)

// HardwareInventoryRule collects the model, software version and firmware.
// It prefers the output captured during discovery and only issues commands
// when that capture is incomplete.
type HardwareInventoryRule struct{}

func (HardwareInventoryRule) Name() string { return "hardware_inventory" }

func (HardwareInventoryRule) Applicable(d *domain.Device) bool { return d.Vendor.Known() }

func (HardwareInventoryRule) Run(ctx context.Context, t Target, cfg Config) domain.RuleResult {
	if t.Platform != nil {
		if result, ok := inventoryFromCache(t.Platform); ok {
			return result
		}
	}

	disablePaging(ctx, t, cfg)

	commands := cfg.List("commands",
		"display version,show system,show version,show system information")

	tried := make([]string, 0, len(commands))

	for _, command := range commands {
		tried = append(tried, command)

		raw, err := sendPaged(ctx, t, command)
		if err != nil {
			continue
		}

		out := discovery.CleanOutput(raw)
		if out == "" || rejected(out) {
			continue
		}

		model := discovery.ExtractModel(out)
		version, firmware := discovery.ExtractVersionFirmware(out)

		if model == "N/A" {
			model = lookupModelWithExtras(ctx, t, cfg)
		}

		if model != "N/A" && version != "N/A" {
			return inventoryResult(model, version, firmware, command)
		}
	}

	return evalError("no usable inventory output (tried: " + strings.Join(tried, ", ") + ")")
}

func inventoryFromCache(p *domain.PlatformInfo) (domain.RuleResult, bool) {
	model := fallbackNA(p.Model)
	version := fallbackNA(p.Version)
	firmware := fallbackNA(p.Firmware)

	if p.Raw != "" {
		if v := discovery.ExtractModel(p.Raw); v != "N/A" {
			model = v
		}

		if v, f := discovery.ExtractVersionFirmware(p.Raw); v != "N/A" {
			version = v

			if f != "N/A" {
				firmware = f
			}
		}
	}

	if model == "N/A" || version == "N/A" {
		return domain.RuleResult{}, false
	}

	source := p.ProbeCommand
	if source == "" {
		source = "initial discovery"
	}

	return inventoryResult(model, version, firmware, source), true
}

func lookupModelWithExtras(ctx context.Context, t Target, cfg Config) string {
	for _, command := range cfg.List("extra_commands",
		"display device manuinfo,display device,show inventory") {
		raw, err := sendPaged(ctx, t, command)
		if err != nil {
			continue
		}

		out := discovery.CleanOutput(raw)
		if out == "" || rejected(out) {
			continue
		}

		if model := discovery.ExtractModel(out); model != "N/A" {
			return model
		}
	}

	return "N/A"
}

func inventoryResult(model, version, firmware, source string) domain.RuleResult {
	return compliant(fmt.Sprintf("model: %s | version: %s | firmware: %s via %s",
		model, version, firmware, source))
}

func fallbackNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}
