package rule

import (
	"context"
	"errors"
	"strings"
	"testing"

	"netaudit/internal/domain"
)

// mapShell answers scripted commands and rejects everything else, the way a
// real switch answers an unknown command.
type mapShell struct {
	answers map[string]string
	fail    map[string]error
	sent    []string
}

func (s *mapShell) Send(_ context.Context, command string) (string, error) {
	s.sent = append(s.sent, command)

	if err, ok := s.fail[command]; ok {
		return "", err
	}

	if out, ok := s.answers[command]; ok {
		return out, nil
	}

	return "% Unrecognized command", nil
}

func target(vendor domain.Vendor, shell *mapShell) Target {
	return Target{
		Shell:  shell,
		Device: &domain.Device{Address: "192.0.2.10", Hostname: "SW-CORE-01", Vendor: vendor},
	}
}

func TestSysnameRule(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		cfg      Config
		want     domain.Verdict
	}{
		{
			name:     "prefix match",
			hostname: "sw-core-01",
			cfg:      Config{"prefixes": "SW-,RT-"},
			want:     domain.VerdictCompliant,
		},
		{
			name:     "pattern match",
			hostname: "CORE-7-ACCESS",
			cfg:      Config{"patterns": `CORE-\d+-ACCESS`},
			want:     domain.VerdictCompliant,
		},
		{
			name:     "no match",
			hostname: "switch1",
			cfg:      Config{"prefixes": "SW-", "patterns": `CORE-\d+`},
			want:     domain.VerdictNonCompliant,
		},
		{
			name:     "no hostname",
			hostname: "",
			cfg:      Config{"prefixes": "SW-"},
			want:     domain.VerdictError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt := Target{Device: &domain.Device{Hostname: tt.hostname}}

			got := SysnameRule{}.Run(context.Background(), tgt, tt.cfg)
			if got.Verdict != tt.want {
				t.Errorf("verdict = %s, want %s (%s)", got.Verdict, tt.want, got.Detail)
			}
		})
	}
}

func TestTacacsRule(t *testing.T) {
	shell := &mapShell{answers: map[string]string{
		"display current-configuration | include tacacs": "hwtacacs scheme auth-servers",
	}}

	got := TacacsRule{}.Run(context.Background(), target(domain.VendorComware, shell), Config{})
	if got.Verdict != domain.VerdictCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}

	shell = &mapShell{answers: map[string]string{
		"show running-config | include tacacs": "",
	}}

	got = TacacsRule{}.Run(context.Background(), target(domain.VendorProCurve, shell), Config{})
	if got.Verdict != domain.VerdictNonCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}
}

func TestTacacsRuleCommandFailure(t *testing.T) {
	shell := &mapShell{fail: map[string]error{
		"display current-configuration | include tacacs": errors.New("session torn down"),
	}}

	got := TacacsRule{}.Run(context.Background(), target(domain.VendorComware, shell), Config{})
	if got.Verdict != domain.VerdictError {
		t.Fatalf("verdict = %s, want error (%s)", got.Verdict, got.Detail)
	}
}

func TestSNMPTrapRule(t *testing.T) {
	conf := "snmp-agent trap enable\n" +
		"snmp-agent target-host trap address udp-domain 198.51.100.5 params securityname audit\n" +
		"snmp-agent target-host trap address udp-domain 198.51.100.6 params securityname audit\n"

	shell := &mapShell{answers: map[string]string{
		"display current-configuration | include snmp-agent": conf,
	}}

	got := SNMPTrapRule{}.Run(context.Background(), target(domain.VendorComware, shell), Config{})
	if got.Verdict != domain.VerdictCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}
}

func TestSNMPTrapRuleMissingTarget(t *testing.T) {
	conf := "snmp-agent trap enable\n" +
		"snmp-agent target-host trap address udp-domain 198.51.100.5 params securityname audit\n"

	shell := &mapShell{answers: map[string]string{
		"display current-configuration | include snmp-agent": conf,
	}}

	cfg := Config{"required_targets": "198.51.100.5,198.51.100.9", "min_targets": "1"}

	got := SNMPTrapRule{}.Run(context.Background(), target(domain.VendorComware, shell), cfg)
	if got.Verdict != domain.VerdictNonCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}

	if !strings.Contains(got.Detail, "198.51.100.9") {
		t.Errorf("detail should name the missing target: %s", got.Detail)
	}
}

func TestSNMPv3RuleWithoutCredentials(t *testing.T) {
	tgt := target(domain.VendorComware, &mapShell{})
	tgt.SNMP = &domain.SNMPCredentials{}

	got := SNMPv3Rule{}.Run(context.Background(), tgt, Config{})
	if got.Verdict != domain.VerdictError {
		t.Fatalf("verdict = %s, want error (%s)", got.Verdict, got.Detail)
	}
}

func TestUptimeRuleUsesDiscoveryCache(t *testing.T) {
	shell := &mapShell{}

	tgt := target(domain.VendorComware, shell)
	tgt.Platform = &domain.PlatformInfo{
		ProbeCommand: "display version",
		Raw:          "Uptime is 6 weeks, 0 days, 1 hours, 2 minutes",
	}

	got := UptimeRule{}.Run(context.Background(), tgt, Config{})
	if got.Verdict != domain.VerdictCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}

	if len(shell.sent) != 0 {
		t.Errorf("cached uptime should not issue commands, sent %v", shell.sent)
	}
}

func TestUptimeRuleRecentReboot(t *testing.T) {
	shell := &mapShell{answers: map[string]string{
		"screen-length disable": "",
		"display version":       "Uptime is 0 weeks, 0 days, 2 hours, 5 minutes",
	}}

	got := UptimeRule{}.Run(context.Background(), target(domain.VendorComware, shell), Config{})
	if got.Verdict != domain.VerdictNonCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}
}

func TestHardwareInventoryFromCache(t *testing.T) {
	tgt := target(domain.VendorArubaOS, &mapShell{})
	tgt.Platform = &domain.PlatformInfo{
		ProbeCommand: "display version",
		Raw: "Aruba 2930F 24G 4SFP Switch with 4 slots\n" +
			"Product Name : JL258A\n" +
			"Software Version : WC.16.08.001\n",
	}

	got := HardwareInventoryRule{}.Run(context.Background(), tgt, Config{})
	if got.Verdict != domain.VerdictCompliant {
		t.Fatalf("verdict = %s (%s)", got.Verdict, got.Detail)
	}

	if !strings.Contains(got.Detail, "2930F") {
		t.Errorf("detail should carry the model: %s", got.Detail)
	}

	if !strings.Contains(got.Detail, "via display version") {
		t.Errorf("detail should name the source command: %s", got.Detail)
	}
}

func TestApplicability(t *testing.T) {
	unknown := &domain.Device{Vendor: domain.VendorUnknown}
	comware := &domain.Device{Vendor: domain.VendorComware}
	procurve := &domain.Device{Vendor: domain.VendorProCurve}

	if !(SysnameRule{}).Applicable(unknown) || !(TacacsRule{}).Applicable(unknown) || !(SNMPv3Rule{}).Applicable(unknown) {
		t.Error("sysname, tacacs and snmp_v3 apply to every platform")
	}

	if (SNMPTrapRule{}).Applicable(procurve) || !(SNMPTrapRule{}).Applicable(comware) {
		t.Error("snmp_trap is a comware check")
	}

	if (TransceiverDiagnosticsRule{}).Applicable(procurve) || !(TransceiverDiagnosticsRule{}).Applicable(comware) {
		t.Error("transceiver_diagnostics is a comware check")
	}

	if (CPUUsageRule{}).Applicable(unknown) || !(CPUUsageRule{}).Applicable(procurve) {
		t.Error("cpu_usage needs an identified platform")
	}
}
