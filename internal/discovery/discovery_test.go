package discovery

import (
	"context"
	"errors"
	"testing"

	"netaudit/internal/domain"
	"netaudit/internal/session"
)

// fakeShell answers commands from a canned response map. Unknown commands get
// a dialect-style rejection so paging/probe fallbacks behave realistically.
type fakeShell struct {
	responses map[string]string
	failWith  error
}

func (f *fakeShell) Send(_ context.Context, command string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}

	if out, ok := f.responses[command]; ok {
		return out, nil
	}

	return "% Unrecognized command", nil
}

const comwareVersion = `HPE Comware Software, Version 7.1.059, Release 3307P06
Copyright (c) 2010-2017 Hewlett Packard Enterprise Development LP
HPE 5130 EI Switch with 4 slots
`

func TestIdentifyComware(t *testing.T) {
	sh := &fakeShell{responses: map[string]string{
		"display version": comwareVersion,
		"display current-configuration | include sysname": " sysname SW-CORE-01\n",
	}}

	d := &Discoverer{}
	info, err := d.Identify(context.Background(), sh)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	if info.Vendor != domain.VendorComware {
		t.Errorf("vendor = %s, want %s", info.Vendor, domain.VendorComware)
	}
	if info.Hostname != "SW-CORE-01" {
		t.Errorf("hostname = %q, want SW-CORE-01", info.Hostname)
	}
	if info.Model != "5130 EI" {
		t.Errorf("model = %q, want 5130 EI", info.Model)
	}
	if info.Firmware != "7.1.059, Release 3307P06" {
		t.Errorf("firmware = %q", info.Firmware)
	}
	if info.ProbeCommand != "display version" {
		t.Errorf("probe command = %q", info.ProbeCommand)
	}
}

// Signature order is a priority: an HP-specific marker must win over the
// generic Comware marker present in the same output.
func TestSignaturePriority(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   domain.Vendor
	}{
		{
			name:   "hp marker beats generic comware",
			output: "HP Comware Platform Software\nComware Software, Version 5.20\n",
			want:   domain.VendorComware,
		},
		{
			name:   "bare comware falls through to generic",
			output: "H3C Comware Platform Software, Version 5.20, Release 2220\n",
			want:   domain.VendorComwareGeneric,
		},
		{
			name:   "procurve",
			output: "HP J9729A 2920-24G-PoE+ Switch, revision WB.16.04\nProCurve OS\n",
			want:   domain.VendorProCurve,
		},
		{
			name:   "huawei vrp",
			output: "Huawei Versatile Routing Platform Software\nVRP (R) software, Version 5.170\n",
			want:   domain.VendorHuawei,
		},
		{
			name:   "aruba",
			output: "ArubaOS-CX FL.10.06.0001\n",
			want:   domain.VendorArubaOS,
		},
		{
			name:   "unidentified",
			output: "FastIron 08.0.30 build\n",
			want:   domain.VendorUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := &fakeShell{responses: map[string]string{"display version": tt.output}}

			d := &Discoverer{}
			info, err := d.Identify(context.Background(), sh)
			if err != nil {
				t.Fatalf("Identify: %v", err)
			}

			if info.Vendor != tt.want {
				t.Errorf("vendor = %s, want %s", info.Vendor, tt.want)
			}
		})
	}
}

func TestIdentifyUnknownIsNotAnError(t *testing.T) {
	// Device answers the probe with something no signature matches.
	sh := &fakeShell{responses: map[string]string{
		"show version": "SuperNet OS 1.0\n",
	}}

	d := &Discoverer{}
	info, err := d.Identify(context.Background(), sh)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if info.Vendor != domain.VendorUnknown {
		t.Errorf("vendor = %s, want unknown", info.Vendor)
	}
}

func TestIdentifyPropagatesTransportFailure(t *testing.T) {
	sh := &fakeShell{failWith: &session.CommandError{Command: "display version", Timeout: true}}

	d := &Discoverer{}
	_, err := d.Identify(context.Background(), sh)

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if !session.IsTimeout(discErr.Err) {
		t.Error("expected wrapped command timeout")
	}
}

func TestIdentifyFallsBackToSecondProbe(t *testing.T) {
	sh := &fakeShell{responses: map[string]string{
		"show version": "Image stamp: /ws/swbuild\nSoftware revision : WC.16.08.0001\nAruba JL258A 2930F-8G-PoE+-2SFP Switch\n",
	}}

	d := &Discoverer{}
	info, err := d.Identify(context.Background(), sh)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	if info.Vendor != domain.VendorArubaOS {
		t.Errorf("vendor = %s, want %s", info.Vendor, domain.VendorArubaOS)
	}
	if info.Version != "WC.16.08.0001" {
		t.Errorf("version = %q", info.Version)
	}
}
