package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRecordResultLookup(t *testing.T) {
	rec := DeviceAuditRecord{
		Device: Device{Address: "10.0.0.1"},
		Status: StatusOK,
		Results: []RuleResult{
			{Rule: "sysname", Verdict: VerdictCompliant},
			{Rule: "tacacs", Verdict: VerdictError, Detail: "unreachable"},
		},
	}

	res, ok := rec.Result("tacacs")
	if !ok {
		t.Fatal("expected tacacs result")
	}
	if res.Verdict != VerdictError {
		t.Errorf("verdict = %s, want %s", res.Verdict, VerdictError)
	}

	if _, ok := rec.Result("uptime"); ok {
		t.Error("unexpected result for unrequested rule")
	}
}

func TestBatchCounters(t *testing.T) {
	start := time.Now()
	batch := AuditBatch{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Records: []DeviceAuditRecord{
			{Status: StatusOK},
			{Status: StatusFailed},
			{Status: StatusFailed},
		},
	}

	if got := batch.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
	if got := batch.Duration(); got != 90*time.Second {
		t.Errorf("Duration() = %s, want 90s", got)
	}
}

func TestCredentialsNeverSerialized(t *testing.T) {
	type payload struct {
		Creds Credentials     `json:"creds"`
		SNMP  SNMPCredentials `json:"snmp"`
	}

	data, err := json.Marshal(payload{
		Creds: Credentials{Username: "admin", Password: "hunter2"},
		SNMP:  SNMPCredentials{User: "snmpv3", AuthKey: "authsecret", PrivKey: "privsecret"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, secret := range []string{"hunter2", "authsecret", "privsecret", "admin"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("serialized payload leaks %q", secret)
		}
	}
}

func TestVendorFamilies(t *testing.T) {
	tests := []struct {
		vendor  Vendor
		known   bool
		comware bool
	}{
		{VendorComware, true, true},
		{VendorComwareGeneric, true, true},
		{VendorHuawei, true, true},
		{VendorProCurve, true, false},
		{VendorArubaOS, true, false},
		{VendorUnknown, false, false},
		{Vendor(""), false, false},
	}

	for _, tt := range tests {
		if got := tt.vendor.Known(); got != tt.known {
			t.Errorf("%q.Known() = %v, want %v", tt.vendor, got, tt.known)
		}
		if got := tt.vendor.ComwareFamily(); got != tt.comware {
			t.Errorf("%q.ComwareFamily() = %v, want %v", tt.vendor, got, tt.comware)
		}
	}
}
