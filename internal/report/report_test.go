package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"netaudit/internal/domain"
)

func sampleBatch() *domain.AuditBatch {
	return &domain.AuditBatch{
		StartedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
		Records: []domain.DeviceAuditRecord{
			{
				Device: domain.Device{
					Address:  "192.0.2.1",
					Hostname: "SW-CORE-01",
					Vendor:   domain.VendorComware,
					Model:    "5130 EI",
					Firmware: "7.1.059, Release 3307P06",
				},
				Status:   domain.StatusOK,
				Duration: 90 * time.Second,
				Results: []domain.RuleResult{
					{Rule: "sysname", Verdict: domain.VerdictCompliant, Detail: "hostname ok"},
					{Rule: "tacacs", Verdict: domain.VerdictNonCompliant, Detail: "no tacacs scheme"},
				},
			},
			{
				Device:   domain.Device{Address: "192.0.2.2", Vendor: domain.VendorUnknown},
				Status:   domain.StatusFailed,
				Failure:  "unreachable",
				Duration: 15 * time.Second,
				Results: []domain.RuleResult{
					{Rule: "sysname", Verdict: domain.VerdictError, Detail: "unreachable: connect refused"},
					{Rule: "tacacs", Verdict: domain.VerdictError, Detail: "unreachable: connect refused"},
				},
			},
		},
	}
}

func TestCSVRender(t *testing.T) {
	var buf bytes.Buffer

	err := CSV{}.Render(&buf, sampleBatch(), []string{"sysname", "tacacs"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading rendered csv: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}

	header := strings.Join(rows[0], ",")
	for _, col := range []string{"ip", "status", "hostname", "sysname_verdict", "tacacs_details"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing column %s: %s", col, header)
		}
	}

	if rows[1][0] != "192.0.2.1" || rows[2][0] != "192.0.2.2" {
		t.Errorf("device order not preserved: %v / %v", rows[1][0], rows[2][0])
	}

	// Verdict columns carry the verdict word, not a boolean.
	if rows[1][7] != "compliant" || rows[1][9] != "non_compliant" {
		t.Errorf("verdict cells = %q, %q", rows[1][7], rows[1][9])
	}

	if rows[2][7] != "error" {
		t.Errorf("failed device verdict = %q, want error", rows[2][7])
	}
}

func TestHTMLRender(t *testing.T) {
	var buf bytes.Buffer

	err := HTML{}.Render(&buf, sampleBatch(), []string{"sysname", "tacacs"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()

	for _, want := range []string{
		"SW-CORE-01",
		"5130 EI",
		`class="ok"`,
		`class="fail"`,
		`class="error"`,
		"sysnameChart",
		"Devices audited: 2 (1 failed)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestHTMLRenderChartsSeparateErrors(t *testing.T) {
	var buf bytes.Buffer

	if err := (HTML{}).Render(&buf, sampleBatch(), []string{"sysname"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	out := buf.String()

	if !strings.Contains(out, "'Compliant', 'Non-compliant', 'Error'") {
		t.Error("chart should label errors separately from violations")
	}
	// One compliant, no violations, one unevaluable device.
	if !strings.Contains(out, "data: [1, 0, 1]") {
		t.Errorf("chart slices wrong, output:\n%s", out)
	}
}

func TestHTMLRenderEscapesDetails(t *testing.T) {
	batch := sampleBatch()
	batch.Records[0].Results[0].Detail = `hostname "<script>alert(1)</script>"`

	var buf bytes.Buffer
	if err := (HTML{}).Render(&buf, batch, []string{"sysname"}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if strings.Contains(buf.String(), "<script>alert(1)</script>") {
		t.Error("rule detail not escaped in html output")
	}
}

func TestJSONRender(t *testing.T) {
	var buf bytes.Buffer

	if err := (JSON{}).Render(&buf, sampleBatch(), nil); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var decoded domain.AuditBatch
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}

	if len(decoded.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(decoded.Records))
	}

	if decoded.Records[0].Device.Hostname != "SW-CORE-01" {
		t.Errorf("first record = %+v", decoded.Records[0].Device)
	}

	// Credentials never appear in serialized output by construction; the
	// batch carries none to begin with.
	if strings.Contains(buf.String(), "password") {
		t.Error("serialized batch mentions a password field")
	}
}
