package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"netaudit/internal/domain"
)

// CSV renders one row per device: inventory columns first, then a verdict
// and a details column per rule.
type CSV struct{}

func (CSV) Render(w io.Writer, batch *domain.AuditBatch, rules []string) error {
	cw := csv.NewWriter(w)

	header := []string{"ip", "status", "duration", "hostname", "vendor", "model", "firmware"}
	for _, name := range rules {
		header = append(header, name+"_verdict", name+"_details")
	}

	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range batch.Records {
		rec := &batch.Records[i]

		row := []string{
			rec.Device.Address,
			string(rec.Status),
			fmt.Sprintf("%.1f", rec.Duration.Seconds()),
			orDefault(rec.Device.Hostname, "N/A"),
			string(rec.Device.Vendor),
			orDefault(rec.Device.Model, "N/A"),
			orDefault(rec.Device.Firmware, "N/A"),
		}

		for _, name := range rules {
			if result, ok := rec.Result(name); ok {
				row = append(row, string(result.Verdict), result.Detail)
			} else {
				row = append(row, string(domain.VerdictError), "no result recorded")
			}
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
