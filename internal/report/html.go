package report

import (
	"fmt"
	"html/template"
	"io"
	"regexp"

	"netaudit/internal/domain"
)

// HTML renders a self-contained dashboard: per-rule compliance pie charts
// and the full result table.
type HTML struct{}

type htmlRuleStat struct {
	Name         string
	ChartID      string
	Compliant    int
	NonCompliant int
	Errors       int
	Percentage   float64
}

type htmlCell struct {
	Class  string
	Detail string
}

type htmlRow struct {
	IP       string
	Hostname string
	Model    string
	Firmware string
	Duration string
	Status   domain.DeviceStatus
	Cells    []htmlCell
}

type htmlData struct {
	Total     int
	Failed    int
	RuleNames []string
	Stats     []htmlRuleStat
	Rows      []htmlRow
}

var chartIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]`)

func (HTML) Render(w io.Writer, batch *domain.AuditBatch, rules []string) error {
	data := htmlData{
		Total:     len(batch.Records),
		Failed:    batch.Failed(),
		RuleNames: rules,
	}

	for _, name := range rules {
		stat := htmlRuleStat{Name: name, ChartID: chartIDSanitizer.ReplaceAllString(name, "_")}

		for i := range batch.Records {
			result, ok := batch.Records[i].Result(name)
			if !ok {
				continue
			}

			switch result.Verdict {
			case domain.VerdictCompliant:
				stat.Compliant++
			case domain.VerdictNonCompliant:
				stat.NonCompliant++
			case domain.VerdictError:
				stat.Errors++
			}
		}

		// Errors count against the compliance percentage without being
		// labelled as violations.
		if graded := stat.Compliant + stat.NonCompliant + stat.Errors; graded > 0 {
			stat.Percentage = float64(100*stat.Compliant) / float64(graded)
		}

		data.Stats = append(data.Stats, stat)
	}

	for i := range batch.Records {
		rec := &batch.Records[i]

		row := htmlRow{
			IP:       rec.Device.Address,
			Hostname: orDefault(rec.Device.Hostname, "N/A"),
			Model:    orDefault(rec.Device.Model, "N/A"),
			Firmware: orDefault(rec.Device.Firmware, "N/A"),
			Duration: fmt.Sprintf("%.1f", rec.Duration.Seconds()),
			Status:   rec.Status,
		}

		for _, name := range rules {
			cell := htmlCell{Class: "error", Detail: "no result recorded"}

			if result, ok := rec.Result(name); ok {
				cell.Detail = result.Detail

				switch result.Verdict {
				case domain.VerdictCompliant:
					cell.Class = "ok"
				case domain.VerdictNonCompliant:
					cell.Class = "fail"
				case domain.VerdictSkipped:
					cell.Class = "skipped"
				default:
					cell.Class = "error"
				}
			}

			row.Cells = append(row.Cells, cell)
		}

		data.Rows = append(data.Rows, row)
	}

	return dashboardTemplate.Execute(w, data)
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Network Compliance Audit</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        body { font-family: 'Roboto', sans-serif; margin: 40px; background-color: #f4f6f9; color: #34495e; }
        h1 { color: #2c3e50; text-align: center; margin-bottom: 20px; }
        .summary { margin-bottom: 30px; text-align: center; }
        .summary p { font-weight: 500; font-size: 1.1em; }
        .charts { display: flex; flex-wrap: wrap; gap: 40px; justify-content: center; margin-bottom: 40px; }
        .chart-container { width: 300px; }
        table { border-collapse: collapse; width: 100%; margin-top: 20px; background-color: #ffffff; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1); }
        th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
        th { background-color: #34495e; color: white; font-weight: 500; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        tr:hover { background-color: #f1f1f1; }
        .ok { background-color: #c8e6c9; color: #2e7d32; font-weight: bold; }
        .fail { background-color: #ffcdd2; color: #c62828; font-weight: bold; }
        .error { background-color: #ffe0b2; color: #e65100; font-weight: bold; }
        .skipped { background-color: #eceff1; color: #607d8b; }
        @media (max-width: 768px) {
            .chart-container { width: 100%; }
            table { font-size: 0.9em; }
        }
    </style>
</head>
<body>
    <h1>Network Compliance Audit</h1>
    <div class="summary">
        <p>Devices audited: {{.Total}} ({{.Failed}} failed)</p>
        {{- range .Stats}}
        <p>{{.Name}}: {{printf "%.1f" .Percentage}}% compliant</p>
        {{- end}}
    </div>

    <div class="charts">
        {{- range .Stats}}
        <div class="chart-container">
            <canvas id="{{.ChartID}}Chart"></canvas>
        </div>
        {{- end}}
    </div>

    <table>
        <thead>
            <tr>
                <th>IP</th>
                <th>Hostname</th>
                <th>Model</th>
                <th>Firmware</th>
                <th>Duration (s)</th>
                <th>Status</th>
                {{- range .RuleNames}}
                <th>{{.}}</th>
                {{- end}}
            </tr>
        </thead>
        <tbody>
            {{- range .Rows}}
            <tr>
                <td>{{.IP}}</td>
                <td>{{.Hostname}}</td>
                <td>{{.Model}}</td>
                <td>{{.Firmware}}</td>
                <td>{{.Duration}}</td>
                <td>{{.Status}}</td>
                {{- range .Cells}}
                <td class="{{.Class}}">{{.Detail}}</td>
                {{- end}}
            </tr>
            {{- end}}
        </tbody>
    </table>

    <script>
        {{- range .Stats}}
        new Chart(document.getElementById('{{.ChartID}}Chart'), {
            type: 'pie',
            data: {
                labels: ['Compliant', 'Non-compliant', 'Error'],
                datasets: [{
                    data: [{{.Compliant}}, {{.NonCompliant}}, {{.Errors}}],
                    backgroundColor: ['#4CAF50', '#F44336', '#FF9800']
                }]
            },
            options: {
                plugins: {
                    legend: { position: 'bottom' }
                }
            }
        });
        {{- end}}
    </script>
</body>
</html>
`))
