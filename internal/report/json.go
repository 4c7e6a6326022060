package report

import (
	"encoding/json"
	"io"

	"netaudit/internal/domain"
)

// JSON renders the batch verbatim for downstream tooling.
type JSON struct{}

func (JSON) Render(w io.Writer, batch *domain.AuditBatch, _ []string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(batch)
}
