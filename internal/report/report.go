// Package report renders a finished audit batch. Renderers act on the batch
// only; nothing here can reach back into an audit in progress.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"netaudit/internal/domain"
)

// Renderer writes one representation of a batch. The rules slice fixes the
// column order; every record is expected to carry one result per rule.
type Renderer interface {
	Render(w io.Writer, batch *domain.AuditBatch, rules []string) error
}

// WriteFile renders the batch into path, creating parent directories.
func WriteFile(r Renderer, path string, batch *domain.AuditBatch, rules []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err := r.Render(f, batch, rules); err != nil {
		f.Close()
		return fmt.Errorf("render report: %w", err)
	}

	return f.Close()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
