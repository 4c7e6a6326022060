package repository

import (
	"context"
	"time"

	"netaudit/internal/domain"
)

// BatchSummary is one stored run as listed by the history store.
type BatchSummary struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Devices    int
	Failed     int
}

// Repository defines the interface for audit history access
type Repository interface {
	// SaveBatch stores a finished batch and returns its id.
	SaveBatch(ctx context.Context, batch *domain.AuditBatch) (int64, error)

	// GetBatch loads one stored batch with its records in input order.
	GetBatch(ctx context.Context, id int64) (*domain.AuditBatch, error)

	// ListBatches lists stored runs, newest first.
	ListBatches(ctx context.Context, limit int) ([]BatchSummary, error)

	// Close releases resources
	Close() error
}
