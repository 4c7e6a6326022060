package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"netaudit/internal/domain"
	"netaudit/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite history store
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS batches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		devices INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS device_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		address TEXT NOT NULL,
		hostname TEXT NOT NULL DEFAULT '',
		vendor TEXT NOT NULL DEFAULT 'unknown',
		model TEXT NOT NULL DEFAULT '',
		firmware TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		failure TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		results JSON NOT NULL,
		FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_device_records_batch ON device_records(batch_id, position);
	CREATE INDEX IF NOT EXISTS idx_device_records_address ON device_records(address);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveBatch stores a finished batch transactionally and returns its id
func (r *Repository) SaveBatch(ctx context.Context, batch *domain.AuditBatch) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO batches (started_at, finished_at, devices, failed) VALUES (?, ?, ?, ?)`,
		batch.StartedAt.UTC(), batch.FinishedAt.UTC(), len(batch.Records), batch.Failed(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}

	batchID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("batch id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO device_records
			(batch_id, position, address, hostname, vendor, model, firmware, status, failure, duration_ms, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i := range batch.Records {
		rec := &batch.Records[i]

		results, err := json.Marshal(rec.Results)
		if err != nil {
			return 0, fmt.Errorf("marshal results for %s: %w", rec.Device.Address, err)
		}

		_, err = stmt.ExecContext(ctx,
			batchID, i,
			rec.Device.Address, rec.Device.Hostname, string(rec.Device.Vendor),
			rec.Device.Model, rec.Device.Firmware,
			string(rec.Status), rec.Failure, rec.Duration.Milliseconds(), results,
		)
		if err != nil {
			return 0, fmt.Errorf("insert record for %s: %w", rec.Device.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	return batchID, nil
}

// GetBatch loads one stored batch with its records in input order
func (r *Repository) GetBatch(ctx context.Context, id int64) (*domain.AuditBatch, error) {
	batch := &domain.AuditBatch{}

	err := r.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at FROM batches WHERE id = ?`, id,
	).Scan(&batch.StartedAt, &batch.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT address, hostname, vendor, model, firmware, status, failure, duration_ms, results
		FROM device_records WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec        domain.DeviceAuditRecord
			vendor     string
			status     string
			durationMS int64
			results    []byte
		)

		err := rows.Scan(
			&rec.Device.Address, &rec.Device.Hostname, &vendor,
			&rec.Device.Model, &rec.Device.Firmware,
			&status, &rec.Failure, &durationMS, &results,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.Device.Vendor = domain.Vendor(vendor)
		rec.Status = domain.DeviceStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		if err := json.Unmarshal(results, &rec.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results for %s: %w", rec.Device.Address, err)
		}

		batch.Records = append(batch.Records, rec)
	}

	return batch, rows.Err()
}

// ListBatches lists stored runs, newest first
func (r *Repository) ListBatches(ctx context.Context, limit int) ([]repository.BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, devices, failed
		FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var summaries []repository.BatchSummary

	for rows.Next() {
		var s repository.BatchSummary

		if err := rows.Scan(&s.ID, &s.StartedAt, &s.FinishedAt, &s.Devices, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan batch summary: %w", err)
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// Close releases the underlying database handle
func (r *Repository) Close() error {
	return r.db.Close()
}
