package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Save insert/update Batch record
func (r *BatchRepository) Save(ctx context.Context, b *domain.Batch) error {
	const q = `
INSERT INTO batches
(id, label, access_key, customer_name, customer_email, status,
 total_items, approved_count, rejected_count, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 label=VALUES(label), customer_name=VALUES(customer_name),
 customer_email=VALUES(customer_email), status=VALUES(status),
 total_items=VALUES(total_items),
 approved_count=VALUES(approved_count), rejected_count=VALUES(rejected_count);`

	status := stringOrDash(string(b.Status))
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.Label, b.AccessKey, b.CustomerName, b.CustomerEmail, status,
		b.TotalItems, b.ApprovedCount, b.RejectedCount, created,
	)
	return err
}

// Get by ID
func (r *BatchRepository) Get(ctx context.Context, id domain.BatchID) (*domain.Batch, error) {
	const q = `
SELECT id, label, access_key, customer_name, customer_email, status,
       total_items, approved_count, rejected_count, created_at
FROM batches
WHERE id=? LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, id)
	return scanBatch(row)
}

// List semua batch, terbaru dulu
func (r *BatchRepository) List(ctx context.Context) ([]*domain.Batch, error) {
	const q = `
SELECT id, label, access_key, customer_name, customer_email, status,
       total_items, approved_count, rejected_count, created_at
FROM batches
ORDER BY created_at DESC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateTotalItems hanya update kolom denormalized total_items
func (r *BatchRepository) UpdateTotalItems(ctx context.Context, id domain.BatchID, total int) error {
	const q = `UPDATE batches SET total_items = ? WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, total, id)
	return err
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var b domain.Batch
	var name, email sql.NullString
	if err := row.Scan(
		&b.ID, &b.Label, &b.AccessKey, &name, &email, &b.Status,
		&b.TotalItems, &b.ApprovedCount, &b.RejectedCount, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	b.CustomerName = name.String
	b.CustomerEmail = email.String
	return &b, nil
}
