package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// ItemRepository menulis ke tabel utama artwork_items
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `
id, batch_id, name, storage_url, content_type, size_bytes, status,
customer_comment, source_link, analysis, created_at, updated_at`

// Save insert/update Item record
func (r *ItemRepository) Save(ctx context.Context, it *domain.Item) error {
	const q = `
INSERT INTO artwork_items
(id, batch_id, name, storage_url, content_type, size_bytes, status,
 customer_comment, source_link, analysis, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 name=VALUES(name), storage_url=VALUES(storage_url),
 content_type=VALUES(content_type), size_bytes=VALUES(size_bytes),
 status=VALUES(status), customer_comment=VALUES(customer_comment),
 source_link=VALUES(source_link), analysis=VALUES(analysis),
 updated_at=VALUES(updated_at);`

	status := stringOrDash(string(it.Status))
	created := it.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := it.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	analysis, err := analysisJSON(it.Analysis)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, q,
		it.ID, it.BatchID, it.Name, it.StorageURL, it.ContentType, it.SizeBytes, status,
		it.CustomerComment, it.SourceLink, analysis, created, updated,
	)
	return err
}

// Get by ID
func (r *ItemRepository) Get(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM artwork_items WHERE id=? LIMIT 1;`
	return scanItemRow(r.db.QueryRowContext(ctx, q, id))
}

// ListByBatch ambil semua item milik satu batch
func (r *ItemRepository) ListByBatch(ctx context.Context, batch domain.BatchID) ([]*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM artwork_items WHERE batch_id=? ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q, batch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ListAll untuk search index dan reconciler
func (r *ItemRepository) ListAll(ctx context.Context) ([]*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM artwork_items ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// UpdateAnalysis hanya menimpa kolom analysis; returns rows affected supaya
// persister tahu kapan harus fallback ke store legacy.
func (r *ItemRepository) UpdateAnalysis(ctx context.Context, id domain.ItemID, res *domain.AnalysisResult) (int64, error) {
	const q = `
UPDATE artwork_items
SET analysis = ?, updated_at = ?
WHERE id = ?;`
	analysis, err := analysisJSON(res)
	if err != nil {
		return 0, err
	}
	out, err := r.db.ExecContext(ctx, q, analysis, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return out.RowsAffected()
}

// UpdateStatus update kolom status + komentar customer
func (r *ItemRepository) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.ItemStatus, comment string) error {
	const q = `
UPDATE artwork_items
SET status = ?, customer_comment = ?, updated_at = ?
WHERE id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, comment, time.Now(), id)
	return err
}

// Delete hapus satu item
func (r *ItemRepository) Delete(ctx context.Context, id domain.ItemID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM artwork_items WHERE id=?;`, id)
	return err
}

// CountsByBatch recomputes true child counts for the reconciler.
func (r *ItemRepository) CountsByBatch(ctx context.Context) (map[domain.BatchID]int, error) {
	const q = `SELECT batch_id, COUNT(*) FROM artwork_items GROUP BY batch_id;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.BatchID]int)
	for rows.Next() {
		var id domain.BatchID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var it domain.Item
	var comment, source, analysis sql.NullString
	if err := row.Scan(
		&it.ID, &it.BatchID, &it.Name, &it.StorageURL, &it.ContentType, &it.SizeBytes, &it.Status,
		&comment, &source, &analysis, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	it.CustomerComment = comment.String
	it.SourceLink = source.String
	it.Analysis = scanAnalysis(analysis)
	return &it, nil
}

func scanItemRow(row *sql.Row) (*domain.Item, error) {
	return scanItem(row)
}

func scanItemRows(rows *sql.Rows) ([]*domain.Item, error) {
	var out []*domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
