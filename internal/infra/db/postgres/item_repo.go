package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// ItemRepository untuk tabel legacy gallery_items.
// Skema sama dengan artwork_items; artwork lama belum dimigrasikan,
// jadi persister fallback ke sini kalau tabel utama tidak kena.
type ItemRepository struct{ db *sql.DB }

func NewItemRepository(db *sql.DB) *ItemRepository { return &ItemRepository{db: db} }

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil { return nil, err }
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil { return nil, err }
	return db, nil
}

const itemColumns = `
id, batch_id, name, storage_url, content_type, size_bytes, status,
customer_comment, source_link, analysis, created_at, updated_at`

// Save insert/update Item record
func (r *ItemRepository) Save(ctx context.Context, it *domain.Item) error {
	const q = `
INSERT INTO gallery_items
(id, batch_id, name, storage_url, content_type, size_bytes, status,
 customer_comment, source_link, analysis, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
 name = EXCLUDED.name,
 storage_url = EXCLUDED.storage_url,
 content_type = EXCLUDED.content_type,
 size_bytes = EXCLUDED.size_bytes,
 status = EXCLUDED.status,
 customer_comment = EXCLUDED.customer_comment,
 source_link = EXCLUDED.source_link,
 analysis = EXCLUDED.analysis,
 updated_at = EXCLUDED.updated_at;`

	created := it.CreatedAt
	if created.IsZero() { created = time.Now() }
	updated := it.UpdatedAt
	if updated.IsZero() { updated = created }
	analysis, err := analysisJSON(it.Analysis)
	if err != nil { return err }

	_, err = r.db.ExecContext(ctx, q,
		it.ID, it.BatchID, it.Name, it.StorageURL, it.ContentType, it.SizeBytes, string(it.Status),
		it.CustomerComment, it.SourceLink, analysis, created, updated,
	)
	return err
}

// Get by ID
func (r *ItemRepository) Get(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM gallery_items WHERE id=$1 LIMIT 1;`
	return scanItem(r.db.QueryRowContext(ctx, q, id))
}

// ListByBatch ambil semua item milik satu batch
func (r *ItemRepository) ListByBatch(ctx context.Context, batch domain.BatchID) ([]*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM gallery_items WHERE batch_id=$1 ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q, batch)
	if err != nil { return nil, err }
	defer rows.Close()
	return scanItems(rows)
}

// ListAll untuk search index dan reconciler
func (r *ItemRepository) ListAll(ctx context.Context) ([]*domain.Item, error) {
	q := `SELECT ` + itemColumns + ` FROM gallery_items ORDER BY created_at ASC;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil { return nil, err }
	defer rows.Close()
	return scanItems(rows)
}

// UpdateAnalysis menimpa kolom analysis; rows affected dipakai persister
func (r *ItemRepository) UpdateAnalysis(ctx context.Context, id domain.ItemID, res *domain.AnalysisResult) (int64, error) {
	const q = `UPDATE gallery_items SET analysis = $1, updated_at = $2 WHERE id = $3;`
	analysis, err := analysisJSON(res)
	if err != nil { return 0, err }
	out, err := r.db.ExecContext(ctx, q, analysis, time.Now(), id)
	if err != nil { return 0, err }
	return out.RowsAffected()
}

// UpdateStatus update kolom status + komentar customer
func (r *ItemRepository) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.ItemStatus, comment string) error {
	const q = `UPDATE gallery_items SET status = $1, customer_comment = $2, updated_at = $3 WHERE id = $4;`
	_, err := r.db.ExecContext(ctx, q, string(status), comment, time.Now(), id)
	return err
}

// Delete hapus satu item
func (r *ItemRepository) Delete(ctx context.Context, id domain.ItemID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM gallery_items WHERE id=$1;`, id)
	return err
}

// CountsByBatch recomputes true child counts for the reconciler.
func (r *ItemRepository) CountsByBatch(ctx context.Context) (map[domain.BatchID]int, error) {
	const q = `SELECT batch_id, COUNT(*) FROM gallery_items GROUP BY batch_id;`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil { return nil, err }
	defer rows.Close()

	out := make(map[domain.BatchID]int)
	for rows.Next() {
		var id domain.BatchID
		var n int
		if err := rows.Scan(&id, &n); err != nil { return nil, err }
		out[id] = n
	}
	return out, rows.Err()
}

func analysisJSON(res *domain.AnalysisResult) (sql.NullString, error) {
	if res == nil { return sql.NullString{}, nil }
	b, err := json.Marshal(res)
	if err != nil { return sql.NullString{}, err }
	return sql.NullString{String: string(b), Valid: true}, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(row rowScanner) (*domain.Item, error) {
	var it domain.Item
	var comment, source, analysis sql.NullString
	if err := row.Scan(
		&it.ID, &it.BatchID, &it.Name, &it.StorageURL, &it.ContentType, &it.SizeBytes, &it.Status,
		&comment, &source, &analysis, &it.CreatedAt, &it.UpdatedAt,
	); err != nil { return nil, err }
	it.CustomerComment = comment.String
	it.SourceLink = source.String
	if analysis.Valid && strings.TrimSpace(analysis.String) != "" {
		var res domain.AnalysisResult
		if err := json.Unmarshal([]byte(analysis.String), &res); err == nil {
			it.Analysis = &res
		}
	}
	return &it, nil
}

func scanItems(rows *sql.Rows) ([]*domain.Item, error) {
	var out []*domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil { return nil, err }
		out = append(out, it)
	}
	return out, rows.Err()
}
