package artwork

import (
	"context"
	"io"
)

// ItemRepository port (interface untuk persistence item).
// Dua implementasi: tabel utama (mysql) dan tabel legacy (postgres);
// caller tidak perlu tahu item tinggal di tabel yang mana.
type ItemRepository interface {
	Save(ctx context.Context, it *Item) error
	Get(ctx context.Context, id ItemID) (*Item, error)
	ListByBatch(ctx context.Context, batch BatchID) ([]*Item, error)
	ListAll(ctx context.Context) ([]*Item, error)

	// UpdateAnalysis overwrites the analysis column for one item and
	// reports how many rows were touched (0 = item lives elsewhere).
	UpdateAnalysis(ctx context.Context, id ItemID, res *AnalysisResult) (int64, error)

	UpdateStatus(ctx context.Context, id ItemID, status ItemStatus, comment string) error
	Delete(ctx context.Context, id ItemID) error

	// CountsByBatch recomputes true child counts per batch.
	CountsByBatch(ctx context.Context) (map[BatchID]int, error)
}

// BatchRepository port
type BatchRepository interface {
	Save(ctx context.Context, b *Batch) error
	Get(ctx context.Context, id BatchID) (*Batch, error)
	List(ctx context.Context) ([]*Batch, error)
	UpdateTotalItems(ctx context.Context, id BatchID, total int) error
}

// BlobStore port (interface untuk object storage)
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}
