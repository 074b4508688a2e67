package artwork

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwell-studio/artwork-pipeline/internal/application"
	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// CatalogService implements the read/mutate surface around batches and items
// yang bukan bagian pipeline upload/analysis: create batch, listing,
// moderasi status, delete. Reconciler numpang jalan di sini (opportunistic).
type CatalogService struct {
	Batches    domain.BatchRepository
	Primary    domain.ItemRepository
	Legacy     domain.ItemRepository // nil kalau legacy store tidak dipakai
	Blobs      domain.BlobStore
	Reconciler *Reconciler
	Search     *SearchService
	Persister  *Persister
	Clock      application.Clock
}

// CreateBatch registers a new batch with a fresh opaque access key.
func (s *CatalogService) CreateBatch(ctx context.Context, label, customerName, customerEmail string) (*domain.Batch, error) {
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("label is required")
	}
	b := &domain.Batch{
		ID:            domain.BatchID(uuid.New().String()),
		Label:         label,
		AccessKey:     uuid.New().String(),
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Status:        domain.BatchPending,
		CreatedAt:     s.Clock.Now(),
	}
	if err := s.Batches.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("save batch: %w", err)
	}
	return b, nil
}

// ListBatches returns all batches, newest first. Reconciler jalan dulu di
// sini: load daftar batch adalah momen paling murah untuk koreksi drift.
func (s *CatalogService) ListBatches(ctx context.Context) ([]*domain.Batch, error) {
	if s.Reconciler != nil {
		if _, err := s.Reconciler.Reconcile(ctx); err != nil {
			// drift bukan error buat user, listing tetap jalan
			log.Printf("catalog: opportunistic reconcile failed err=%v", err)
		}
	}
	return s.Batches.List(ctx)
}

// GetBatch by id
func (s *CatalogService) GetBatch(ctx context.Context, id domain.BatchID) (*domain.Batch, error) {
	return s.Batches.Get(ctx, id)
}

// ListItems merges child items from both stores, oldest first.
func (s *CatalogService) ListItems(ctx context.Context, batch domain.BatchID) ([]*domain.Item, error) {
	items, err := s.Primary.ListByBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if s.Legacy != nil {
		legacy, err := s.Legacy.ListByBatch(ctx, batch)
		if err != nil {
			log.Printf("catalog: legacy store unavailable batch=%s err=%v", batch, err)
		} else {
			items = append(items, legacy...)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// GetItem looks the item up in the primary store, then legacy.
func (s *CatalogService) GetItem(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	it, err := s.Primary.Get(ctx, id)
	if err == nil {
		return it, nil
	}
	if s.Legacy != nil && errors.Is(err, sql.ErrNoRows) {
		return s.Legacy.Get(ctx, id)
	}
	return nil, err
}

// UpdateItemStatus is the collaborator mutation (approve/reject/revision).
func (s *CatalogService) UpdateItemStatus(ctx context.Context, id domain.ItemID, status domain.ItemStatus, comment string) error {
	repo, err := s.homeStore(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.UpdateStatus(ctx, id, status, comment); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.Search.Invalidate()
	return nil
}

// EditAnalysis overwrites the analysis by hand; manual edit tetap dapat
// stempel analyzed_at baru.
func (s *CatalogService) EditAnalysis(ctx context.Context, id domain.ItemID, res *domain.AnalysisResult) error {
	res.AnalyzedAt = s.Clock.Now()
	if err := s.Persister.Persist(ctx, id, res); err != nil {
		return err
	}
	s.Search.Invalidate()
	return nil
}

// DeleteItem removes the blob and the record, then runs a reconcile pass so
// total_items langsung bener lagi.
func (s *CatalogService) DeleteItem(ctx context.Context, id domain.ItemID) error {
	it, err := s.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve item %s: %w", id, err)
	}

	if key := ObjectKeyFromURL(it.StorageURL); key != "" {
		if err := s.Blobs.Remove(ctx, key); err != nil {
			// record tetap dihapus; object yatim lebih murah daripada
			// record yang nunjuk object hilang
			log.Printf("catalog: blob remove failed key=%s err=%v", key, err)
		}
	}

	repo, err := s.homeStore(ctx, id)
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if s.Reconciler != nil {
		if _, err := s.Reconciler.Reconcile(ctx); err != nil {
			log.Printf("catalog: reconcile after delete failed err=%v", err)
		}
	}
	s.Search.Invalidate()
	return nil
}

// homeStore finds which of the two stores actually holds the item.
func (s *CatalogService) homeStore(ctx context.Context, id domain.ItemID) (domain.ItemRepository, error) {
	if _, err := s.Primary.Get(ctx, id); err == nil {
		return s.Primary, nil
	} else if s.Legacy == nil || !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve item %s: %w", id, err)
	}
	if _, err := s.Legacy.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("resolve item %s: %w", id, err)
	}
	return s.Legacy, nil
}

// ObjectKeyFromURL derives the storage key back from a public URL; key item
// selalu mulai dengan "batches/".
func ObjectKeyFromURL(url string) string {
	i := strings.Index(url, "/batches/")
	if i < 0 {
		return ""
	}
	return url[i+1:]
}
