package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

const indexKey = "artwork_index"

// SearchService menjawab free-text search tanpa network call per keystroke:
// index penuh (item + hasil analisis semua batch) dibangun lazily di query
// pertama, lalu dipakai ulang sampai TTL habis atau ada mutasi.
type SearchService struct {
	Batches domain.BatchRepository
	Primary domain.ItemRepository
	Legacy  domain.ItemRepository // nil kalau legacy store tidak dipakai

	cache *gocache.Cache
}

func NewSearchService(batches domain.BatchRepository, primary, legacy domain.ItemRepository, ttl time.Duration) *SearchService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SearchService{
		Batches: batches,
		Primary: primary,
		Legacy:  legacy,
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// Invalidate drops the index; dipanggil setelah upload, analysis atau delete
// supaya search tidak nampilin hasil basi.
func (s *SearchService) Invalidate() {
	if s != nil && s.cache != nil {
		s.cache.Delete(indexKey)
	}
}

// index returns the cached batch→items map, building it on first use.
func (s *SearchService) index(ctx context.Context) (map[domain.BatchID][]*domain.Item, error) {
	if v, ok := s.cache.Get(indexKey); ok {
		return v.(map[domain.BatchID][]*domain.Item), nil
	}

	items, err := s.Primary.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list primary items: %w", err)
	}
	if s.Legacy != nil {
		legacy, err := s.Legacy.ListAll(ctx)
		if err != nil {
			// index tetap kepakai walau legacy down, cuma kurang lengkap
			log.Printf("search: legacy store unavailable, index without it err=%v", err)
		} else {
			items = append(items, legacy...)
		}
	}

	idx := make(map[domain.BatchID][]*domain.Item, len(items))
	for _, it := range items {
		idx[it.BatchID] = append(idx[it.BatchID], it)
	}
	s.cache.SetDefault(indexKey, idx)
	return idx, nil
}

// Query returns every batch matching the term in its own fields or in any
// child item (name + semua field hasil analisis). Empty term = semua batch.
func (s *SearchService) Query(ctx context.Context, term string) ([]*domain.Batch, error) {
	batches, err := s.Batches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return batches, nil
	}

	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}

	var out []*domain.Batch
	for _, b := range batches {
		if batchMatches(b, term) || anyItemMatches(idx[b.ID], term) {
			out = append(out, b)
		}
	}
	return out, nil
}

func batchMatches(b *domain.Batch, term string) bool {
	return contains(b.Label, term) ||
		contains(b.CustomerName, term) ||
		contains(b.CustomerEmail, term)
}

func anyItemMatches(items []*domain.Item, term string) bool {
	for _, it := range items {
		if itemMatches(it, term) {
			return true
		}
	}
	return false
}

func itemMatches(it *domain.Item, term string) bool {
	if contains(it.Name, term) {
		return true
	}
	res := it.Analysis
	if res == nil {
		return false
	}
	if contains(res.Title, term) || contains(res.Description, term) || contains(res.Category, term) {
		return true
	}
	if anyContains(res.Keywords, term) || anyContains(res.Colors, term) || anyContains(res.ContentDetected, term) {
		return true
	}
	// catch-all: substring match di JSON mentahnya, nutup field lain
	// (alt, type, recommendations) sekalian
	if raw, err := json.Marshal(res); err == nil && contains(string(raw), term) {
		return true
	}
	return false
}

func contains(s, term string) bool {
	return strings.Contains(strings.ToLower(s), term)
}

func anyContains(ss []string, term string) bool {
	for _, s := range ss {
		if contains(s, term) {
			return true
		}
	}
	return false
}
