package artwork

import (
	"context"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
	"github.com/inkwell-studio/artwork-pipeline/internal/domain/vision"
)

// AnalysisService fans the vision client out across uploaded items in fixed
// groups. Cap-nya sengaja lebih kecil dari upload: vision API jauh lebih
// mahal daripada object storage.
type AnalysisService struct {
	Vision    vision.Analyzer
	Persister *Persister
	Search    *SearchService // optional

	// GroupSize adalah cap concurrency analysis (default 3)
	GroupSize int
	Registry  *Registry

	// OnGroupDone dipanggil di antara group, dipakai caller untuk refresh
	// daftar item yang tampil. Boleh nil.
	OnGroupDone func(done, total int)
}

func (s *AnalysisService) groupSize() int {
	if s.GroupSize <= 0 {
		return 3
	}
	return s.GroupSize
}

// AnalyzeItem runs one item through the vision client and persists the
// result. Non-image items are skipped without touching the API. Persist yang
// gagal cuma di-log: hasil in-memory tetap dikembalikan, tampilan tidak
// nunggu storage.
func (s *AnalysisService) AnalyzeItem(ctx context.Context, it *domain.Item) (*domain.AnalysisResult, error) {
	if !it.IsImage() {
		return nil, nil
	}
	res, err := s.Vision.Analyze(ctx, it.StorageURL)
	if err != nil || res == nil {
		return nil, err
	}
	if err := s.Persister.Persist(ctx, it.ID, res); err != nil {
		log.Printf("analysis: persist failed item=%s err=%v", it.ID, err)
	}
	it.Analysis = res
	return res, nil
}

// Start runs "analyze all" in the background and returns the task handle.
// Items non-image difilter duluan, tidak dihitung di total.
func (s *AnalysisService) Start(ctx context.Context, items []*domain.Item) *Task {
	images := make([]*domain.Item, 0, len(items))
	for _, it := range items {
		if it.IsImage() {
			images = append(images, it)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := newTask(StageAnalyze, len(images), cancel)
	if s.Registry != nil {
		s.Registry.Put(t)
	}

	go func() {
		defer cancel()
		s.run(runCtx, t, images)
		t.finish(nil)
	}()
	return t
}

// AnalyzeAll is the synchronous form; returns how many succeeded out of the
// image subset.
func (s *AnalysisService) AnalyzeAll(ctx context.Context, items []*domain.Item) (succeeded, total int) {
	images := make([]*domain.Item, 0, len(items))
	for _, it := range items {
		if it.IsImage() {
			images = append(images, it)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	t := newTask(StageAnalyze, len(images), cancel)
	n := s.run(runCtx, t, images)
	t.finish(nil)
	return n, len(images)
}

func (s *AnalysisService) run(ctx context.Context, t *Task, images []*domain.Item) int {
	var succeeded int64

	size := s.groupSize()
	for start := 0; start < len(images); start += size {
		if ctx.Err() != nil {
			break
		}
		end := start + size
		if end > len(images) {
			end = len(images)
		}

		var g errgroup.Group
		for _, it := range images[start:end] {
			it := it
			g.Go(func() error {
				res, err := s.AnalyzeItem(ctx, it)
				if err != nil {
					// soft failure: item ini tinggal tanpa hasil, bisa
					// diretry manual satu-satu
					log.Printf("analysis: item failed item=%s url=%s err=%v", it.ID, it.StorageURL, err)
				}
				if res != nil {
					atomic.AddInt64(&succeeded, 1)
				}
				// gagal pun dihitung selesai, progress selalu sampai total
				t.advance(1)
				return nil
			})
		}
		_ = g.Wait()

		// refresh tampilan di batas group, bukan all-or-nothing di akhir
		if s.OnGroupDone != nil {
			snap := t.Snapshot()
			s.OnGroupDone(snap.Done, snap.Total)
		}
	}

	if succeeded > 0 && s.Search != nil {
		s.Search.Invalidate()
	}
	return int(atomic.LoadInt64(&succeeded))
}
