package artwork

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// fakeClock ticks forward on every Now() so timestamps are strictly ordered.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fakeItemRepo struct {
	mu      sync.Mutex
	items   map[domain.ItemID]*domain.Item
	saveErr error
	listErr error

	updateAnalysisErr  error
	updateAnalysisMiss bool // report zero rows affected
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[domain.ItemID]*domain.Item)}
}

func (r *fakeItemRepo) Save(ctx context.Context, it *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *it
	r.items[it.ID] = &cp
	return nil
}

func (r *fakeItemRepo) Get(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *it
	return &cp, nil
}

func (r *fakeItemRepo) ListByBatch(ctx context.Context, batch domain.BatchID) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Item
	for _, it := range r.items {
		if it.BatchID == batch {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListAll(ctx context.Context) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.Item
	for _, it := range r.items {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeItemRepo) UpdateAnalysis(ctx context.Context, id domain.ItemID, res *domain.AnalysisResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateAnalysisErr != nil {
		return 0, r.updateAnalysisErr
	}
	if r.updateAnalysisMiss {
		return 0, nil
	}
	it, ok := r.items[id]
	if !ok {
		return 0, nil
	}
	it.Analysis = res
	return 1, nil
}

func (r *fakeItemRepo) UpdateStatus(ctx context.Context, id domain.ItemID, status domain.ItemStatus, comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	it.Status = status
	it.CustomerComment = comment
	return nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, id domain.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeItemRepo) CountsByBatch(ctx context.Context) (map[domain.BatchID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.BatchID]int)
	for _, it := range r.items {
		out[it.BatchID]++
	}
	return out, nil
}

func (r *fakeItemRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeBatchRepo struct {
	mu           sync.Mutex
	batches      map[domain.BatchID]*domain.Batch
	totalUpdates []int
}

func newFakeBatchRepo(batches ...*domain.Batch) *fakeBatchRepo {
	r := &fakeBatchRepo{batches: make(map[domain.BatchID]*domain.Batch)}
	for _, b := range batches {
		cp := *b
		r.batches[b.ID] = &cp
	}
	return r
}

func (r *fakeBatchRepo) Save(ctx context.Context, b *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *fakeBatchRepo) Get(ctx context.Context, id domain.BatchID) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBatchRepo) List(ctx context.Context) ([]*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Batch
	for _, b := range r.batches {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeBatchRepo) UpdateTotalItems(ctx context.Context, id domain.BatchID, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return sql.ErrNoRows
	}
	b.TotalItems = total
	r.totalUpdates = append(r.totalUpdates, total)
	return nil
}

func (r *fakeBatchRepo) total(id domain.BatchID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[id].TotalItems
}

// failMarker in a file's content makes the fake blob store reject that put.
const failMarker = "FAIL-THIS-UPLOAD"

// fakeBlobStore records concurrency so tests can assert the group model:
// peak in-flight puts and, per put, how many puts had completed when it
// started.
type fakeBlobStore struct {
	mu               sync.Mutex
	inFlight         int
	maxInFlight      int
	completed        int
	completedAtStart []int
	removed          []string
	delay            time.Duration
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{}
}

func (s *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.completedAtStart = append(s.completedAtStart, s.completed)
	s.mu.Unlock()

	body, readErr := io.ReadAll(r)

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.inFlight--
	s.completed++
	s.mu.Unlock()

	if readErr != nil {
		return "", readErr
	}
	if strings.Contains(string(body), failMarker) {
		return "", fmt.Errorf("simulated storage failure for %s", key)
	}
	return "http://blobs.local/test-bucket/" + key, nil
}

func (s *fakeBlobStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, key)
	return nil
}

// fakeAnalyzer scripts per-URL outcomes and records call order.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls []string
	clock *fakeClock

	failURLs map[string]bool
	result   func(url string) *domain.AnalysisResult
}

func newFakeAnalyzer(clock *fakeClock) *fakeAnalyzer {
	return &fakeAnalyzer{clock: clock, failURLs: make(map[string]bool)}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, imageURL string) (*domain.AnalysisResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, imageURL)
	fail := a.failURLs[imageURL]
	a.mu.Unlock()

	if !domain.IsImageName(imageURL) {
		return nil, nil
	}
	if fail {
		return nil, fmt.Errorf("simulated vision failure for %s", imageURL)
	}
	res := &domain.AnalysisResult{
		Title:      "Test Artwork",
		Keywords:   []string{"test"},
		AnalyzedAt: a.clock.Now(),
	}
	if a.result != nil {
		if custom := a.result(imageURL); custom != nil {
			custom.AnalyzedAt = a.clock.Now()
			res = custom
		}
	}
	return res, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}
