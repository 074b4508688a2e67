package artwork

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-studio/artwork-pipeline/internal/application"
	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// UploadFile satu file kiriman customer
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadReport hasil akhir satu batch upload
type UploadReport struct {
	Uploaded int            `json:"uploaded"`
	Total    int            `json:"total"`
	Items    []*domain.Item `json:"items"`
	Images   []*domain.Item `json:"images"`
}

// UploadService implements the bounded-concurrency batch uploader: files run
// in fixed-size groups, the whole group settles before the next one starts.
// Bukan worker pool bebas; puncak koneksi ke storage persis = GroupSize.
type UploadService struct {
	Items   domain.ItemRepository
	Batches domain.BatchRepository
	Blobs   domain.BlobStore
	Clock   application.Clock
	Search  *SearchService // optional, diinvalidate setelah mutasi

	// GroupSize adalah cap concurrency upload (default 5)
	GroupSize int
	Registry  *Registry
}

func (s *UploadService) groupSize() int {
	if s.GroupSize <= 0 {
		return 5
	}
	return s.GroupSize
}

// Start validates input and runs the upload in the background, returning a
// task handle the caller can await, cancel or poll.
func (s *UploadService) Start(ctx context.Context, batchID domain.BatchID, files []UploadFile) (*Task, *UploadReport, error) {
	batch, err := s.validate(ctx, batchID, files)
	if err != nil {
		return nil, nil, err
	}

	// background context: upload jalan terus walau request HTTP-nya selesai
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := newTask(StageUpload, len(files), cancel)
	if s.Registry != nil {
		s.Registry.Put(t)
	}

	report := &UploadReport{Total: len(files)}
	go func() {
		defer cancel()
		s.run(runCtx, t, batch, files, report)
		t.finish(nil)
	}()
	return t, report, nil
}

// UploadBatch is the synchronous form: same grouped run, caller blocks until
// every group settled.
func (s *UploadService) UploadBatch(ctx context.Context, batchID domain.BatchID, files []UploadFile) (*UploadReport, error) {
	batch, err := s.validate(ctx, batchID, files)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	t := newTask(StageUpload, len(files), cancel)

	report := &UploadReport{Total: len(files)}
	s.run(runCtx, t, batch, files, report)
	t.finish(nil)
	return report, nil
}

// validate: operasi batch hanya ditolak kalau input list kosong atau
// batch-nya tidak ketemu; kegagalan per file tidak membatalkan apa-apa.
func (s *UploadService) validate(ctx context.Context, batchID domain.BatchID, files []UploadFile) (*domain.Batch, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}
	batch, err := s.Batches.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("resolve batch %s: %w", batchID, err)
	}
	return batch, nil
}

func (s *UploadService) run(ctx context.Context, t *Task, batch *domain.Batch, files []UploadFile, report *UploadReport) {
	var uploaded int64
	var mu sync.Mutex // guards report slices

	size := s.groupSize()
	for start := 0; start < len(files); start += size {
		// cancel hanya dicek di batas group
		if ctx.Err() != nil {
			break
		}
		end := start + size
		if end > len(files) {
			end = len(files)
		}

		var g errgroup.Group
		for _, f := range files[start:end] {
			f := f
			g.Go(func() error {
				it, err := s.uploadOne(ctx, batch.ID, f)
				if err != nil {
					// skip file ini saja, group dan batch jalan terus
					log.Printf("upload: skipping file name=%q batch=%s err=%v", f.Name, batch.ID, err)
				} else {
					atomic.AddInt64(&uploaded, 1)
					mu.Lock()
					report.Items = append(report.Items, it)
					if it.IsImage() {
						report.Images = append(report.Images, it)
					}
					mu.Unlock()
				}
				t.advance(1)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.Uploaded = int(atomic.LoadInt64(&uploaded))

	// optimistic delta; drift (misal update ini gagal) dibereskan reconciler
	if report.Uploaded > 0 {
		total := batch.TotalItems + report.Uploaded
		if err := s.Batches.UpdateTotalItems(ctx, batch.ID, total); err != nil {
			log.Printf("upload: total_items patch failed batch=%s err=%v", batch.ID, err)
		}
		if s.Search != nil {
			s.Search.Invalidate()
		}
	}
}

func (s *UploadService) uploadOne(ctx context.Context, batchID domain.BatchID, f UploadFile) (*domain.Item, error) {
	key := BuildObjectKey(batchID, f.Name, s.Clock.Now())
	url, err := s.Blobs.Put(ctx, key, f.Content, f.Size, f.ContentType)
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	now := s.Clock.Now()
	it := &domain.Item{
		ID:          domain.ItemID(uuid.New().String()),
		BatchID:     batchID,
		Name:        f.Name,
		StorageURL:  url,
		ContentType: f.ContentType,
		SizeBytes:   f.Size,
		Status:      domain.ItemPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Items.Save(ctx, it); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return it, nil
}

// BuildObjectKey: batches/{batchID}/{epochMillis}_{randomToken}.{ext}
// Token acak supaya dua file sama nama di satu milidetik tidak tabrakan.
func BuildObjectKey(batchID domain.BatchID, name string, now time.Time) string {
	ext := strings.ToLower(path.Ext(name))
	token := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("batches/%s/%d_%s%s", batchID, now.UnixMilli(), token, ext)
}
