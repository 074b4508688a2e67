package artwork

import (
	"context"
	"fmt"
	"log"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// Reconciler memulihkan invariant batch.total_items == jumlah item anak.
// Mutasi (upload, delete) cuma patch delta optimis; drift dari update yang
// gagal atau perubahan out-of-band dikoreksi di sini, eventual consistency.
type Reconciler struct {
	Batches domain.BatchRepository
	Primary domain.ItemRepository
	Legacy  domain.ItemRepository // nil kalau legacy store tidak dipakai
}

// Reconcile recomputes true per-batch counts from both item stores and
// corrects every batch whose stored total drifted. Returns how many batches
// were corrected.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	counts, err := r.Primary.CountsByBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("count primary items: %w", err)
	}
	if r.Legacy != nil {
		legacy, err := r.Legacy.CountsByBatch(ctx)
		if err != nil {
			// legacy store down bukan alasan batal; koreksi pakai data
			// yang ada saja bisa salah arah, jadi berhenti di sini
			return 0, fmt.Errorf("count legacy items: %w", err)
		}
		for id, n := range legacy {
			counts[id] += n
		}
	}

	batches, err := r.Batches.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list batches: %w", err)
	}

	corrected := 0
	for _, b := range batches {
		actual := counts[b.ID]
		if b.TotalItems == actual {
			continue
		}
		if err := r.Batches.UpdateTotalItems(ctx, b.ID, actual); err != nil {
			log.Printf("reconciler: correction failed batch=%s want=%d err=%v", b.ID, actual, err)
			continue
		}
		log.Printf("reconciler: corrected batch=%s stored=%d actual=%d", b.ID, b.TotalItems, actual)
		b.TotalItems = actual
		corrected++
	}
	return corrected, nil
}
