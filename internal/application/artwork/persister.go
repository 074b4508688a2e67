package artwork

import (
	"context"
	"fmt"
	"log"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// Persister hides the two historical item stores behind one write path.
// Artwork lama tinggal di tabel legacy; caller tidak perlu tahu itemnya
// tersimpan di mana.
type Persister struct {
	Primary  domain.ItemRepository
	Fallback domain.ItemRepository // nil kalau legacy store tidak dipakai
}

// Persist overwrites the analysis for one item: primary first, fallback when
// the primary update misses. Kedua-duanya gagal bukan fatal untuk pipeline;
// caller cukup log, hasil in-memory tetap bisa ditampilkan.
func (p *Persister) Persist(ctx context.Context, id domain.ItemID, res *domain.AnalysisResult) error {
	n, err := p.Primary.UpdateAnalysis(ctx, id, res)
	if err == nil && n > 0 {
		return nil
	}
	if err != nil {
		log.Printf("persister: primary update failed item=%s err=%v", id, err)
	}

	if p.Fallback == nil {
		if err != nil {
			return fmt.Errorf("primary update: %w", err)
		}
		return fmt.Errorf("item %s not found in primary store", id)
	}

	n, err = p.Fallback.UpdateAnalysis(ctx, id, res)
	if err != nil {
		return fmt.Errorf("fallback update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %s not found in any store", id)
	}
	return nil
}
