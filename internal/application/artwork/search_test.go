package artwork

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

func searchFixture(t *testing.T) (*SearchService, *fakeItemRepo, *fakeBatchRepo) {
	t.Helper()
	batches := newFakeBatchRepo(
		&domain.Batch{ID: "b1", Label: "Spring Collection", CustomerName: "Alia"},
		&domain.Batch{ID: "b2", Label: "Cafe Rebrand", CustomerName: "Budi"},
	)
	items := newFakeItemRepo()
	_ = items.Save(context.Background(), &domain.Item{
		ID: "i1", BatchID: "b1", Name: "flowers.png",
		Analysis: &domain.AnalysisResult{
			Title:    "Spring Flowers",
			Keywords: []string{"floral", "pastel"},
		},
	})
	_ = items.Save(context.Background(), &domain.Item{
		ID: "i2", BatchID: "b2", Name: "cup.png",
		Analysis: &domain.AnalysisResult{
			Title:    "Cup Logo",
			Keywords: []string{"coffee", "mug"},
			Colors:   []string{"brown", "cream"},
		},
	})
	return NewSearchService(batches, items, nil, time.Minute), items, batches
}

func TestQueryMatchesAnalysisKeyword(t *testing.T) {
	svc, _, _ := searchFixture(t)

	got, err := svc.Query(context.Background(), "coffee")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BatchID("b2"), got[0].ID, "keyword lives only in b2's item analysis")
}

func TestQueryMatchesBatchFields(t *testing.T) {
	svc, _, _ := searchFixture(t)

	got, err := svc.Query(context.Background(), "alia")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BatchID("b1"), got[0].ID)
}

func TestQueryEmptyTermReturnsAllBatches(t *testing.T) {
	svc, _, _ := searchFixture(t)

	got, err := svc.Query(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQueryReusesCachedIndex(t *testing.T) {
	svc, items, _ := searchFixture(t)

	_, err := svc.Query(context.Background(), "coffee")
	require.NoError(t, err)

	// a second query within TTL must not hit the stores again
	items.listErr = assert.AnError
	got, err := svc.Query(context.Background(), "coffee")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	svc, items, _ := searchFixture(t)

	got, err := svc.Query(context.Background(), "neon")
	require.NoError(t, err)
	assert.Empty(t, got)

	// new analysis lands, cache dropped, next query sees it
	_ = items.Save(context.Background(), &domain.Item{
		ID: "i3", BatchID: "b1", Name: "sign.png",
		Analysis: &domain.AnalysisResult{Title: "Neon Sign"},
	})
	svc.Invalidate()

	got, err = svc.Query(context.Background(), "neon")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BatchID("b1"), got[0].ID)
}

func TestStaleIndexWithoutInvalidate(t *testing.T) {
	svc, items, _ := searchFixture(t)

	_, err := svc.Query(context.Background(), "anything")
	require.NoError(t, err)

	_ = items.Save(context.Background(), &domain.Item{
		ID: "i3", BatchID: "b1", Name: "sign.png",
		Analysis: &domain.AnalysisResult{Title: "Neon Sign"},
	})

	// tanpa Invalidate, index lama masih dipakai sampai TTL
	got, err := svc.Query(context.Background(), "neon")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryMergesLegacyStoreItems(t *testing.T) {
	batches := newFakeBatchRepo(&domain.Batch{ID: "b1", Label: "Archive"})
	primary := newFakeItemRepo()
	legacy := newFakeItemRepo()
	_ = legacy.Save(context.Background(), &domain.Item{
		ID: "old-1", BatchID: "b1", Name: "woodcut.png",
		Analysis: &domain.AnalysisResult{Keywords: []string{"vintage"}},
	})
	svc := NewSearchService(batches, primary, legacy, time.Minute)

	got, err := svc.Query(context.Background(), "vintage")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BatchID("b1"), got[0].ID)
}

func TestNilSearchServiceInvalidateIsSafe(t *testing.T) {
	var svc *SearchService
	svc.Invalidate() // must not panic; services hold it as an optional dep
}
