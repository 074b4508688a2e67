package artwork

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

func catalogFixture() (*CatalogService, *fakeItemRepo, *fakeItemRepo, *fakeBatchRepo, *fakeBlobStore) {
	primary := newFakeItemRepo()
	legacy := newFakeItemRepo()
	batches := newFakeBatchRepo()
	blobs := newFakeBlobStore()
	svc := &CatalogService{
		Batches:    batches,
		Primary:    primary,
		Legacy:     legacy,
		Blobs:      blobs,
		Reconciler: &Reconciler{Batches: batches, Primary: primary, Legacy: legacy},
		Search:     NewSearchService(batches, primary, legacy, time.Minute),
		Persister:  &Persister{Primary: primary, Fallback: legacy},
		Clock:      newFakeClock(),
	}
	return svc, primary, legacy, batches, blobs
}

func TestCreateBatchRequiresLabel(t *testing.T) {
	svc, _, _, _, _ := catalogFixture()

	_, err := svc.CreateBatch(context.Background(), "   ", "Alia", "")
	require.Error(t, err)
}

func TestCreateBatchIssuesAccessKey(t *testing.T) {
	svc, _, _, batches, _ := catalogFixture()

	b, err := svc.CreateBatch(context.Background(), "Spring Collection", "Alia", "alia@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.NotEmpty(t, b.AccessKey)
	assert.NotEqual(t, string(b.ID), b.AccessKey)

	stored, err := batches.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.AccessKey, stored.AccessKey)
}

func TestListItemsMergesStoresOldestFirst(t *testing.T) {
	svc, primary, legacy, _, _ := catalogFixture()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_ = primary.Save(context.Background(), &domain.Item{ID: "new", BatchID: "b1", Name: "new.png", CreatedAt: base.Add(time.Hour)})
	_ = legacy.Save(context.Background(), &domain.Item{ID: "old", BatchID: "b1", Name: "old.png", CreatedAt: base})

	items, err := svc.ListItems(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemID("old"), items[0].ID)
	assert.Equal(t, domain.ItemID("new"), items[1].ID)
}

func TestGetItemFallsThroughToLegacy(t *testing.T) {
	svc, _, legacy, _, _ := catalogFixture()
	_ = legacy.Save(context.Background(), &domain.Item{ID: "old", BatchID: "b1", Name: "old.png"})

	it, err := svc.GetItem(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "old.png", it.Name)
}

func TestUpdateItemStatusRoutesToHomeStore(t *testing.T) {
	svc, _, legacy, _, _ := catalogFixture()
	_ = legacy.Save(context.Background(), &domain.Item{ID: "old", BatchID: "b1", Name: "old.png", Status: domain.ItemPending})

	err := svc.UpdateItemStatus(context.Background(), "old", domain.ItemApproved, "looks great")
	require.NoError(t, err)

	it, err := legacy.Get(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemApproved, it.Status)
	assert.Equal(t, "looks great", it.CustomerComment)
}

func TestEditAnalysisStampsFreshTime(t *testing.T) {
	svc, primary, _, _, _ := catalogFixture()
	_ = primary.Save(context.Background(), &domain.Item{ID: "i1", BatchID: "b1", Name: "a.png"})

	res := &domain.AnalysisResult{Title: "Hand Edited"}
	require.NoError(t, svc.EditAnalysis(context.Background(), "i1", res))
	assert.False(t, res.AnalyzedAt.IsZero(), "manual edits still get an analyzed_at stamp")

	it, err := primary.Get(context.Background(), "i1")
	require.NoError(t, err)
	require.NotNil(t, it.Analysis)
	assert.Equal(t, "Hand Edited", it.Analysis.Title)
}

func TestDeleteItemRemovesBlobAndReconciles(t *testing.T) {
	svc, primary, _, batches, blobs := catalogFixture()
	_ = batches.Save(context.Background(), testBatch("b1", 1))
	_ = primary.Save(context.Background(), &domain.Item{
		ID: "i1", BatchID: "b1", Name: "a.png",
		StorageURL: "http://blobs.local/test-bucket/batches/b1/123_abcd1234.png",
	})

	require.NoError(t, svc.DeleteItem(context.Background(), "i1"))

	assert.Zero(t, primary.count())
	require.Len(t, blobs.removed, 1)
	assert.Equal(t, "batches/b1/123_abcd1234.png", blobs.removed[0])
	assert.Zero(t, batches.total("b1"), "reconcile after delete restores the count")
}

func TestObjectKeyFromURL(t *testing.T) {
	assert.Equal(t, "batches/b1/123_ab.png", ObjectKeyFromURL("http://blobs.local/bucket/batches/b1/123_ab.png"))
	assert.Empty(t, ObjectKeyFromURL("http://blobs.local/bucket/other/path.png"))
}
