package artwork

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

func testResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Title:      "Mountain Logo",
		Keywords:   []string{"mountain", "outdoor"},
		AnalyzedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPersistPrimaryHit(t *testing.T) {
	primary := newFakeItemRepo()
	fallback := newFakeItemRepo()
	seedItems(primary, "b1", "logo.png")
	p := &Persister{Primary: primary, Fallback: fallback}

	require.NoError(t, p.Persist(context.Background(), "item-00", testResult()))

	it, err := primary.Get(context.Background(), "item-00")
	require.NoError(t, err)
	require.NotNil(t, it.Analysis)
	assert.Equal(t, "Mountain Logo", it.Analysis.Title)
}

func TestPersistFallsBackOnZeroRows(t *testing.T) {
	primary := newFakeItemRepo() // empty: update reports zero rows
	fallback := newFakeItemRepo()
	seedItems(fallback, "b1", "legacy.png")
	p := &Persister{Primary: primary, Fallback: fallback}

	require.NoError(t, p.Persist(context.Background(), "item-00", testResult()))

	it, err := fallback.Get(context.Background(), "item-00")
	require.NoError(t, err)
	require.NotNil(t, it.Analysis)
}

func TestPersistFallsBackOnPrimaryError(t *testing.T) {
	primary := newFakeItemRepo()
	primary.updateAnalysisErr = fmt.Errorf("mysql gone")
	fallback := newFakeItemRepo()
	seedItems(fallback, "b1", "legacy.png")
	p := &Persister{Primary: primary, Fallback: fallback}

	require.NoError(t, p.Persist(context.Background(), "item-00", testResult()))
}

func TestPersistBothMissReturnsError(t *testing.T) {
	p := &Persister{Primary: newFakeItemRepo(), Fallback: newFakeItemRepo()}

	err := p.Persist(context.Background(), "ghost", testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "any store")
}

func TestPersistNoFallbackConfigured(t *testing.T) {
	p := &Persister{Primary: newFakeItemRepo()}

	err := p.Persist(context.Background(), "ghost", testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary store")
}
