package artwork

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsImageName(t *testing.T) {
	yes := []string{
		"logo.png", "photo.jpg", "photo.jpeg", "anim.gif",
		"modern.webp", "scan.tiff", "scan.tif",
		"UPPER.PNG", "Mixed.JpEg",
		"http://host/bucket/batches/b1/123_ab.png",
		"http://host/a.png?X-Amz-Signature=abc",
	}
	for _, name := range yes {
		assert.True(t, IsImageName(name), name)
	}

	no := []string{
		"brief.pdf", "archive.zip", "vector.svg", "raw.psd",
		"noext", "", "png", "file.png.pdf",
	}
	for _, name := range no {
		assert.False(t, IsImageName(name), name)
	}
}

func TestItemIsImagePrefersName(t *testing.T) {
	it := &Item{Name: "design.png", StorageURL: "http://host/blob-without-ext"}
	assert.True(t, it.IsImage())

	// nama hilang (record legacy lama), jatuh ke URL
	it = &Item{StorageURL: "http://host/batches/b1/123_ab.webp"}
	assert.True(t, it.IsImage())

	it = &Item{Name: "brief.pdf", StorageURL: "http://host/batches/b1/123_ab.png"}
	assert.False(t, it.IsImage(), "name wins over the storage URL")
}

func TestAnalyzedRequiresTimestamp(t *testing.T) {
	it := &Item{}
	assert.False(t, it.Analyzed())

	it.Analysis = &AnalysisResult{Title: "draft"}
	assert.False(t, it.Analyzed(), "a result without analyzed_at is not complete")

	it.Analysis.AnalyzedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, it.Analyzed())
}
