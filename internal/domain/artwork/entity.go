package artwork

import (
	"path"
	"strings"
	"time"
)

// ID tipe untuk Batch dan Item
type BatchID string
type ItemID string

// BatchStatus enum (aggregate, diisi oleh reviewer di luar pipeline)
type BatchStatus string

const (
	BatchPending  BatchStatus = "pending"
	BatchInReview BatchStatus = "in_review"
	BatchApproved BatchStatus = "approved"
	BatchRejected BatchStatus = "rejected"
)

// ItemStatus enum
type ItemStatus string

const (
	ItemPending        ItemStatus = "pending"
	ItemApproved       ItemStatus = "approved"
	ItemRejected       ItemStatus = "rejected"
	ItemRevisionNeeded ItemStatus = "revision_needed"
)

// Aggregate Root: Batch
type Batch struct {
	ID            BatchID     `json:"id"`
	Label         string      `json:"label"`
	AccessKey     string      `json:"access_key,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Status        BatchStatus `json:"status"`
	TotalItems    int         `json:"total_items"`
	ApprovedCount int         `json:"approved_count"`
	RejectedCount int         `json:"rejected_count"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Item adalah satu file desain di dalam Batch
type Item struct {
	ID              ItemID          `json:"id"`
	BatchID         BatchID         `json:"batch_id"`
	Name            string          `json:"name"`
	StorageURL      string          `json:"storage_url"`
	ContentType     string          `json:"content_type"`
	SizeBytes       int64           `json:"size_bytes"`
	Status          ItemStatus      `json:"status"`
	CustomerComment string          `json:"customer_comment,omitempty"`
	SourceLink      string          `json:"source_link,omitempty"`
	Analysis        *AnalysisResult `json:"analysis,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AnalysisResult value object; ditimpa utuh setiap re-analysis, tidak pernah merge.
// AnalyzedAt kosong artinya belum pernah dianalisis.
type AnalysisResult struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Alt             string    `json:"alt"`
	Keywords        []string  `json:"keywords"`
	Category        string    `json:"category"`
	Type            string    `json:"type"`
	Colors          []string  `json:"colors"`
	ContentDetected []string  `json:"content_detected"`
	QualityScore    string    `json:"quality_score"`
	Recommendations []string  `json:"recommendations"`
	AnalyzedAt      time.Time `json:"analyzed_at,omitempty"`
}

// imageExts: hanya ekstensi ini yang dikirim ke vision API
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// IsImageName reports whether the file name (or URL path) carries an
// allow-listed image extension.
func IsImageName(name string) bool {
	ext := strings.ToLower(path.Ext(strings.Split(name, "?")[0]))
	return imageExts[ext]
}

// IsImage checks the item by name first, storage URL as fallback.
func (i *Item) IsImage() bool {
	if i.Name != "" {
		return IsImageName(i.Name)
	}
	return IsImageName(i.StorageURL)
}

// Analyzed reports whether the item already carries a completed analysis.
func (i *Item) Analyzed() bool {
	return i.Analysis != nil && !i.Analysis.AnalyzedAt.IsZero()
}
