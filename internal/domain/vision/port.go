package vision

import (
	"context"

	"github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// Analyzer port. Analyze returns (nil, nil) when analysis is disabled
// (missing credential) or the URL is not an allow-listed image.
type Analyzer interface {
	Analyze(ctx context.Context, imageURL string) (*artwork.AnalysisResult, error)
}
