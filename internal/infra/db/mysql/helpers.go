package mysql

import (
	"database/sql"
	"encoding/json"
	"strings"

	domain "github.com/inkwell-studio/artwork-pipeline/internal/domain/artwork"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// analysisJSON serializes an AnalysisResult for the analysis column; nil → NULL.
func analysisJSON(res *domain.AnalysisResult) (sql.NullString, error) {
	if res == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// scanAnalysis decodes the analysis column; NULL or empty → nil result.
func scanAnalysis(raw sql.NullString) *domain.AnalysisResult {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal([]byte(raw.String), &res); err != nil {
		return nil
	}
	return &res
}
