package ports

import (
	"context"

	"datalens/domain/core"
)

// AnalysisRequest is the configuration submitted to the remote pre-analysis
// service.
type AnalysisRequest struct {
	VersionID    core.VersionID     `json:"version_id"`
	Model        string             `json:"model"`
	TargetColumn string             `json:"target_column,omitempty"`
	Columns      []string           `json:"columns,omitempty"`
	Thresholds   map[string]float64 `json:"thresholds,omitempty"`
}

// AnalysisClient talks to the remote pre-analysis service. Submission is
// fire-and-forget from the caller's perspective; the result arrives later
// through the version record and is read by polling.
type AnalysisClient interface {
	Submit(ctx context.Context, req AnalysisRequest) error
	// Poll blocks until the version's analysis result is populated, the
	// poll timeout elapses, or ctx is done.
	Poll(ctx context.Context, versionID core.VersionID) (string, error)
}
