package profile

import (
	"datalens/domain/dataset"
)

// QualityReport scores a profiled dataset on three axes, each in [0, 1].
// All three are computed deterministically from the profile itself.
type QualityReport struct {
	// Completeness is the share of non-missing cells.
	Completeness float64 `json:"completeness"`
	// Uniqueness is the share of non-duplicate rows among those
	// inspected by duplicate detection.
	Uniqueness float64 `json:"uniqueness"`
	// Consistency penalizes columns whose raw values parse to mixed
	// shapes, using each column's inconsistency ratio.
	Consistency float64 `json:"consistency"`
	Overall     float64 `json:"overall"`
}

// ScoreQuality derives the quality report from a finished profile.
func ScoreQuality(p *dataset.Profile) QualityReport {
	report := QualityReport{Completeness: 1, Uniqueness: 1, Consistency: 1}

	// Profiles reloaded from storage carry no sample rows; the recorded
	// row count stands in for them.
	sampled := len(p.SampleRows)
	if sampled == 0 {
		sampled = p.RowCount
	}
	totalCells := sampled * len(p.Columns)
	if totalCells > 0 {
		report.Completeness = 1 - float64(p.MissingTotal)/float64(totalCells)
	}

	// Duplicate counts cover only the rows duplicate detection inspected,
	// which can be fewer than the sample when its cap is tighter.
	inspected := p.DuplicateInspected
	if inspected == 0 {
		inspected = sampled
	}
	if inspected > 0 {
		report.Uniqueness = 1 - float64(p.DuplicateRows)/float64(inspected)
	}

	if len(p.Columns) > 0 {
		penalty := 0.0
		for _, col := range p.Columns {
			if col.Consistency != nil {
				penalty += col.Consistency.InconsistencyRatio
			}
		}
		report.Consistency = 1 - penalty/float64(len(p.Columns))
	}

	report.Overall = (report.Completeness + report.Uniqueness + report.Consistency) / 3
	return report
}
