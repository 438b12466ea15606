package profile

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreQualityPerfect(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	prof, err := p.Run(context.Background(), "a,b\n1,2\n3,4\n5,6\n")
	require.NoError(t, err)

	report := ScoreQuality(prof)
	assert.Equal(t, 1.0, report.Completeness)
	assert.Equal(t, 1.0, report.Uniqueness)
	assert.Equal(t, 1.0, report.Consistency)
	assert.Equal(t, 1.0, report.Overall)
}

func TestScoreQualityPenalizesDefects(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	// One missing cell, one duplicate row, one mixed-shape column.
	prof, err := p.Run(context.Background(), "a,b\n1,x\n,y\n1,x\n2,3\n")
	require.NoError(t, err)

	report := ScoreQuality(prof)
	assert.Less(t, report.Completeness, 1.0)
	assert.Less(t, report.Uniqueness, 1.0)
	assert.Less(t, report.Consistency, 1.0)
	assert.Less(t, report.Overall, 1.0)
	assert.Greater(t, report.Overall, 0.0)
}

func TestScoreQualityDeterministic(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	prof, err := p.Run(context.Background(), "a,b\n1,x\n,y\n1,x\n")
	require.NoError(t, err)

	assert.Equal(t, ScoreQuality(prof), ScoreQuality(prof))
}

func TestScoreQualityUsesInspectedRowsForUniqueness(t *testing.T) {
	// Duplicate detection can inspect fewer rows than the parser sampled;
	// the duplicate ratio must be taken over the inspected rows.
	var sb strings.Builder
	sb.WriteString("v\n")
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "%d\n", i%40)
	}

	cfg := testConfig()
	cfg.DuplicateSampleCap = 50

	p := NewPipeline(cfg, nil, nil)
	prof, err := p.Run(context.Background(), sb.String())
	require.NoError(t, err)

	require.Equal(t, 50, prof.DuplicateInspected)
	require.Equal(t, 10, prof.DuplicateRows)
	require.Len(t, prof.SampleRows, 200)

	report := ScoreQuality(prof)
	assert.InDelta(t, 1-10.0/50.0, report.Uniqueness, 1e-9)
}

func TestScoreQualityWithoutSampleRows(t *testing.T) {
	// A profile reloaded from storage has RowCount but no sample rows.
	prof := &dataset.Profile{
		RowCount:      10,
		Columns:       []dataset.ColumnInfo{{Key: "a"}, {Key: "b"}},
		MissingTotal:  4,
		DuplicateRows: 2,
	}
	report := ScoreQuality(prof)

	assert.InDelta(t, 0.8, report.Completeness, 1e-9)
	assert.InDelta(t, 0.8, report.Uniqueness, 1e-9)
	assert.Equal(t, 1.0, report.Consistency)
}
