package profile

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"datalens/domain/core"
	"datalens/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = "name,age,score\nalice,30,91.5\nbob,25,84\ncarol,na,77\nalice,30,91.5\n"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestPipelineRun(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	prof, err := p.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "score"}, prof.ColumnKeys)
	assert.Equal(t, 4, prof.RowCount)
	assert.False(t, prof.Sampled)
	require.Len(t, prof.Columns, 3)

	assert.Equal(t, dataset.TypeQualitative, prof.Columns[0].Type)
	assert.Equal(t, dataset.TypeQuantitative, prof.Columns[1].Type)
	assert.Equal(t, dataset.TypeQuantitative, prof.Columns[2].Type)

	// carol's age is "na".
	assert.Equal(t, 1, prof.Columns[1].MissingValues)
	assert.Equal(t, 1, prof.MissingTotal)

	// alice's row repeats once.
	assert.Equal(t, 1, prof.DuplicateRows)

	assert.Equal(t, 2, prof.TypeDistribution[dataset.TypeQuantitative])
	assert.Equal(t, 1, prof.TypeDistribution[dataset.TypeQualitative])

	require.NotNil(t, prof.Correlation)
	assert.Equal(t, []string{"age", "score"}, prof.Correlation.Labels)
}

func TestPipelineProgressMonotonic(t *testing.T) {
	var states []State
	var percents []int
	p := NewPipeline(testConfig(), nil, func(state State, percent int) {
		states = append(states, state)
		percents = append(percents, percent)
	})

	_, err := p.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)

	require.NotEmpty(t, states)
	assert.Equal(t, StateIdle, states[0])
	assert.Equal(t, StateComplete, states[len(states)-1])
	assert.Equal(t, 100, percents[len(percents)-1])

	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1],
			"progress regressed at transition %d (%s)", i, states[i])
	}

	// Every pipeline step must be announced in order.
	expected := []State{
		StateIdle, StateReadingFile, StateParsingCSV, StateInferringTypes,
		StateComputingStatistics, StateDetectingDuplicates,
		StateComputingCorrelation, StateFinalizing, StateComplete,
	}
	seen := 0
	for _, s := range states {
		if seen < len(expected) && s == expected[seen] {
			seen++
		}
	}
	assert.Equal(t, len(expected), seen, "missing or out-of-order states: %v", states)
}

func TestPipelineEmptyFile(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)

	_, err := p.Run(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyFile)

	_, err = p.Run(context.Background(), "only,a,header\n")
	assert.ErrorIs(t, err, core.ErrEmptyFile)
}

func TestPipelineErrorReportsErrorState(t *testing.T) {
	var last State
	p := NewPipeline(testConfig(), nil, func(state State, percent int) {
		last = state
	})

	_, err := p.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, StateError, last)
}

func TestPipelineTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = time.Nanosecond

	var sb strings.Builder
	sb.WriteString("a,b\n")
	for i := 0; i < 2000; i++ {
		fmt.Fprintf(&sb, "%d,%d\n", i, i*2)
	}

	p := NewPipeline(cfg, nil, nil)
	_, err := p.Run(context.Background(), sb.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProfileTimeout)
}

func TestPipelineKnownTypesTakePrecedence(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)

	known := map[string]dataset.ColumnType{"age": dataset.TypeQualitative}
	prof, err := p.RunWithTypes(context.Background(), fixtureCSV, known)
	require.NoError(t, err)

	col, ok := prof.ColumnByKey("age")
	require.True(t, ok)
	assert.Equal(t, dataset.TypeQualitative, col.Type)
	assert.True(t, col.Overridden)
	assert.NotNil(t, col.Categorical)
	assert.Nil(t, col.Numeric)

	// Unmentioned columns are still inferred.
	score, _ := prof.ColumnByKey("score")
	assert.False(t, score.Overridden)
	assert.Equal(t, dataset.TypeQuantitative, score.Type)
}

func TestPipelineWithPool(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	sequential := NewPipeline(testConfig(), nil, nil)
	pooled := NewPipeline(testConfig(), pool, nil)

	want, err := sequential.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)
	got, err := pooled.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)

	// Pooled execution must not change results or column order.
	assert.Equal(t, want.ColumnKeys, got.ColumnKeys)
	assert.Equal(t, want.Columns, got.Columns)
	assert.Equal(t, want.TypeDistribution, got.TypeDistribution)
}

func TestPipelineRowSampling(t *testing.T) {
	cfg := testConfig()
	cfg.RowSampleCap = 100

	var sb strings.Builder
	sb.WriteString("v\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	p := NewPipeline(cfg, nil, nil)
	prof, err := p.Run(context.Background(), sb.String())
	require.NoError(t, err)

	assert.True(t, prof.Sampled)
	assert.Equal(t, 1000, prof.RowCount)
	assert.LessOrEqual(t, len(prof.SampleRows), 100)
	assert.Equal(t, len(prof.SampleRows), prof.DuplicateInspected)
	assert.True(t, prof.DuplicateApprox)
}

func TestOverrideColumnType(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	prof, err := p.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)

	before := prof.TypeDistribution[dataset.TypeQuantitative]
	scoreBefore, _ := prof.ColumnByKey("score")
	require.NotNil(t, scoreBefore.Numeric)

	require.NoError(t, OverrideColumnType(prof, "score", dataset.TypeQualitative))

	col, ok := prof.ColumnByKey("score")
	require.True(t, ok)
	assert.Equal(t, dataset.TypeQualitative, col.Type)
	assert.True(t, col.Overridden)
	assert.Nil(t, col.Numeric)
	assert.NotNil(t, col.Categorical)

	assert.Equal(t, before-1, prof.TypeDistribution[dataset.TypeQuantitative])
	assert.Equal(t, 2, prof.TypeDistribution[dataset.TypeQualitative])

	// Other columns are untouched.
	age, _ := prof.ColumnByKey("age")
	assert.Equal(t, dataset.TypeQuantitative, age.Type)
}

func TestOverrideColumnTypeUnknownKey(t *testing.T) {
	p := NewPipeline(testConfig(), nil, nil)
	prof, err := p.Run(context.Background(), fixtureCSV)
	require.NoError(t, err)

	err = OverrideColumnType(prof, "nope", dataset.TypeQualitative)
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}
