package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.False(t, id.IsEmpty())
		assert.False(t, seen[id], "duplicate ID generated: %s", id)
		seen[id] = true
	}
}

func TestParseDatasetID(t *testing.T) {
	id, err := ParseDatasetID("abc-123")
	require.NoError(t, err)
	assert.Equal(t, DatasetID("abc-123"), id)

	_, err = ParseDatasetID("")
	assert.Error(t, err)

	_, err = ParseDatasetID("   ")
	assert.Error(t, err)
}

func TestParseVersionID(t *testing.T) {
	id, err := ParseVersionID("v-1")
	require.NoError(t, err)
	assert.Equal(t, VersionID("v-1"), id)

	_, err = ParseVersionID("")
	assert.Error(t, err)
}

func TestParseColumnKey(t *testing.T) {
	key, err := ParseColumnKey("value_2")
	require.NoError(t, err)
	assert.Equal(t, ColumnKey("value_2"), key)
	assert.Equal(t, "value_2", key.String())

	_, err = ParseColumnKey("")
	assert.Error(t, err)

	_, err = ParseColumnKey("  ")
	assert.Error(t, err)
}

func TestNewRowHash(t *testing.T) {
	a := NewRowHash([]string{"1", "2"})
	b := NewRowHash([]string{"1", "2"})
	c := NewRowHash([]string{"12"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// The delimiter keeps adjacent cells from merging.
	assert.NotEqual(t, NewRowHash([]string{"ab", "c"}), NewRowHash([]string{"a", "bc"}))
}
