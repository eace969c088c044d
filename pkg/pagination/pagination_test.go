package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	params, err := Parse("", "", 30, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 30, params.Limit)
	assert.Equal(t, 0, params.Offset)
}

func TestParseClampsSize(t *testing.T) {
	params, err := Parse("2", "500", 30, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, 100, params.Offset)

	params, err = Parse("1", "0", 30, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Limit)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("abc", "", 30, 100)
	assert.Error(t, err)

	_, err = Parse("", "xyz", 30, 100)
	assert.Error(t, err)
}

func TestParseNegativePageFallsBack(t *testing.T) {
	params, err := Parse("-3", "10", 30, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Page)
	assert.Equal(t, 0, params.Offset)
}

func TestNewPageHasMore(t *testing.T) {
	params := &Params{Page: 1, Limit: 10}
	page := NewPage([]int{1, 2, 3}, 25, params)
	assert.True(t, page.HasMore)
	assert.Equal(t, 25, page.Total)

	last := NewPage([]int{1, 2, 3}, 25, &Params{Page: 3, Limit: 10})
	assert.False(t, last.HasMore)
}
