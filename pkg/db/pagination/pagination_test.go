package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 10000}.Limit())
}

func TestPageRoundTrip(t *testing.T) {
	rows := []int64{9, 8, 7, 6}
	page, info := Page(rows, 3, func(v int64) int64 { return v })

	assert.Equal(t, []int64{9, 8, 7}, page)
	assert.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.AfterID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), after)
}

func TestLastPage(t *testing.T) {
	page, info := Page([]int64{2, 1}, 3, func(v int64) int64 { return v })
	assert.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestAfterIDRejectsGarbage(t *testing.T) {
	_, err := Pagination{PageToken: "!!not-base64"}.AfterID()
	assert.Error(t, err)
}
