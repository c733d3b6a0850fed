package paging

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/geopal/internal/failure"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestRenderWindowProperties(t *testing.T) {
	for n := 1; n <= 23; n++ {
		for start := 0; start < n; start++ {
			page, err := Render(seq(n), start)
			require.NoError(t, err)

			assert.Len(t, page.Entries, min(PageSize, n-start), "n=%d start=%d", n, start)
			assert.Equal(t, start+PageSize >= n, page.Next == nil, "n=%d start=%d", n, start)
			assert.Equal(t, start < PageSize, page.Prev == nil, "n=%d start=%d", n, start)
			if page.Next != nil {
				assert.Equal(t, start+PageSize, *page.Next)
			}
		}
	}
}

func TestRenderSecondPageOfSeven(t *testing.T) {
	page, err := Render(seq(7), 5)
	require.NoError(t, err)

	if diff := cmp.Diff([]int{5, 6}, page.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Prev)
	assert.Equal(t, 0, *page.Prev)
}

func TestRenderMiddlePage(t *testing.T) {
	page, err := Render(seq(12), 5)
	require.NoError(t, err)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Prev)
	assert.Equal(t, 10, *page.Next)
	assert.Equal(t, 0, *page.Prev)
}

func TestRenderRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name  string
		n     int
		start int
	}{
		{"negative", 3, -1},
		{"past end", 3, 3},
		{"empty list", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Render(seq(tc.n), tc.start)
			assert.ErrorIs(t, err, failure.ErrPaginationIndexOutOfRange)
		})
	}
}
