package pager

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Unit-тесты для window.go: границы окна страницы и вырезание среза.

func TestWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page, size int
		start, end int
	}{
		{name: "first page", page: 1, size: 12, start: 0, end: 12},
		{name: "third page", page: 3, size: 12, start: 24, end: 36},
		{name: "page size one", page: 7, size: 1, start: 6, end: 7},
		{name: "zero page clamps to first", page: 0, size: 10, start: 0, end: 10},
		{name: "negative size clamps to one", page: 2, size: -4, start: 1, end: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start, end := Window(tt.page, tt.size)
			require.Equal(t, tt.start, start)
			require.Equal(t, tt.end, end)
		})
	}
}

// TestWindow_Formula - для всех page, size >= 1 окно равно {(page-1)*size, page*size}.
func TestWindow_Formula(t *testing.T) {
	t.Parallel()

	for page := 1; page <= 30; page++ {
		for size := 1; size <= 30; size++ {
			start, end := Window(page, size)
			require.Equal(t, (page-1)*size, start)
			require.Equal(t, page*size, end)
		}
	}
}

func TestSliceWindow(t *testing.T) {
	t.Parallel()

	items := make([]int, 30)
	for i := range items {
		items[i] = i
	}

	t.Run("full page", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, []int{12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23}, SliceWindow(items, 2, 12))
	})

	t.Run("tail is clamped", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, []int{24, 25, 26, 27, 28, 29}, SliceWindow(items, 3, 12))
	})

	t.Run("out of range is empty, not nil", func(t *testing.T) {
		t.Parallel()
		got := SliceWindow(items, 4, 12)
		require.NotNil(t, got)
		require.Empty(t, got)
	})

	t.Run("result does not alias input", func(t *testing.T) {
		t.Parallel()
		src := []int{1, 2, 3}
		got := SliceWindow(src, 1, 2)
		got[0] = 100
		require.Equal(t, 1, src[0])
	})
}
