package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name      string
		selection string
		total     int
		want      []int
		wantErr   bool
	}{
		{"all", "all", 3, []int{1, 2, 3}, false},
		{"empty means all", "", 2, []int{1, 2}, false},
		{"single", "2", 5, []int{2}, false},
		{"range", "2-4", 5, []int{2, 3, 4}, false},
		{"mixed sorted and deduplicated", "5,1-3,2", 5, []int{1, 2, 3, 5}, false},
		{"out of range", "6", 5, nil, true},
		{"descending range rejected", "4-2", 5, nil, true},
		{"garbage", "one", 5, nil, true},
		{"zero", "0", 5, nil, true},
		{"only commas", ",,", 5, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.selection, tt.total)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSelection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRanges(t *testing.T) {
	got, err := Ranges("all", 3)
	require.NoError(t, err)
	assert.Equal(t, []Range{{1, 1}, {2, 2}, {3, 3}}, got)

	got, err = Ranges("4-6, 1-2", 6)
	require.NoError(t, err)
	assert.Equal(t, []Range{{4, 6}, {1, 2}}, got, "order is kept")
	assert.Equal(t, "4-6", got[0].String())
	assert.Equal(t, 3, got[0].Len())

	_, err = Ranges("1-9", 6)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestSequence(t *testing.T) {
	got, err := Sequence("3,1,1,5-4", 5)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1, 5, 4}, got)

	got, err = Sequence("all", 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	_, err = Sequence("1-7", 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestRangePages(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4}, Range{From: 2, To: 4}.Pages())
	assert.Equal(t, []int{4, 3, 2}, Range{From: 4, To: 2}.Pages())
	assert.Equal(t, "7", Range{From: 7, To: 7}.String())
	assert.Equal(t, []string{"1", "10"}, Strings([]int{1, 10}))
}

func TestEmptyDocument(t *testing.T) {
	_, err := Select("1", 0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
