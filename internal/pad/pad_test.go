package pad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitStrideSplit(t *testing.T) {
	for k := 1; k <= 9; k++ {
		for _, length := range []int{1, 5, 8, 13} {
			p := Compute(Same, length, length, k, 1, 1)
			assert.Equal(t, k-1, p.Top+p.Bottom, "k=%d", k)
			assert.Equal(t, k-1, p.Left+p.Right, "k=%d", k)
			assert.Equal(t, (k-1)/2, p.Top)
			assert.Equal(t, (k-1)/2, p.Left)
		}
	}
}

func TestValidIsZero(t *testing.T) {
	assert.Equal(t, Padding{}, Compute(Valid, 28, 28, 5, 2, 3))
}

func TestStrideAndDilation(t *testing.T) {
	cases := []struct {
		name                         string
		h, w, size, stride, dilation int
		want                         Padding
	}{
		{"stride2 even", 8, 8, 3, 2, 1, Padding{Right: 1, Left: 0, Bottom: 1, Top: 0}},
		{"stride2 odd", 7, 7, 3, 2, 1, Padding{Right: 1, Left: 1, Bottom: 1, Top: 1}},
		{"dilation2", 6, 6, 3, 1, 2, Padding{Right: 2, Left: 2, Bottom: 2, Top: 2}},
		{"rect", 5, 6, 2, 2, 1, Padding{Right: 0, Left: 0, Bottom: 1, Top: 0}},
		{"big stride", 9, 9, 2, 4, 1, Padding{Right: 1, Left: 0, Bottom: 1, Top: 0}},
		{"stride beyond extent", 8, 8, 2, 4, 1, Padding{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Compute(Same, c.h, c.w, c.size, c.stride, c.dilation)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestOut(t *testing.T) {
	assert.Equal(t, 4, Out(Same, 7, 3, 2, 1))
	assert.Equal(t, 3, Out(Valid, 7, 3, 2, 1))
	assert.Equal(t, 2, Out(Valid, 6, 3, 1, 2))
	assert.Equal(t, 0, Out(Valid, 2, 3, 1, 1))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("same")
	require.NoError(t, err)
	assert.Equal(t, Same, m)
	_, err = ParseMode("causal")
	assert.Error(t, err)
	assert.Equal(t, "valid", Valid.String())
}
