package gemm

import (
	"errors"
	"math/rand"
	"testing"

	"NNC/internal/pad"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func random(r *rand.Rand, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = r.Float32()*2 - 1
	}
	return out
}

// conv builds a square-kernel convolution with framework "same" or
// "valid" output extents.
func conv(mode pad.Mode, ih, iw, c, f, k, stride, dilation int) Conv {
	p := pad.Compute(mode, ih, iw, k, stride, dilation)
	return Conv{
		F: f, C: c,
		OH: pad.Out(mode, ih, k, stride, dilation),
		OW: pad.Out(mode, iw, k, stride, dilation),
		KH: k, KW: k,
		IH: ih, IW: iw,
		Stride: stride, Dilation: dilation,
		PadTop: p.Top, PadLeft: p.Left,
	}
}

func TestImplicitMatchesDirect(t *testing.T) {
	cases := []struct {
		name string
		cv   Conv
	}{
		{"1x1 valid", conv(pad.Valid, 5, 4, 3, 5, 1, 1, 1)},
		{"3x3 same", conv(pad.Same, 6, 7, 2, 9, 3, 1, 1)},
		{"3x3 stride2 same", conv(pad.Same, 9, 8, 3, 4, 3, 2, 1)},
		{"stride2 valid", conv(pad.Valid, 9, 9, 1, 3, 2, 2, 1)},
		{"dilation2 same", conv(pad.Same, 8, 8, 2, 3, 3, 1, 2)},
		{"dilation2 valid", conv(pad.Valid, 9, 7, 4, 2, 3, 1, 2)},
		{"5x5 same many filters", conv(pad.Same, 5, 5, 3, 17, 5, 1, 1)},
	}
	tilings := []Tiling{DefaultTiling, {M: 1, N: 1, K: 1}, {M: 3, N: 5, K: 7}, {M: 16, N: 2, K: 9}}
	r := rand.New(rand.NewSource(1))
	for _, c := range cases {
		cv := c.cv
		input := random(r, cv.IH*cv.IW*cv.C)
		weights := random(r, cv.KH*cv.KW*cv.C*cv.F)
		biases := random(r, cv.F)
		for _, tl := range tilings {
			t.Run(c.name, func(t *testing.T) {
				require.NoError(t, Verify(cv, tl, input, weights, biases))
			})
		}
	}
}

func TestDirectKnownValues(t *testing.T) {
	// 3x3 input, one channel, 2x2 kernel of ones, valid, stride 1.
	cv := Conv{F: 1, C: 1, OH: 2, OW: 2, KH: 2, KW: 2, IH: 3, IW: 3, Stride: 1, Dilation: 1}
	input := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	weights := []float32{1, 1, 1, 1}
	out, err := Direct(cv, input, weights, []float32{0.5})
	require.NoError(t, err)
	assert.Equal(t, []float32{12.5, 16.5, 24.5, 28.5}, out)

	got, err := Implicit(cv, DefaultTiling, input, weights, []float32{0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, out, got, 1e-5)
}

func TestDirectSkipsPadding(t *testing.T) {
	// Same padding, 3x3 ones over a 2x2 map: every output sees all 4 inputs.
	cv := conv(pad.Same, 2, 2, 1, 1, 3, 1, 1)
	out, err := Direct(cv, []float32{1, 2, 3, 4}, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}, []float32{0})
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 10, 10, 10}, out)
}

func TestMma(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{1, 0, 0, 1, 1, 1}
	c := []float64{1, 1, 1, 1}
	assert.Equal(t, []float64{5, 6, 11, 12}, Mma(2, 2, 3, a, b, c))
}

func TestMismatchReported(t *testing.T) {
	cv := Conv{F: 1, C: 1, OH: 1, OW: 1, KH: 1, KW: 1, IH: 1, IW: 1, Stride: 1, Dilation: 1}
	err := Verify(cv, Tiling{M: 0, N: 1, K: 1}, []float32{1}, []float32{1}, []float32{0})
	assert.Error(t, err)

	var me *MismatchError
	assert.False(t, errors.As(err, &me))
	assert.True(t, Close(1, 1.005, RelTol))
	assert.False(t, Close(1, 1.5, RelTol))
}

func TestCheckLengths(t *testing.T) {
	cv := Conv{F: 2, C: 1, OH: 1, OW: 1, KH: 1, KW: 1, IH: 1, IW: 1, Stride: 1, Dilation: 1}
	_, err := Direct(cv, []float32{1}, []float32{1, 1}, []float32{0})
	assert.Error(t, err)
	_, err = Implicit(cv, DefaultTiling, nil, []float32{1, 1}, []float32{0, 0})
	assert.Error(t, err)
}
