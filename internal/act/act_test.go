package act

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	xs := []float32{-7.5, -1, -0.25, 0, 0.25, 1, 3, 7.5}
	for _, x := range xs {
		z := float64(x)
		assert.Equal(t, x, Linear.Eval(x))
		assert.Equal(t, float32(math.Max(0, z)), ReLU.Eval(x))
		assert.InDelta(t, 1/(1+math.Exp(-z)), Sigmoid.Eval(x), 1e-6)
		assert.InDelta(t, math.Tanh(z), TanH.Eval(x), 1e-6)
	}
}

func TestParse(t *testing.T) {
	for i, name := range Strings {
		k, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, Kind(i), k)
	}
	k, err := Parse("tanh")
	require.NoError(t, err)
	assert.Equal(t, TanH, k)
	_, err = Parse("gelu")
	assert.Error(t, err)
}

func TestSetKeepsFirstUseOrder(t *testing.T) {
	var s Set
	for _, k := range []Kind{ReLU, Linear, ReLU, Sigmoid, Linear} {
		s.Add(k)
	}
	assert.Equal(t, []Kind{ReLU, Linear, Sigmoid}, s.Kinds())
}

func TestApply(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 2}, ReLU.Apply([]float32{-1, 0, 2}))
}
