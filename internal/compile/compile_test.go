package compile

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"NNC/internal/layer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mlpText = `
config:
  prefix: mlp
  strategy: %s
layers:
  - type: Input
    size: 4
  - type: Dense
    activation: relu
    weights: [[1, 0, 0], [0, 1, 0], [0, 0, 1], [1, 1, 1]]
    biases: [0, 0, 0]
  - type: Softmax
`

const convText = `
config:
  prefix: conv
  strategy: optimized
  data_type: double
  verify: true
  tiling: {m: 2, n: 3, k: 2}
layers:
  - type: Input
    size: 9
  - type: Conv2D
    kernel_size: 2
    filters: 1
    input_shape: [3, 3, 1]
    weights: [[[[1]], [[2]]], [[[3]], [[4]]]]
    biases: [1]
`

func mlp(strategy string) []byte {
	return []byte(strings.Replace(mlpText, "%s", strategy, 1))
}

func TestCompileGeneric(t *testing.T) {
	res, err := Compile(mlp("generic"))
	require.NoError(t, err)
	assert.Equal(t, "mlp", res.Name)
	assert.Contains(t, string(res.H), "#define NB_LAYERS 3\n")
	assert.Contains(t, string(res.C), "#include \"mlp.h\"\n")
	assert.Contains(t, string(res.G), "struct layer net[NB_LAYERS] = {\n")
	assert.Len(t, res.Flows, 3)
	assert.Equal(t, &Build{
		Sources:  []string{"mlp.c", "mlp_globals.c"},
		Headers:  []string{"mlp.h"},
		Binary:   "mlp",
		Compiler: "gcc",
		DataType: "float",
		Strategy: "generic",
		InSize:   4,
		OutSize:  3,
	}, res.Build)
}

func TestCompileEveryStrategy(t *testing.T) {
	for _, s := range []string{"generic", "semi", "unrolled", "optimized"} {
		res, err := Compile(mlp(s))
		require.NoError(t, err, s)
		assert.NotEmpty(t, res.H, s)
		assert.NotEmpty(t, res.C, s)
		assert.NotEmpty(t, res.G, s)
	}
}

func TestUnsupportedStrategy(t *testing.T) {
	res, err := Compile(mlp("vectorized"))
	require.Error(t, err)
	assert.Nil(t, res)
	var se *UnsupportedStrategyError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "vectorized", se.Strategy)
	assert.True(t, strings.HasPrefix(err.Error(), "compile failed: "))
}

func TestParseError(t *testing.T) {
	_, err := Compile([]byte("layers: [}"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "load failed: "), err.Error())
}

func TestTopologyError(t *testing.T) {
	text := `
layers:
  - type: Input
    size: 3
  - type: Dense
    weights: [[1], [1]]
    biases: [0]
`
	_, err := Compile([]byte(text))
	require.Error(t, err)
	var te *layer.TopologyError
	assert.True(t, errors.As(err, &te))
	assert.True(t, strings.HasPrefix(err.Error(), "load failed: line 5: "), err.Error())
	assert.NotContains(t, err.Error(), "compile failed")
}

func TestCompileConv(t *testing.T) {
	res, err := Compile([]byte(convText))
	require.NoError(t, err)
	c := string(res.C)
	assert.Contains(t, c, "static void conv2d_gemm_1(const double* input, double* output, const double* weights, const double* biases) {\n")
	assert.Contains(t, c, "double a1[4];\n")
	assert.Contains(t, c, "double b1[6];\n")
	assert.Contains(t, string(res.G), "const double weights_Conv2D_01[4] = {\n")
	assert.Equal(t, "double", res.Build.DataType)
	assert.Equal(t, 4, res.Build.OutSize)
}

func TestFlowFacts(t *testing.T) {
	res, err := Compile(mlp("generic"))
	require.NoError(t, err)
	b, err := res.FlowFacts()
	require.NoError(t, err)
	var facts []map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &facts))
	require.Len(t, facts, 3)
	assert.Equal(t, "Dense", facts[1]["name"])
	inner := facts[1]["inner"].([]interface{})
	loop := inner[0].(map[string]interface{})
	assert.Equal(t, "for loop", loop["type"])
	assert.Equal(t, "i", loop["variable"])
	assert.Equal(t, "l1_size", loop["bound"])
	assert.Equal(t, float64(2), loop["end"])
}

func TestFlowFactsEmpty(t *testing.T) {
	res, err := Compile(mlp("semi"))
	require.NoError(t, err)
	b, err := res.FlowFacts()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestProbe(t *testing.T) {
	p := Probe(5)
	require.Equal(t, 5, p.Len())
	for i, x := range p.Data() {
		assert.InDelta(t, math.Sin(float64(i)+1), float64(x), 1e-6)
		assert.LessOrEqual(t, math.Abs(float64(x)), 1.0)
	}
}

func TestNonFiniteWeightsRejected(t *testing.T) {
	for _, v := range []string{"nan", "inf", "-Inf"} {
		text := strings.Replace(string(mlp("unrolled")), "[[1, 0, 0]", "[["+v+", 0, 0]", 1)
		require.Contains(t, text, v)
		_, err := Compile([]byte(text))
		require.Error(t, err, v)
		assert.True(t, strings.HasPrefix(err.Error(), "load failed: "), err.Error())
	}
}
